package dto

// OperatorTokenRequest exchanges the shared operator secret for a JWT
type OperatorTokenRequest struct {
	OperatorID uint   `json:"operator_id" validate:"required"`
	Secret     string `json:"secret" validate:"required,min=16"`
}

// OperatorTokenResponse carries the issued operator token
type OperatorTokenResponse struct {
	Token string `json:"token"`
}
