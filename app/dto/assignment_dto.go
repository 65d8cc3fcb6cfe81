package dto

// AssignmentRequest carries the query parameters of the assignment lookup
type AssignmentRequest struct {
	ProductID string `query:"product_id" json:"product_id" validate:"required"`
	SessionID string `query:"session_id" json:"session_id" validate:"required"`
	Force     string `query:"force" json:"force,omitempty" validate:"omitempty,oneof=base test"`
}

// AssignmentResponse is the server's decision for one (product, session)
// pair. Active=false is the explicit "no active test" signal; the client
// leaves the storefront untouched.
type AssignmentResponse struct {
	Active   bool     `json:"active"`
	TestID   string   `json:"test_id,omitempty"`
	Case     string   `json:"case,omitempty"`
	Images   []string `json:"images,omitempty"`
	TenantID uint     `json:"tenant_id,omitempty"`
}

// NoActiveTestResponse returns the explicit "no test" signal
func NoActiveTestResponse() *AssignmentResponse {
	return &AssignmentResponse{Active: false}
}
