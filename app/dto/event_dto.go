package dto

// RecordEventRequest is the body of the event ingestion endpoint
type RecordEventRequest struct {
	TestID    string   `json:"test_id" validate:"required,uuid4"`
	SessionID string   `json:"session_id" validate:"required,min=8,max=64"`
	EventType string   `json:"event_type" validate:"required,oneof=impression add_to_cart purchase"`
	ProductID string   `json:"product_id" validate:"required"`
	Case      string   `json:"case" validate:"required,oneof=base test"`
	VariantID *string  `json:"variant_id,omitempty" validate:"omitempty,max=255"`
	Revenue   *float64 `json:"revenue,omitempty" validate:"omitempty,gte=0"`
	Fallback  bool     `json:"fallback,omitempty"` // true for add-to-carts detected via network interception
}

// RecordEventResponse acknowledges one ingested event
type RecordEventResponse struct {
	EventID   string `json:"event_id,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
}
