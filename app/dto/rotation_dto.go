package dto

import "time"

// RotationResult describes one attempted case transition
type RotationResult struct {
	TestID   string `json:"test_id"`
	FromCase string `json:"from_case"`
	ToCase   string `json:"to_case"`
	Error    string `json:"error,omitempty"`
}

// RotationRunSummary reports one scheduler pass over all due tests
type RotationRunSummary struct {
	RanAt   time.Time        `json:"ran_at"`
	Applied []RotationResult `json:"applied"`
	Failed  []RotationResult `json:"failed"`
}

// TestStatusRequest addresses one test for an operator lifecycle transition
type TestStatusRequest struct {
	TestID string `json:"test_id" validate:"required,uuid4"`
}
