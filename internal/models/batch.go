package models

// BatchItemResult reports the outcome of one sub-operation. It is produced
// once and never mutated; the results slice preserves request order.
type BatchItemResult struct {
	StudentID    string `json:"student_id"`
	ModuleID     string `json:"module_id"`
	EnrollmentID string `json:"enrollment_id,omitempty"`
	Success      bool   `json:"success"`
	WasDuplicate bool   `json:"was_duplicate,omitempty"`
	Error        string `json:"error,omitempty"`
}

// BatchResponse aggregates per-item results. Successful+Failed+Skipped always
// equals TotalRequested.
type BatchResponse struct {
	BatchID        string            `json:"batch_id"`
	TotalRequested int               `json:"total_requested"`
	Successful     int               `json:"successful"`
	Failed         int               `json:"failed"`
	Skipped        int               `json:"skipped"`
	Results        []BatchItemResult `json:"results"`
}
