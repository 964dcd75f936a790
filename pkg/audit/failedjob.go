package audit

import "time"

// Stage identifies which pipeline stage produced a FailedJob.
type Stage string

const (
	StageUpload   Stage = "upload"
	StageOCR      Stage = "ocr"
	StageAnalysis Stage = "analysis"
	StageStorage  Stage = "storage"
)

// JobError is the error recorded against a FailedJob.
type JobError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// FailedJob is the public view of a dead-lettered job; the
// internal/dlq package's Entry is its in-memory storage representation.
type FailedJob struct {
	ID            string         `json:"id"`
	DocumentID    string         `json:"documentId"`
	CorrelationID string         `json:"correlationId,omitempty"`
	Stage         Stage          `json:"stage"`
	Error         JobError       `json:"error"`
	Attempts      int            `json:"attempts"`
	MaxAttempts   int            `json:"maxAttempts"`
	LastAttemptAt time.Time      `json:"lastAttemptAt"`
	CreatedAt     time.Time      `json:"createdAt"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Recoverable   bool           `json:"recoverable"`
}
