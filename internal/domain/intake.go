package domain

// Document is a reference passage (an SOP) held by the knowledge store.
type Document struct {
	ID   string
	Text string
}

// IntakeRequest is a single task description submitted by an automation source.
type IntakeRequest struct {
	Message string
	Source  string
}

// RetrievalResult is one ranked passage returned by the knowledge store.
// Rank is 1-based; lower is more relevant.
type RetrievalResult struct {
	DocumentID string
	Passage    string
	Rank       int
	Score      float64
}

// Category groups incoming tasks for downstream routing.
type Category string

const (
	CategoryFinance Category = "Finance"
	CategoryGeneral Category = "General"
)

// Priority bounds accepted by the classifier.
const (
	MinPriority = 1
	MaxPriority = 5
)

// Classification is the coarse routing decision for a message.
type Classification struct {
	Category Category
	Priority int
}

// ActionProcessed is written to every audit record produced by the pipeline.
const ActionProcessed = "processed"

// AuditEntry is the payload handed to the audit log before an id is assigned.
type AuditEntry struct {
	Source string
	Input  string
	Action string
}

// AuditRecord is a persisted, append-only audit row.
type AuditRecord struct {
	ID     int64
	Source string
	Input  string
	Action string
}

// EnrichedTask is the response returned to the caller.
type EnrichedTask struct {
	TaskContent string
	Category    Category
	Priority    int
}
