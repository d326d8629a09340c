package ports

import (
	"context"

	"TaskIntake/internal/domain"
)

// KnowledgeStore holds reference documents indexed for similarity search.
type KnowledgeStore interface {
	Seed(ctx context.Context, docs []domain.Document) error
	Query(ctx context.Context, text string, topK int) ([]domain.RetrievalResult, error)
}

// AuditLog is the append-only record of processed requests.
type AuditLog interface {
	EnsureSchema(ctx context.Context) error
	Append(ctx context.Context, entry domain.AuditEntry) (domain.AuditRecord, error)
}

// AuditReader exposes read access to persisted audit records.
type AuditReader interface {
	Count(ctx context.Context) (int64, error)
	Recent(ctx context.Context, limit int) ([]domain.AuditRecord, error)
}

// Classifier maps message text to a category/priority pair. Implementations
// must be pure and total.
type Classifier interface {
	Classify(message string) domain.Classification
}

// Embedder turns text into vectors for the knowledge store.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// DocumentSource produces the corpus seeded at startup.
type DocumentSource interface {
	Documents(ctx context.Context) ([]domain.Document, error)
}
