// Package knowledge provides the in-process SOP index used for retrieval.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"TaskIntake/internal/domain"
	"TaskIntake/internal/ports"
)

const (
	defaultWorkers   = 4
	defaultBatchSize = 16
)

var (
	ErrEmbedderRequired = errors.New("embedder is required")
	ErrInvalidTopK      = errors.New("top_k must be at least 1")
	ErrClosed           = errors.New("knowledge store is closed")
)

type entry struct {
	doc    domain.Document
	vector []float32
}

// MemoryStore keeps documents and their embeddings in memory and ranks them
// by cosine similarity. Seeding an existing id overwrites its text and vector
// in place.
type MemoryStore struct {
	embedder  ports.Embedder
	pool      *ants.Pool
	batchSize int
	logger    *slog.Logger

	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
}

var _ ports.KnowledgeStore = (*MemoryStore)(nil)

// Option configures a MemoryStore.
type Option func(*MemoryStore) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *MemoryStore) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithWorkers sizes the pool used to embed documents during Seed.
func WithWorkers(n int) Option {
	return func(s *MemoryStore) error {
		if n <= 0 {
			return nil
		}
		pool, err := ants.NewPool(n)
		if err != nil {
			return fmt.Errorf("embedding pool: %w", err)
		}
		if s.pool != nil {
			s.pool.Release()
		}
		s.pool = pool
		return nil
	}
}

// WithBatchSize sets how many documents are embedded per pool task.
func WithBatchSize(n int) Option {
	return func(s *MemoryStore) error {
		if n > 0 {
			s.batchSize = n
		}
		return nil
	}
}

// NewMemoryStore creates an empty store backed by embedder.
func NewMemoryStore(embedder ports.Embedder, opts ...Option) (*MemoryStore, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &MemoryStore{
		embedder:  embedder,
		batchSize: defaultBatchSize,
		logger:    slog.Default(),
		entries:   make(map[string]*entry),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.Close()
			return nil, err
		}
	}

	if s.pool == nil {
		pool, err := ants.NewPool(defaultWorkers)
		if err != nil {
			return nil, fmt.Errorf("embedding pool: %w", err)
		}
		s.pool = pool
	}

	return s, nil
}

// Close releases the embedding pool. Seeding a closed store fails with ErrClosed;
// queries keep working on what was already indexed.
func (s *MemoryStore) Close() {
	if !s.pool.IsClosed() {
		s.pool.Release()
	}
}

// Len reports the number of stored documents.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Seed indexes docs. The batch is applied only if every document validates and embeds.
func (s *MemoryStore) Seed(ctx context.Context, docs []domain.Document) error {
	for i, doc := range docs {
		if strings.TrimSpace(doc.ID) == "" {
			return fmt.Errorf("document %d: empty id", i)
		}
		if strings.TrimSpace(doc.Text) == "" {
			return fmt.Errorf("document %s: empty text", doc.ID)
		}
	}
	if len(docs) == 0 {
		return nil
	}
	if s.pool.IsClosed() {
		return ErrClosed
	}

	vectors, err := s.embedAll(ctx, docs)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var added, replaced int
	for i, doc := range docs {
		if existing, ok := s.entries[doc.ID]; ok {
			existing.doc = doc
			existing.vector = vectors[i]
			replaced++
			continue
		}
		s.entries[doc.ID] = &entry{doc: doc, vector: vectors[i]}
		s.order = append(s.order, doc.ID)
		added++
	}

	s.logger.Info("knowledge seeded", "added", added, "replaced", replaced, "total", len(s.order))
	return nil
}

func (s *MemoryStore) embedAll(ctx context.Context, docs []domain.Document) ([][]float32, error) {
	vectors := make([][]float32, len(docs))

	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)
	setErr := func(err error) {
		errMu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		errMu.Unlock()
	}

	for start := 0; start < len(docs); start += s.batchSize {
		end := min(start+s.batchSize, len(docs))
		batch := docs[start:end]
		offset := start

		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()

			texts := make([]string, len(batch))
			for i, doc := range batch {
				texts[i] = doc.Text
			}

			embedded, err := s.embedder.EmbedDocuments(ctx, texts)
			if err != nil {
				setErr(fmt.Errorf("embed documents %s..%s: %w", batch[0].ID, batch[len(batch)-1].ID, err))
				return
			}
			if len(embedded) != len(batch) {
				setErr(fmt.Errorf("embedding result mismatch: expected %d, received %d", len(batch), len(embedded)))
				return
			}
			copy(vectors[offset:], embedded)
		})
		if err != nil {
			wg.Done()
			if errors.Is(err, ants.ErrPoolClosed) {
				err = ErrClosed
			}
			setErr(fmt.Errorf("submit embedding task: %w", err))
			break
		}
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return vectors, nil
}

// Query returns the topK documents most similar to text, best first.
func (s *MemoryStore) Query(ctx context.Context, text string, topK int) ([]domain.RetrievalResult, error) {
	if topK < 1 {
		return nil, ErrInvalidTopK
	}
	if s.Len() == 0 {
		return nil, domain.ErrNotFound
	}

	query, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	type scored struct {
		doc   domain.Document
		score float64
	}

	s.mu.RLock()
	results := make([]scored, 0, len(s.order))
	for _, id := range s.order {
		e := s.entries[id]
		results = append(results, scored{doc: e.doc, score: cosineSimilarity(query, e.vector)})
	}
	s.mu.RUnlock()

	if len(results) == 0 {
		return nil, domain.ErrNotFound
	}

	// stable sort keeps insertion order for equal scores
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if len(results) > topK {
		results = results[:topK]
	}

	out := make([]domain.RetrievalResult, len(results))
	for i, r := range results {
		out[i] = domain.RetrievalResult{
			DocumentID: r.doc.ID,
			Passage:    r.doc.Text,
			Rank:       i + 1,
			Score:      r.score,
		}
	}
	return out, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
