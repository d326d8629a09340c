package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TaskIntake/internal/classifier"
	"TaskIntake/internal/config"
	"TaskIntake/internal/domain"
	"TaskIntake/internal/infrastructure/embedding"
	"TaskIntake/internal/infrastructure/knowledge"
	"TaskIntake/internal/infrastructure/parser"
	"TaskIntake/internal/infrastructure/storage"
	"TaskIntake/internal/logging"
)

type fakeKnowledge struct {
	results []domain.RetrievalResult
	err     error
	queries []string
}

func (f *fakeKnowledge) Seed(context.Context, []domain.Document) error { return nil }

func (f *fakeKnowledge) Query(_ context.Context, text string, topK int) ([]domain.RetrievalResult, error) {
	f.queries = append(f.queries, text)
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type recordingAudit struct {
	mu      sync.Mutex
	records []domain.AuditRecord
	err     error
}

func (r *recordingAudit) EnsureSchema(context.Context) error { return nil }

func (r *recordingAudit) Append(_ context.Context, entry domain.AuditEntry) (domain.AuditRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return domain.AuditRecord{}, r.err
	}
	rec := domain.AuditRecord{ID: int64(len(r.records) + 1), Source: entry.Source, Input: entry.Input, Action: entry.Action}
	r.records = append(r.records, rec)
	return rec, nil
}

func newPipeline(t *testing.T, kb *fakeKnowledge, audit *recordingAudit) *IntakePipeline {
	t.Helper()
	p, err := NewIntakePipeline(IntakeDeps{
		Knowledge:  kb,
		Classifier: classifier.NewDefault(),
		AuditLog:   audit,
		Logger:     logging.Discard(),
	})
	require.NoError(t, err)
	return p
}

func sopResult() []domain.RetrievalResult {
	return []domain.RetrievalResult{{DocumentID: "sop", Passage: "Only the SFO card may be used.", Rank: 1, Score: 0.8}}
}

func TestNewIntakePipelineRequiresDependencies(t *testing.T) {
	t.Parallel()

	kb, audit, cls := &fakeKnowledge{}, &recordingAudit{}, classifier.NewDefault()

	_, err := NewIntakePipeline(IntakeDeps{Classifier: cls, AuditLog: audit})
	assert.ErrorIs(t, err, ErrKnowledgeStoreRequired)
	_, err = NewIntakePipeline(IntakeDeps{Knowledge: kb, AuditLog: audit})
	assert.ErrorIs(t, err, ErrClassifierRequired)
	_, err = NewIntakePipeline(IntakeDeps{Knowledge: kb, Classifier: cls})
	assert.ErrorIs(t, err, ErrAuditLogRequired)
}

func TestProcessExpenseRequest(t *testing.T) {
	t.Parallel()

	kb := &fakeKnowledge{results: sopResult()}
	audit := &recordingAudit{}
	p := newPipeline(t, kb, audit)

	task, err := p.Process(context.Background(), domain.IntakeRequest{Message: "Can I submit an expense report?", Source: "Slack"})
	require.NoError(t, err)

	assert.Equal(t, domain.CategoryFinance, task.Category)
	assert.Equal(t, 4, task.Priority)
	assert.Contains(t, task.TaskContent, "Can I submit an expense report?")
	assert.Contains(t, task.TaskContent, "Only the SFO card may be used.")
	assert.Equal(t, "Task: Can I submit an expense report?\n\nRelevant SOP:\nOnly the SFO card may be used.\n", task.TaskContent)

	assert.Equal(t, []string{"Can I submit an expense report?"}, kb.queries)
	require.Len(t, audit.records, 1)
	assert.Equal(t, domain.AuditRecord{ID: 1, Source: "Slack", Input: "Can I submit an expense report?", Action: "processed"}, audit.records[0])
}

func TestProcessGeneralRequest(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, &fakeKnowledge{results: sopResult()}, &recordingAudit{})

	task, err := p.Process(context.Background(), domain.IntakeRequest{Message: "Reset my password", Source: "Email"})
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryGeneral, task.Category)
	assert.Equal(t, 2, task.Priority)
}

func TestProcessRejectsInvalidRequests(t *testing.T) {
	t.Parallel()

	cases := map[string]domain.IntakeRequest{
		"empty message": {Message: "", Source: "Slack"},
		"blank message": {Message: "   \n", Source: "Slack"},
		"empty source":  {Message: "Reset my password", Source: ""},
	}

	for name, req := range cases {
		kb := &fakeKnowledge{results: sopResult()}
		audit := &recordingAudit{}
		p := newPipeline(t, kb, audit)

		_, err := p.Process(context.Background(), req)
		require.Error(t, err, name)
		assert.ErrorIs(t, err, domain.ErrValidation, name)

		stage, ok := domain.FailedStage(err)
		assert.True(t, ok, name)
		assert.Equal(t, domain.StageValidation, stage, name)
		assert.Empty(t, kb.queries, "%s: knowledge store must not be queried", name)
		assert.Empty(t, audit.records, "%s: no audit record for rejected requests", name)
	}
}

func TestProcessRetrievalFailure(t *testing.T) {
	t.Parallel()

	audit := &recordingAudit{}
	p := newPipeline(t, &fakeKnowledge{err: domain.ErrNotFound}, audit)

	_, err := p.Process(context.Background(), domain.IntakeRequest{Message: "expense", Source: "Slack"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRetrieval)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	stage, _ := domain.FailedStage(err)
	assert.Equal(t, domain.StageRetrieval, stage)
	assert.Empty(t, audit.records)
}

func TestProcessRetrievalWithoutResults(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, &fakeKnowledge{}, &recordingAudit{})

	_, err := p.Process(context.Background(), domain.IntakeRequest{Message: "hello", Source: "Slack"})
	assert.ErrorIs(t, err, domain.ErrRetrieval)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProcessPersistenceFailureIsFailClosed(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	p := newPipeline(t, &fakeKnowledge{results: sopResult()}, &recordingAudit{err: cause})

	task, err := p.Process(context.Background(), domain.IntakeRequest{Message: "Reset my password", Source: "Email"})
	require.Error(t, err)
	assert.Equal(t, domain.EnrichedTask{}, task)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.ErrorIs(t, err, cause)

	stage, _ := domain.FailedStage(err)
	assert.Equal(t, domain.StageLogging, stage)
}

func TestProcessEndToEndWithSQLiteAudit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := knowledge.NewMemoryStore(embedding.NewHashingEmbedder(0), knowledge.WithLogger(logging.Discard()))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Seed(ctx, parser.DefaultDocuments()))

	db, dialect, err := storage.Open(ctx, config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "audit.db"),
	})
	require.NoError(t, err)
	defer db.Close()

	audit := storage.NewAuditRepository(db, dialect)
	require.NoError(t, audit.EnsureSchema(ctx))

	p, err := NewIntakePipeline(IntakeDeps{
		Knowledge:  store,
		Classifier: classifier.NewDefault(),
		AuditLog:   audit,
		Logger:     logging.Discard(),
	})
	require.NoError(t, err)

	requests := []domain.IntakeRequest{
		{Message: "Can I submit an expense report?", Source: "Slack"},
		{Message: "Reset my password", Source: "Email"},
	}
	for i, req := range requests {
		before, err := audit.Count(ctx)
		require.NoError(t, err)

		task, err := p.Process(ctx, req)
		require.NoError(t, err)
		assert.True(t, strings.Contains(task.TaskContent, "SFO EXPENSES"), "passage missing from task content")
		assert.Contains(t, task.TaskContent, req.Message)

		after, err := audit.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, before+1, after, "request %d must add exactly one audit record", i)

		latest, err := audit.Recent(ctx, 1)
		require.NoError(t, err)
		require.Len(t, latest, 1)
		assert.Equal(t, req.Message, latest[0].Input)
		assert.Equal(t, req.Source, latest[0].Source)
		assert.Equal(t, domain.ActionProcessed, latest[0].Action)
	}

	_, err = p.Process(ctx, domain.IntakeRequest{Message: "", Source: "Slack"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	count, err := audit.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, len(requests), count)
}
