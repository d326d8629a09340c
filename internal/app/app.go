package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"TaskIntake/internal/classifier"
	"TaskIntake/internal/config"
	"TaskIntake/internal/domain"
	"TaskIntake/internal/infrastructure/embedding"
	"TaskIntake/internal/infrastructure/knowledge"
	"TaskIntake/internal/infrastructure/parser"
	"TaskIntake/internal/infrastructure/storage"
	"TaskIntake/internal/logging"
	"TaskIntake/internal/transport/httpapi"
	"TaskIntake/internal/usecase"
)

// Application wires configs to use cases and owns the lifetime of their resources.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	db       *sql.DB
	audit    *storage.AuditRepository
	store    *knowledge.MemoryStore
	pipeline *usecase.IntakePipeline
}

// New connects the audit store, ensures its schema, seeds the knowledge base
// and builds the intake pipeline. Call Close to release the connections.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	a := &Application{cfg: cfg, logger: baseLogger}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *Application) init(ctx context.Context) error {
	cls, err := buildClassifier(a.cfg.Classification)
	if err != nil {
		return fmt.Errorf("classifier: %w", err)
	}

	db, dialect, err := storage.Open(ctx, a.cfg.Database)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	a.db = db
	a.audit = storage.NewAuditRepository(db, dialect)
	if err := a.audit.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	embedder, err := embedding.New(a.cfg.Embedding, a.logger.With("component", "embedding"))
	if err != nil {
		return fmt.Errorf("embedding: %w", err)
	}

	a.store, err = knowledge.NewMemoryStore(embedder,
		knowledge.WithLogger(a.logger.With("component", "knowledge")),
		knowledge.WithWorkers(a.cfg.Knowledge.SeedWorkers),
	)
	if err != nil {
		return fmt.Errorf("knowledge store: %w", err)
	}

	source := parser.NewConfigSource(parser.NewDefaultRegistry(), a.cfg.Knowledge.Documents, a.logger.With("component", "source"))
	docs, err := source.Documents(ctx)
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}
	if err := a.store.Seed(ctx, docs); err != nil {
		return fmt.Errorf("seed knowledge: %w", err)
	}

	a.pipeline, err = usecase.NewIntakePipeline(usecase.IntakeDeps{
		Knowledge:  a.store,
		Classifier: cls,
		AuditLog:   a.audit,
		Logger:     a.logger.With("component", "pipeline"),
	})
	return err
}

func buildClassifier(cfg config.ClassificationConfig) (*classifier.KeywordClassifier, error) {
	if len(cfg.Rules) == 0 && cfg.Fallback.Category == "" {
		return classifier.NewDefault(), nil
	}

	rules := classifier.DefaultRules()
	if len(cfg.Rules) > 0 {
		rules = make([]classifier.Rule, 0, len(cfg.Rules))
		for _, rc := range cfg.Rules {
			rules = append(rules, classifier.Rule{
				Keyword:  rc.Keyword,
				Category: domain.Category(rc.Category),
				Priority: rc.Priority,
			})
		}
	}

	fallback := classifier.DefaultFallback()
	if cfg.Fallback.Category != "" {
		fallback = domain.Classification{Category: domain.Category(cfg.Fallback.Category), Priority: cfg.Fallback.Priority}
	}

	return classifier.New(rules, fallback)
}

// Pipeline exposes the intake use case.
func (a *Application) Pipeline() *usecase.IntakePipeline {
	return a.pipeline
}

// Audit exposes read access to the audit log.
func (a *Application) Audit() *storage.AuditRepository {
	return a.audit
}

// Run serves the HTTP API until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if a.pipeline == nil {
		return errors.New("application is not initialized")
	}
	server := httpapi.NewServer(a.pipeline, a.cfg.HTTP.Addr, a.logger.With("component", "http"))
	return server.Start(ctx)
}

// Close releases the embedding pool and the database connection.
func (a *Application) Close() error {
	if a.store != nil {
		a.store.Close()
	}
	if a.db != nil {
		err := a.db.Close()
		a.db = nil
		return err
	}
	return nil
}
