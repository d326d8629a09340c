package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"TaskIntake/internal/domain"
	"TaskIntake/internal/logging"
	"TaskIntake/internal/ports"
)

var (
	ErrKnowledgeStoreRequired = errors.New("knowledge store is required")
	ErrAuditLogRequired       = errors.New("audit log is required")
	ErrClassifierRequired     = errors.New("classifier is required")
)

// IntakeDeps wires all driven adapters into the intake pipeline.
type IntakeDeps struct {
	Knowledge  ports.KnowledgeStore
	Classifier ports.Classifier
	AuditLog   ports.AuditLog
	Logger     *slog.Logger
}

// IntakePipeline retrieves the most relevant SOP for a task, classifies it,
// records an audit entry and returns the enriched task.
//
// A request moves Received -> Retrieved -> Classified -> Logged -> Completed
// and stops at the first failing stage. Audit failures are fail-closed: no
// task is returned unless its audit record was written. Retries belong to
// the caller.
type IntakePipeline struct {
	knowledge  ports.KnowledgeStore
	classifier ports.Classifier
	auditLog   ports.AuditLog
	logger     *slog.Logger
}

// NewIntakePipeline constructs the orchestration component.
func NewIntakePipeline(deps IntakeDeps) (*IntakePipeline, error) {
	if deps.Knowledge == nil {
		return nil, ErrKnowledgeStoreRequired
	}
	if deps.Classifier == nil {
		return nil, ErrClassifierRequired
	}
	if deps.AuditLog == nil {
		return nil, ErrAuditLogRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &IntakePipeline{
		knowledge:  deps.Knowledge,
		classifier: deps.Classifier,
		auditLog:   deps.AuditLog,
		logger:     logger,
	}, nil
}

// Process runs one request through the pipeline. Errors are *domain.StageError.
func (p *IntakePipeline) Process(ctx context.Context, req domain.IntakeRequest) (domain.EnrichedTask, error) {
	log := logging.FromContext(ctx, p.logger).With("source", req.Source)

	if err := validate(req); err != nil {
		log.Debug("request rejected", "stage", domain.StageValidation, "err", err)
		return domain.EnrichedTask{}, domain.NewStageError(domain.StageValidation, err)
	}
	log.Debug("request received", "length", len(req.Message))

	results, err := p.knowledge.Query(ctx, req.Message, 1)
	if err == nil && len(results) == 0 {
		err = domain.ErrNotFound
	}
	if err != nil {
		log.Error("retrieval failed", "err", err)
		return domain.EnrichedTask{}, domain.NewStageError(domain.StageRetrieval, err)
	}
	top := results[0]
	log.Debug("passage retrieved", "document", top.DocumentID, "score", top.Score)

	class := p.classifier.Classify(req.Message)
	log.Debug("request classified", "category", class.Category, "priority", class.Priority)

	record, err := p.auditLog.Append(ctx, domain.AuditEntry{
		Source: req.Source,
		Input:  req.Message,
		Action: domain.ActionProcessed,
	})
	if err != nil {
		log.Error("audit logging failed", "err", err)
		return domain.EnrichedTask{}, domain.NewStageError(domain.StageLogging, err)
	}
	log.Debug("request logged", "audit_id", record.ID)

	task := domain.EnrichedTask{
		TaskContent: ComposeTaskContent(req.Message, top.Passage),
		Category:    class.Category,
		Priority:    class.Priority,
	}

	log.Info("request processed",
		"audit_id", record.ID,
		"document", top.DocumentID,
		"category", task.Category,
		"priority", task.Priority,
	)
	return task, nil
}

// ComposeTaskContent renders the message and the supporting SOP as a labelled block.
func ComposeTaskContent(message, passage string) string {
	return fmt.Sprintf("Task: %s\n\nRelevant SOP:\n%s\n", message, passage)
}

func validate(req domain.IntakeRequest) error {
	if strings.TrimSpace(req.Message) == "" {
		return fmt.Errorf("%w: message must not be empty", domain.ErrValidation)
	}
	if strings.TrimSpace(req.Source) == "" {
		return fmt.Errorf("%w: source must not be empty", domain.ErrValidation)
	}
	return nil
}
