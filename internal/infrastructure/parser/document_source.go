package parser

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"TaskIntake/internal/config"
	"TaskIntake/internal/domain"
	"TaskIntake/internal/loader"
	"TaskIntake/internal/ports"
)

// DefaultDocumentID is the id of the built-in SOP seeded when no documents are configured.
const DefaultDocumentID = "sfo_expense_sop"

//go:embed sop/sfo_expense_sop.txt
var defaultSOP string

// DefaultDocuments returns the built-in corpus.
func DefaultDocuments() []domain.Document {
	return []domain.Document{{ID: DefaultDocumentID, Text: strings.TrimSpace(defaultSOP)}}
}

// ConfigSource implements DocumentSource via registered loaders and config-defined documents.
type ConfigSource struct {
	registry *loader.Registry
	docs     []config.DocumentConfig
	logger   *slog.Logger
}

var _ ports.DocumentSource = (*ConfigSource)(nil)

// NewConfigSource wires the loader registry with config-defined documents.
func NewConfigSource(reg *loader.Registry, docs []config.DocumentConfig, log *slog.Logger) *ConfigSource {
	return &ConfigSource{
		registry: reg,
		docs:     docs,
		logger:   log,
	}
}

// Documents loads every configured document, or the built-in SOP when none are configured.
func (s *ConfigSource) Documents(ctx context.Context) ([]domain.Document, error) {
	if len(s.docs) == 0 {
		s.debug("no documents configured, using built-in sop", "id", DefaultDocumentID)
		return DefaultDocuments(), nil
	}

	result := make([]domain.Document, 0, len(s.docs))
	for i, dc := range s.docs {
		id := strings.TrimSpace(dc.ID)
		if id == "" {
			return nil, fmt.Errorf("document %d: id is required", i)
		}

		text, err := s.load(ctx, dc)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", id, err)
		}
		if text == "" {
			return nil, fmt.Errorf("document %s: empty text", id)
		}

		s.debug("document loaded", "id", id, "length", len(text))
		result = append(result, domain.Document{ID: id, Text: text})
	}

	return result, nil
}

func (s *ConfigSource) load(ctx context.Context, dc config.DocumentConfig) (string, error) {
	switch {
	case strings.TrimSpace(dc.Text) != "":
		return strings.TrimSpace(dc.Text), nil
	case dc.Path != "":
		l, err := s.resolve(dc.Path)
		if err != nil {
			return "", err
		}
		return l.Load(ctx, loader.Request{Path: dc.Path})
	case dc.URL != "":
		l, err := s.resolveURL(dc.URL)
		if err != nil {
			return "", err
		}
		return l.Load(ctx, loader.Request{URL: dc.URL})
	default:
		return "", fmt.Errorf("one of text, path or url is required")
	}
}

func (s *ConfigSource) resolve(path string) (loader.Loader, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("loader registry is not configured")
	}
	return s.registry.ForPath(path)
}

// resolveURL matches on the URL path extension and treats anything else as a web page.
func (s *ConfigSource) resolveURL(raw string) (loader.Loader, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("loader registry is not configured")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url %s: %w", raw, err)
	}
	if l, err := s.registry.ForPath(parsed.Path); err == nil {
		return l, nil
	}
	return s.registry.Resolve("html")
}

func (s *ConfigSource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

// NewDefaultRegistry registers the text and HTML loaders.
func NewDefaultRegistry() *loader.Registry {
	reg := loader.NewRegistry()
	reg.Register(NewTextLoader(nil))
	reg.Register(NewHTMLLoader(nil))
	return reg
}
