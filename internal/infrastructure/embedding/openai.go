package embedding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"TaskIntake/internal/config"
	"TaskIntake/internal/ports"
)

// OpenAIEmbedder calls any OpenAI-compatible embedding endpoint (OpenAI, Ollama, vLLM).
type OpenAIEmbedder struct {
	embedder embeddings.Embedder
	logger   *slog.Logger
}

var _ ports.Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder wires a langchaingo embedder from configuration.
func NewOpenAIEmbedder(cfg config.EmbeddingConfig, logger *slog.Logger) (*OpenAIEmbedder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	token := cfg.Token
	if token == "" {
		// local OpenAI-compatible services accept any token
		token = "none"
	}

	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.Host != "" {
		opts = append(opts, openai.WithBaseURL(cfg.Host))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("new openai client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("new embedder: %w", err)
	}

	return &OpenAIEmbedder{embedder: embedder, logger: logger}, nil
}

// EmbedQuery embeds a single query string.
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		e.logger.Error("embed query failed", "length", len(text), "err", err)
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vector, nil
}

// EmbedDocuments embeds a batch of texts.
func (e *OpenAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("embedding documents", "count", len(texts))
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("embed documents failed", "count", len(texts), "err", err)
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding result mismatch: expected %d, received %d", len(texts), len(vectors))
	}
	return vectors, nil
}
