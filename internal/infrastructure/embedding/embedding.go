package embedding

import (
	"fmt"
	"log/slog"
	"strings"

	"TaskIntake/internal/config"
	"TaskIntake/internal/ports"
)

// Provider names accepted in configuration.
const (
	ProviderHashing = "hashing"
	ProviderOpenAI  = "openai"
)

// New selects the embedder named by cfg.Provider.
func New(cfg config.EmbeddingConfig, logger *slog.Logger) (ports.Embedder, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderHashing:
		return NewHashingEmbedder(cfg.Dimension), nil
	case ProviderOpenAI:
		e, err := NewOpenAIEmbedder(cfg, logger)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
