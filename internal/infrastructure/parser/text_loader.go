package parser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"TaskIntake/internal/loader"
)

// TextLoader reads plain-text and markdown SOPs verbatim.
type TextLoader struct {
	client *http.Client
}

var _ loader.Loader = (*TextLoader)(nil)

// NewTextLoader wires an HTTP client used for URL documents.
func NewTextLoader(client *http.Client) *TextLoader {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &TextLoader{client: client}
}

// Name identifies the loader inside the registry.
func (t *TextLoader) Name() string {
	return "text"
}

// Extensions lists the file types handled by this loader.
func (t *TextLoader) Extensions() []string {
	return []string{".txt", ".md", ".markdown"}
}

// Load returns the document body with surrounding whitespace removed.
func (t *TextLoader) Load(ctx context.Context, req loader.Request) (string, error) {
	rc, err := open(ctx, t.client, req)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
