package parser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"TaskIntake/internal/loader"
)

const userAgent = "TaskIntake/1.0"

// open returns a reader over the request's URL or local path.
func open(ctx context.Context, client *http.Client, req loader.Request) (io.ReadCloser, error) {
	if req.URL != "" {
		return fetch(ctx, client, req.URL)
	}
	if req.Path == "" {
		return nil, fmt.Errorf("document has neither path nor url")
	}
	f, err := os.Open(req.Path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	return f, nil
}

func fetch(ctx context.Context, client *http.Client, url string) (io.ReadCloser, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%s returned %s", url, resp.Status)
	}

	return resp.Body, nil
}

// collapseLines trims every line, squeezes inner whitespace and drops blank lines.
func collapseLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
