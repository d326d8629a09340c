package parser

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"TaskIntake/internal/loader"
)

const blockSelector = "p, div, li, tr, h1, h2, h3, h4, h5, h6, pre, blockquote, section, article, header, footer"

// HTMLLoader extracts readable text from policy pages (intranet wiki, exported docs).
type HTMLLoader struct {
	client *http.Client
}

var _ loader.Loader = (*HTMLLoader)(nil)

// NewHTMLLoader wires an HTTP client used for URL documents.
func NewHTMLLoader(client *http.Client) *HTMLLoader {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTMLLoader{client: client}
}

// Name identifies the loader inside the registry.
func (h *HTMLLoader) Name() string {
	return "html"
}

// Extensions lists the file types handled by this loader.
func (h *HTMLLoader) Extensions() []string {
	return []string{".html", ".htm"}
}

// Load parses the page and returns its main content as newline-separated text.
func (h *HTMLLoader) Load(ctx context.Context, req loader.Request) (string, error) {
	rc, err := open(ctx, h.client, req)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	doc, err := goquery.NewDocumentFromReader(rc)
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}

	return extractText(doc), nil
}

func extractText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav").Remove()

	root := doc.Find("main").First()
	if root.Length() == 0 {
		root = doc.Find("article").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	root.Find("br").ReplaceWithHtml("\n")
	root.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	return collapseLines(root.Text())
}
