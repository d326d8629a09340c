package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Request identifies where a document's text lives: a local path or a URL.
type Request struct {
	Path string
	URL  string
}

// Loader extracts plain text from one document format (text, HTML, etc.).
type Loader interface {
	Name() string
	Extensions() []string
	Load(ctx context.Context, req Request) (string, error)
}

// Registry keeps a mapping from loader names and file extensions to implementations.
type Registry struct {
	loaders    map[string]Loader
	extensions map[string]string
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{loaders: map[string]Loader{}, extensions: map[string]string{}}
}

// Register adds or replaces a loader implementation and claims its extensions.
func (r *Registry) Register(l Loader) {
	if r.loaders == nil {
		r.loaders = map[string]Loader{}
	}
	if r.extensions == nil {
		r.extensions = map[string]string{}
	}
	r.loaders[l.Name()] = l
	for _, ext := range l.Extensions() {
		r.extensions[normalizeExt(ext)] = l.Name()
	}
}

// Resolve returns a loader by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Loader, error) {
	if l, ok := r.loaders[name]; ok {
		return l, nil
	}
	return nil, fmt.Errorf("loader %s is not registered", name)
}

// ForPath picks the loader registered for the path's extension.
func (r *Registry) ForPath(path string) (Loader, error) {
	ext := normalizeExt(filepath.Ext(path))
	if ext == "" {
		return nil, fmt.Errorf("%s: no file extension", path)
	}
	name, ok := r.extensions[ext]
	if !ok {
		return nil, fmt.Errorf("%s: no loader for extension %s", path, ext)
	}
	return r.Resolve(name)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
