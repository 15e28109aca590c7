// Package prompts resolves named system prompts from markdown files.
package prompts

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sync"

	"go.uber.org/zap"
)

// Names of the prompts used by the extraction pipeline
const (
	ElementExtraction       = "ElementExtraction"
	TaskExtraction          = "TaskExtraction"
	TestStructureGeneration = "TestStructureGeneration"
)

// ErrPromptNotFound is returned when no file exists for a prompt name
var ErrPromptNotFound = errors.New("prompt not found")

//go:embed defaults/*.md
var defaults embed.FS

// Loader resolves a prompt name to its text
type Loader interface {
	Load(name string) (string, error)
}

// FileLoader reads {name}.md files from a file system and memoizes them.
// Successful loads are kept for the lifetime of the loader; failures are not
// cached, so a prompt that appears later can still be loaded.
type FileLoader struct {
	fsys   fs.FS
	origin string
	log    *zap.Logger

	mu    sync.RWMutex
	cache map[string]string
}

// NewFileLoader creates a loader over the prompts directory dir
func NewFileLoader(dir string, log *zap.Logger) *FileLoader {
	return NewFSLoader(os.DirFS(dir), dir, log)
}

// NewFSLoader creates a loader over fsys; origin is used in error messages
func NewFSLoader(fsys fs.FS, origin string, log *zap.Logger) *FileLoader {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileLoader{
		fsys:   fsys,
		origin: origin,
		log:    log,
		cache:  make(map[string]string),
	}
}

// Default returns a loader over the prompts shipped with the binary
func Default(log *zap.Logger) *FileLoader {
	sub, err := fs.Sub(defaults, "defaults")
	if err != nil {
		panic(err) // embedded directory is fixed at compile time
	}
	return NewFSLoader(sub, "embedded", log)
}

// Load returns the text of the named prompt
func (l *FileLoader) Load(name string) (string, error) {
	l.mu.RLock()
	cached, ok := l.cache[name]
	l.mu.RUnlock()
	if ok {
		return cached, nil
	}

	file := name + ".md"
	if !fs.ValidPath(file) {
		return "", fmt.Errorf("%w: invalid name %q", ErrPromptNotFound, name)
	}

	data, err := fs.ReadFile(l.fsys, file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.log.Error("Prompt file not found", zap.String("path", path.Join(l.origin, file)))
			return "", fmt.Errorf("%w: %s", ErrPromptNotFound, path.Join(l.origin, file))
		}
		return "", fmt.Errorf("failed to read prompt %s: %w", name, err)
	}

	content := string(data)
	l.mu.Lock()
	l.cache[name] = content
	l.mu.Unlock()

	l.log.Debug("Loaded prompt", zap.String("name", name), zap.Int("bytes", len(content)))
	return content, nil
}
