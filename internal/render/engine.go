// Package render turns a TestStructure into test source code using
// text/template files with Playwright-specific helpers.
package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/v0xg/testgen/internal/model"
)

// Generator identifies this tool in generated files
const Generator = "Playwright Test Generator"

const (
	defaultNamespace = "PlaywrightTests"
	defaultBaseURL   = "http://localhost"
)

// DefaultTemplate is the identifier of the bundled C# NUnit template
const DefaultTemplate = "CSTest.tmpl"

//go:embed templates/*.tmpl
var bundled embed.FS

// DefaultTemplates returns the templates shipped with the binary
func DefaultTemplates() fs.FS {
	sub, err := fs.Sub(bundled, "templates")
	if err != nil {
		panic(err) // embedded directory is fixed at compile time
	}
	return sub
}

// Options configures an Engine
type Options struct {
	// TemplatesPath is the templates root. Template identifiers are resolved
	// relative to it and the joined path keys the compilation cache.
	TemplatesPath string
	// FS overrides where template sources are read from. When nil the
	// engine reads from os.DirFS(TemplatesPath).
	FS fs.FS
	// UseCache keeps compiled templates for the lifetime of the engine
	UseCache bool

	DefaultNamespace string
	DefaultBaseURL   string

	// Helpers are registered next to the built-in helpers and may replace them
	Helpers template.FuncMap
}

// TemplateOptions are the per-request render settings
type TemplateOptions struct {
	Namespace    string `json:"ns,omitempty"`
	BaseURL      string `json:"baseUrl,omitempty"`
	TemplatePath string `json:"templatePath"`
}

// Engine compiles, caches and executes code-generation templates.
// It is safe for concurrent use.
type Engine struct {
	opts   Options
	fsys   fs.FS
	onDisk bool
	funcs  template.FuncMap
	log    *zap.Logger
	now    func() time.Time

	mu    sync.RWMutex
	cache map[string]*template.Template
}

// Option configures optional engine collaborators
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithClock sets the source of the generation timestamp
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an engine and registers its helpers. A helper that cannot be
// registered makes the engine unusable and is reported as ErrTemplateConfiguration.
func New(opts Options, options ...Option) (*Engine, error) {
	e := &Engine{
		opts:  opts,
		fsys:  opts.FS,
		log:   zap.NewNop(),
		now:   time.Now,
		cache: make(map[string]*template.Template),
	}
	for _, opt := range options {
		opt(e)
	}

	if e.opts.DefaultNamespace == "" {
		e.opts.DefaultNamespace = defaultNamespace
	}
	if e.opts.DefaultBaseURL == "" {
		e.opts.DefaultBaseURL = defaultBaseURL
	}

	if e.fsys == nil {
		if opts.TemplatesPath == "" {
			return nil, fmt.Errorf("%w: templates path or file system required", ErrTemplateConfiguration)
		}
		e.fsys = os.DirFS(opts.TemplatesPath)
		e.onDisk = true
	}

	funcs := builtinHelpers()
	for name, fn := range opts.Helpers {
		funcs[name] = fn
	}
	if err := checkHelpers(funcs); err != nil {
		e.log.Error("Failed to register template helpers", zap.Error(err))
		return nil, fmt.Errorf("%w: failed to register template helpers: %w", ErrTemplateConfiguration, err)
	}
	e.funcs = funcs
	e.log.Info("Registered template helpers", zap.Int("count", len(funcs)))

	return e, nil
}

// checkHelpers installs funcs on a scratch template; text/template panics on
// names that are not identifiers and on values that are not usable functions.
func checkHelpers(funcs template.FuncMap) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	template.New("helpers").Funcs(funcs)
	return nil
}

// Render executes the template named by opts.TemplatePath against structure
func (e *Engine) Render(structure *model.TestStructure, opts TemplateOptions) (string, error) {
	if structure == nil {
		return "", e.fail(e.log, errors.New("nil test structure"))
	}

	log := e.log.With(zap.String("page", structure.PageName), zap.String("template", opts.TemplatePath))
	log.Info("Starting test code generation")

	tmpl, err := e.template(opts.TemplatePath)
	if err != nil {
		return "", e.fail(log, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, e.data(structure, opts)); err != nil {
		return "", e.fail(log, fmt.Errorf("%w: %w", ErrTemplateRender, err))
	}

	log.Info("Successfully generated test code", zap.Int("bytes", buf.Len()))
	return buf.String(), nil
}

// fail logs err by class and wraps anything unclassified as ErrTestGeneration
func (e *Engine) fail(log *zap.Logger, err error) error {
	switch {
	case errors.Is(err, ErrTemplateNotFound):
		log.Error("Template file not found", zap.Error(err))
	case errors.Is(err, ErrTemplateRender):
		log.Error("Error compiling or rendering template", zap.Error(err))
	default:
		log.Error("Unexpected error during test generation", zap.Error(err))
		err = fmt.Errorf("%w: %w", ErrTestGeneration, err)
	}
	return err
}

// LookupKey returns the cache key for a template identifier
func (e *Engine) LookupKey(templatePath string) string {
	return filepath.Join(e.opts.TemplatesPath, filepath.FromSlash(path.Clean(filepath.ToSlash(templatePath))))
}

func (e *Engine) template(templatePath string) (*template.Template, error) {
	key := e.LookupKey(templatePath)

	if e.opts.UseCache {
		e.mu.RLock()
		cached, ok := e.cache[key]
		e.mu.RUnlock()
		if ok {
			return cached, nil
		}
	}

	name := path.Clean(filepath.ToSlash(templatePath))
	if templatePath == "" || !fs.ValidPath(name) {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, key)
	}

	src, err := fs.ReadFile(e.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, key)
		}
		return nil, fmt.Errorf("failed to read template %s: %w", key, err)
	}

	tmpl, err := template.New(path.Base(name)).
		Option("missingkey=error").
		Funcs(e.funcs).
		Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTemplateRender, key, err)
	}
	e.log.Debug("Compiled template", zap.String("key", key))

	if e.opts.UseCache {
		e.mu.Lock()
		e.cache[key] = tmpl
		e.mu.Unlock()
	}
	return tmpl, nil
}

// data builds the template context; request values win over engine defaults
func (e *Engine) data(structure *model.TestStructure, opts TemplateOptions) map[string]any {
	ns := opts.Namespace
	if ns == "" {
		ns = e.opts.DefaultNamespace
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = e.opts.DefaultBaseURL
	}

	return map[string]any{
		"ns":        ns,
		"baseUrl":   baseURL,
		"pageName":  structure.PageName,
		"elements":  structure.Elements,
		"tasks":     structure.Tasks,
		"testCases": structure.TestCases,
		"timestamp": e.now().UTC(),
		"generator": Generator,
	}
}

// Invalidate drops the compiled template stored under key
func (e *Engine) Invalidate(key string) {
	key = filepath.Clean(key)
	e.mu.Lock()
	_, ok := e.cache[key]
	delete(e.cache, key)
	e.mu.Unlock()
	if ok {
		e.log.Debug("Invalidated template", zap.String("key", key))
	}
}

// Reset drops every compiled template
func (e *Engine) Reset() {
	e.mu.Lock()
	e.cache = make(map[string]*template.Template)
	e.mu.Unlock()
}
