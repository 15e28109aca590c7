// Package generator turns page descriptions into Playwright test code by
// running the extraction pipeline and rendering its result.
package generator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/v0xg/testgen/internal/model"
	"github.com/v0xg/testgen/internal/pipeline"
	"github.com/v0xg/testgen/internal/render"
)

// Request is one generation job
type Request struct {
	PageDescription string
	// AdditionalContext is appended to the description as key/value lines
	AdditionalContext map[string]string
	Template          render.TemplateOptions
}

// Result is the output of a successful Generate
type Result struct {
	ID        string
	Structure *model.TestStructure
	Code      string
}

// Generator wires the pipeline to the template engine. Requests may run
// concurrently; only the prompt and template caches are shared.
type Generator struct {
	pipeline *pipeline.Pipeline
	engine   *render.Engine
	log      *zap.Logger
}

// New creates a generator
func New(p *pipeline.Pipeline, engine *render.Engine, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{pipeline: p, engine: engine, log: log}
}

// Generate extracts a test structure from req and renders it
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	res, err := g.Extract(ctx, req)
	if err != nil {
		return nil, err
	}
	log := g.log.With(zap.String("request_id", res.ID))

	code, err := g.engine.Render(res.Structure, req.Template)
	if err != nil {
		return nil, err
	}
	res.Code = code

	log.Info("Generated test code",
		zap.String("page", res.Structure.PageName),
		zap.Int("test_cases", len(res.Structure.TestCases)))
	return res, nil
}

// Extract runs only the pipeline. The returned result has no Code.
func (g *Generator) Extract(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.PageDescription) == "" {
		return nil, errors.New("page description is empty")
	}

	id := uuid.NewString()
	log := g.log.With(zap.String("request_id", id))
	log.Info("Extracting test structure", zap.Int("description_len", len(req.PageDescription)))

	structure, err := g.pipeline.Process(ctx, Describe(req))
	if err != nil {
		log.Error("Extraction failed", zap.Error(err))
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	log.Debug("Extracted test structure",
		zap.Int("elements", len(structure.Elements)),
		zap.Int("tasks", len(structure.Tasks)))
	return &Result{ID: id, Structure: structure}, nil
}

// Describe returns the description sent to the pipeline for req
func Describe(req Request) string {
	if len(req.AdditionalContext) == 0 {
		return req.PageDescription
	}

	keys := make([]string, 0, len(req.AdditionalContext))
	for k := range req.AdditionalContext {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(strings.TrimRight(req.PageDescription, "\n"))
	sb.WriteString("\n\nAdditional Context:\n")
	for _, k := range keys {
		fmt.Fprintf(&sb, "- %s: %s\n", k, req.AdditionalContext[k])
	}
	return sb.String()
}
