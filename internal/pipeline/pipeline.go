// Package pipeline drives a language model through the three dependent
// extraction stages that turn a page description into a TestStructure.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/v0xg/testgen/internal/ai"
	"github.com/v0xg/testgen/internal/model"
	"github.com/v0xg/testgen/internal/prompts"
)

// ErrNoCompletion is returned when the model produced no text for a stage
var ErrNoCompletion = errors.New("did not receive response from AI")

// Stage identifies one step of the extraction pipeline
type Stage int

const (
	StageElements Stage = iota + 1
	StageTasks
	StageStructure
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageElements:
		return "elements"
	case StageTasks:
		return "tasks"
	case StageStructure:
		return "structure"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// StageError reports a fatal failure in one stage
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Pipeline extracts a test structure from a free-text page description
type Pipeline struct {
	chat    ai.Chat
	prompts prompts.Loader
	log     *zap.Logger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the pipeline logger
func WithLogger(log *zap.Logger) Option {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

// New creates a pipeline over a chat capability and a prompt loader
func New(chat ai.Chat, loader prompts.Loader, opts ...Option) *Pipeline {
	p := &Pipeline{
		chat:    chat,
		prompts: loader,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs the element, task and structure stages in order.
// Malformed model output degrades to empty results; a missing completion,
// a transport error or a cancelled context stops the pipeline.
func (p *Pipeline) Process(ctx context.Context, description string) (*model.TestStructure, error) {
	r := &run{
		p:           p,
		stage:       StageElements,
		description: description,
	}
	for r.stage != StageDone {
		if err := ctx.Err(); err != nil {
			return nil, &StageError{Stage: r.stage, Err: err}
		}
		if err := r.advance(ctx); err != nil {
			return nil, err
		}
	}
	return r.result, nil
}

// run holds the state of one Process invocation. Each stage reads the typed
// output of the stages before it and writes its own.
type run struct {
	p           *Pipeline
	stage       Stage
	description string

	elements []model.PageElement
	tasks    []model.UserTask
	result   *model.TestStructure
}

func (r *run) advance(ctx context.Context) error {
	log := r.p.log.With(zap.Stringer("stage", r.stage))
	log.Debug("Stage started")

	switch r.stage {
	case StageElements:
		content, err := r.complete(ctx, prompts.ElementExtraction, r.description)
		if err != nil {
			return err
		}
		elements, err := parseElements(content)
		if err != nil {
			log.Warn("Could not decode elements, continuing with none", zap.Error(err))
			elements = []model.PageElement{}
		}
		r.elements = elements
		log.Debug("Stage finished", zap.Int("elements", len(r.elements)))
		r.stage = StageTasks

	case StageTasks:
		user, err := taskContext(r.description, r.elements)
		if err != nil {
			return &StageError{Stage: r.stage, Err: err}
		}
		content, err := r.complete(ctx, prompts.TaskExtraction, user)
		if err != nil {
			return err
		}
		tasks, err := parseTasks(content)
		if err != nil {
			log.Warn("Could not decode tasks, continuing with none", zap.Error(err))
			tasks = []model.UserTask{}
		}
		r.tasks = tasks
		log.Debug("Stage finished", zap.Int("tasks", len(r.tasks)))
		r.stage = StageStructure

	case StageStructure:
		user, err := structureContext(r.description, r.elements, r.tasks)
		if err != nil {
			return &StageError{Stage: r.stage, Err: err}
		}
		content, err := r.complete(ctx, prompts.TestStructureGeneration, user)
		if err != nil {
			return err
		}
		structure, err := parseStructure(content)
		if err != nil {
			log.Warn("Could not decode test structure, keeping elements and tasks only", zap.Error(err))
			structure = &model.TestStructure{}
		}
		// Stage 1 and 2 results are authoritative over anything stage 3 returned
		structure.Elements = r.elements
		structure.Tasks = r.tasks
		structure.Normalize()
		r.result = structure
		log.Debug("Stage finished",
			zap.String("page", structure.PageName),
			zap.Int("testCases", len(structure.TestCases)))
		r.stage = StageDone

	default:
		return &StageError{Stage: r.stage, Err: errors.New("unknown stage")}
	}
	return nil
}

// complete sends [system prompt, user content] and returns the completion text
func (r *run) complete(ctx context.Context, promptName, user string) (string, error) {
	system, err := r.p.prompts.Load(promptName)
	if err != nil {
		return "", &StageError{Stage: r.stage, Err: fmt.Errorf("failed to load prompt: %w", err)}
	}

	completion, err := r.p.chat.Complete(ctx, []ai.Message{
		{Role: ai.RoleSystem, Content: system},
		{Role: ai.RoleUser, Content: user},
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", &StageError{Stage: r.stage, Err: ctxErr}
		}
		return "", &StageError{Stage: r.stage, Err: err}
	}
	if completion == nil || strings.TrimSpace(completion.Text) == "" {
		return "", &StageError{Stage: r.stage, Err: ErrNoCompletion}
	}
	return completion.Text, nil
}

func taskContext(description string, elements []model.PageElement) (string, error) {
	elementsJSON, err := json.MarshalIndent(elements, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal elements: %w", err)
	}
	return "Page Description:\n" + description + "\n\nAvailable Elements:\n" + string(elementsJSON), nil
}

func structureContext(description string, elements []model.PageElement, tasks []model.UserTask) (string, error) {
	base, err := taskContext(description, elements)
	if err != nil {
		return "", err
	}
	tasksJSON, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal tasks: %w", err)
	}
	return base + "\n\nAvailable Tasks:\n" + string(tasksJSON), nil
}
