package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/v0xg/testgen/internal/ai"
	"github.com/v0xg/testgen/internal/config"
	"github.com/v0xg/testgen/internal/generator"
	"github.com/v0xg/testgen/internal/logging"
	"github.com/v0xg/testgen/internal/pipeline"
	"github.com/v0xg/testgen/internal/prompts"
	"github.com/v0xg/testgen/internal/render"
)

var (
	configPath    string
	verbose       bool
	provider      string
	modelName     string
	templatesPath string
	promptsPath   string
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", explain(err))
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "testgen",
		Short: "Generate Playwright tests from page descriptions using AI",
		Long: `testgen asks a language model to extract the interactive elements, user
tasks and test cases of a web page from a free-text description, then renders
them into Playwright test code through a template.

Example:
  testgen generate "A login page with email and password fields and a Sign In button" -o LoginTests.cs
  testgen generate --url https://myapp.com/login --ns MyApp.Tests`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Show detailed progress")
	flags.StringVar(&provider, "provider", "", "AI provider: ollama, claude, openai, gemini (default: from config)")
	flags.StringVar(&modelName, "model", "", "Specific model override")
	flags.StringVar(&templatesPath, "templates", "", "Templates directory (default: bundled templates)")
	flags.StringVar(&promptsPath, "prompts", "", "Prompts directory (default: bundled prompts)")

	rootCmd.AddCommand(
		newGenerateCmd(),
		newStructureCmd(),
		newRenderCmd(),
		newBatchCmd(),
		newDescribeCmd(),
	)
	return rootCmd
}

// app holds what every command builds from config and flags
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	engine *render.Engine
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if provider != "" {
		cfg.LLM.Provider = provider
	}
	if modelName != "" {
		cfg.LLM.Model = modelName
	}
	if templatesPath != "" {
		cfg.Templates.Path = templatesPath
	}
	if promptsPath != "" {
		cfg.Prompts.Path = promptsPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Development, verbose)
	if err != nil {
		return nil, err
	}

	opts := render.Options{
		TemplatesPath:    cfg.Templates.Path,
		UseCache:         cfg.Templates.UseCache,
		DefaultNamespace: cfg.Templates.Defaults.Namespace,
		DefaultBaseURL:   cfg.Templates.Defaults.BaseURL,
	}
	if opts.TemplatesPath == "" {
		opts.FS = render.DefaultTemplates()
	}
	engine, err := render.New(opts, render.WithLogger(log.Named("render")))
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, log: log, engine: engine}, nil
}

// generator connects to the configured provider and wires the pipeline
func (a *app) generator(ctx context.Context) (*generator.Generator, error) {
	chat, err := ai.NewProvider(ctx, a.cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("AI provider init failed: %w", err)
	}

	var loader prompts.Loader
	if a.cfg.Prompts.Path != "" {
		loader = prompts.NewFileLoader(a.cfg.Prompts.Path, a.log.Named("prompts"))
	} else {
		loader = prompts.Default(a.log.Named("prompts"))
	}

	p := pipeline.New(chat, loader, pipeline.WithLogger(a.log.Named("pipeline")))
	return generator.New(p, a.engine, a.log.Named("generator")), nil
}

// watchTemplates reloads changed templates for the lifetime of ctx when enabled
func (a *app) watchTemplates(ctx context.Context) {
	if !a.cfg.Templates.Watch {
		return
	}
	if err := a.engine.Watch(ctx); err != nil {
		a.log.Warn("Template watching disabled", zap.Error(err))
	}
}

func (a *app) templateOptions(ns, baseURL, tmpl string) render.TemplateOptions {
	if tmpl == "" {
		tmpl = a.cfg.Templates.Template
	}
	return render.TemplateOptions{
		Namespace:    ns,
		BaseURL:      baseURL,
		TemplatePath: tmpl,
	}
}

func (a *app) close() {
	_ = a.log.Sync()
}

// explain turns failure classes into messages a user can act on
func explain(err error) string {
	switch {
	case errors.Is(err, render.ErrTemplateNotFound):
		return fmt.Sprintf("template not found (check --templates and --template): %v", err)
	case errors.Is(err, render.ErrTemplateRender):
		return fmt.Sprintf("template failed to compile or render: %v", err)
	case errors.Is(err, render.ErrTemplateConfiguration):
		return fmt.Sprintf("template engine is misconfigured: %v", err)
	case errors.Is(err, render.ErrTestGeneration):
		return fmt.Sprintf("test generation failed: %v", err)
	case errors.Is(err, pipeline.ErrNoCompletion):
		return fmt.Sprintf("the model returned no completion: %v", err)
	case errors.Is(err, prompts.ErrPromptNotFound):
		return fmt.Sprintf("system prompt missing (check --prompts): %v", err)
	case errors.Is(err, context.Canceled):
		return "interrupted"
	}
	return err.Error()
}
