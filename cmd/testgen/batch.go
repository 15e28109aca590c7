package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/v0xg/testgen/internal/generator"
	"github.com/v0xg/testgen/internal/render"
)

// batchJob is one description file and where its code goes
type batchJob struct {
	input  string
	output string
}

func newBatchCmd() *cobra.Command {
	var (
		tmpl     templateFlags
		outDir   string
		ext      string
		jobs     int
		failFast bool
	)

	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Generate tests for every .txt and .md page description in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if jobs < 1 {
				return fmt.Errorf("--jobs must be at least 1")
			}
			if outDir == "" {
				outDir = args[0]
			}
			work, err := findJobs(args[0], outDir, ext)
			if err != nil {
				return err
			}
			if len(work) == 0 {
				return fmt.Errorf("no .txt or .md descriptions in %s", args[0])
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			gen, err := a.generator(cmd.Context())
			if err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(jobs)
			a.watchTemplates(ctx)

			opts := a.templateOptions(tmpl.ns, tmpl.baseURL, tmpl.template)
			progress := cmd.ErrOrStderr()
			var (
				mu     sync.Mutex
				failed []string
			)

			fmt.Fprintf(progress, "→ Generating %d test files via %s (%d at a time)\n", len(work), a.cfg.LLM.Provider, jobs)
			for _, job := range work {
				g.Go(func() error {
					err := runJob(ctx, gen, job, opts)

					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						a.log.Error("Batch job failed", zap.String("input", job.input), zap.Error(err))
						fmt.Fprintf(progress, "  ✗ %s: %s\n", job.input, explain(err))
						failed = append(failed, job.input)
						if failFast {
							return err
						}
						return nil
					}
					fmt.Fprintf(progress, "  ✓ %s → %s\n", job.input, job.output)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			if len(failed) > 0 {
				return fmt.Errorf("%d of %d descriptions failed", len(failed), len(work))
			}
			fmt.Fprintf(progress, "✓ Generated %d test files in %s\n", len(work), outDir)
			return nil
		},
	}

	tmpl.register(cmd)
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "Output directory (default: the input directory)")
	cmd.Flags().StringVar(&ext, "ext", ".cs", "Extension of generated files")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 4, "Descriptions processed concurrently")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "Stop at the first failed description")
	return cmd
}

// findJobs lists description files in dir, sorted by name. Inputs that would
// share an output file (login.txt and login.md) keep their source extension
// in the name; anything still colliding is an error.
func findJobs(dir, outDir, ext string) ([]batchJob, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".txt", ".md":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	stem := func(name string) string {
		return render.PascalCase(strings.TrimSuffix(name, filepath.Ext(name)))
	}
	// case-insensitive so the result is safe on macOS and Windows file systems
	claims := make(map[string]int)
	for _, name := range names {
		claims[strings.ToLower(stem(name))]++
	}

	work := make([]batchJob, 0, len(names))
	owner := make(map[string]string)
	for _, name := range names {
		base := stem(name)
		if claims[strings.ToLower(base)] > 1 {
			base = render.PascalCase(strings.TrimSuffix(name, filepath.Ext(name)) + " " + strings.TrimPrefix(filepath.Ext(name), "."))
		}
		output := filepath.Join(outDir, base+"Tests"+ext)

		key := strings.ToLower(output)
		if prev, ok := owner[key]; ok {
			return nil, fmt.Errorf("%s and %s both write %s", prev, name, filepath.Base(output))
		}
		owner[key] = name

		work = append(work, batchJob{
			input:  filepath.Join(dir, name),
			output: output,
		})
	}
	return work, nil
}

func runJob(ctx context.Context, gen *generator.Generator, job batchJob, opts render.TemplateOptions) error {
	desc, err := os.ReadFile(job.input)
	if err != nil {
		return fmt.Errorf("failed to read description: %w", err)
	}
	res, err := gen.Generate(ctx, generator.Request{
		PageDescription: string(desc),
		AdditionalContext: map[string]string{
			"Source file": filepath.Base(job.input),
		},
		Template: opts,
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(job.output, []byte(res.Code), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", job.output, err)
	}
	return nil
}
