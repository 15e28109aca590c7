package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/v0xg/testgen/internal/describe"
	"github.com/v0xg/testgen/internal/generator"
	"github.com/v0xg/testgen/internal/model"
)

// inputFlags select where a page description comes from
type inputFlags struct {
	file    string
	url     string
	profile string
	context map[string]string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Read the page description from a file (- for stdin)")
	cmd.Flags().StringVar(&f.url, "url", "", "Capture the page description from a live URL")
	cmd.Flags().StringVar(&f.profile, "profile", "", "Chrome/Chromium profile directory for authenticated captures (close browser first)")
	cmd.Flags().StringToStringVar(&f.context, "context", nil, "Additional context as key=value pairs")
}

// description resolves exactly one of the argument, --file and --url
func (f *inputFlags) description(ctx context.Context, a *app, args []string, out io.Writer) (string, error) {
	sources := 0
	for _, set := range []bool{len(args) > 0, f.file != "", f.url != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return "", errors.New("provide exactly one of a description argument, --file or --url")
	}

	switch {
	case f.file == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	case f.file != "":
		data, err := os.ReadFile(f.file)
		if err != nil {
			return "", fmt.Errorf("failed to read description: %w", err)
		}
		return string(data), nil
	case f.url != "":
		fmt.Fprintf(out, "→ Capturing %s... ", f.url)
		pm, err := describe.Capture(ctx, f.url, describe.Options{
			ProfileDir: f.profile,
			Logger:     a.log.Named("describe"),
		})
		if err != nil {
			fmt.Fprintln(out, "failed")
			return "", fmt.Errorf("capture failed: %w", err)
		}
		fmt.Fprintf(out, "done (found %d interactive elements)\n", len(pm.Elements))
		return pm.Describe(), nil
	}
	return args[0], nil
}

// templateFlags are the per-request render settings
type templateFlags struct {
	ns       string
	baseURL  string
	template string
}

func (f *templateFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.ns, "ns", "", "Namespace of the generated tests (default: from config)")
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "Base URL of the application under test (default: from config)")
	cmd.Flags().StringVarP(&f.template, "template", "t", "", "Template identifier relative to the templates directory")
}

func newGenerateCmd() *cobra.Command {
	var (
		in        inputFlags
		tmpl      templateFlags
		output    string
		structure string
	)

	cmd := &cobra.Command{
		Use:   "generate [description]",
		Short: "Generate Playwright test code for a page",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			ctx := cmd.Context()
			progress := cmd.ErrOrStderr()

			desc, err := in.description(ctx, a, args, progress)
			if err != nil {
				return err
			}
			gen, err := a.generator(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(progress, "→ Generating tests via %s... ", a.cfg.LLM.Provider)
			res, err := gen.Generate(ctx, generator.Request{
				PageDescription:   desc,
				AdditionalContext: in.context,
				Template:          a.templateOptions(tmpl.ns, tmpl.baseURL, tmpl.template),
			})
			if err != nil {
				fmt.Fprintln(progress, "failed")
				return err
			}
			fmt.Fprintf(progress, "done (%d elements, %d tasks, %d test cases)\n",
				len(res.Structure.Elements), len(res.Structure.Tasks), len(res.Structure.TestCases))

			if structure != "" {
				if err := writeJSON(structure, res.Structure); err != nil {
					return err
				}
			}
			return writeOutput(cmd, output, res.Code)
		},
	}

	in.register(cmd)
	tmpl.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&structure, "save-structure", "", "Also write the extracted test structure as JSON")
	return cmd
}

func newStructureCmd() *cobra.Command {
	var (
		in     inputFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "structure [description]",
		Short: "Extract the test structure of a page as JSON without rendering code",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			ctx := cmd.Context()
			progress := cmd.ErrOrStderr()

			desc, err := in.description(ctx, a, args, progress)
			if err != nil {
				return err
			}
			gen, err := a.generator(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(progress, "→ Extracting test structure via %s... ", a.cfg.LLM.Provider)
			res, err := gen.Extract(ctx, generator.Request{
				PageDescription:   desc,
				AdditionalContext: in.context,
			})
			if err != nil {
				fmt.Fprintln(progress, "failed")
				return err
			}
			fmt.Fprintf(progress, "done (%d test cases)\n", len(res.Structure.TestCases))

			data, err := json.MarshalIndent(res.Structure, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode structure: %w", err)
			}
			return writeOutput(cmd, output, string(data)+"\n")
		},
	}

	in.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func newRenderCmd() *cobra.Command {
	var (
		tmpl   templateFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "render <structure.json>",
		Short: "Render test code from a saved test structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read structure: %w", err)
			}
			var s model.TestStructure
			if err := json.Unmarshal(data, &s); err != nil {
				return fmt.Errorf("failed to decode structure %s: %w", args[0], err)
			}
			s.Normalize()

			code, err := a.engine.Render(&s, a.templateOptions(tmpl.ns, tmpl.baseURL, tmpl.template))
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, code)
		},
	}

	tmpl.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func newDescribeCmd() *cobra.Command {
	var profile string

	cmd := &cobra.Command{
		Use:   "describe <url>",
		Short: "Capture a live page and print the description sent to the model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			pm, err := describe.Capture(cmd.Context(), args[0], describe.Options{
				ProfileDir: profile,
				Logger:     a.log.Named("describe"),
			})
			if err != nil {
				return fmt.Errorf("capture failed: %w", err)
			}
			return writeOutput(cmd, "", pm.Describe())
		},
	}

	cmd.Flags().StringVar(&profile, "profile", "", "Chrome/Chromium profile directory for authenticated sessions (close browser first)")
	return cmd
}

func writeOutput(cmd *cobra.Command, path, content string) error {
	if path == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), content)
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Saved to %s (%d lines)\n", path, strings.Count(content, "\n"))
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
