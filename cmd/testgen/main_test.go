package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/testgen/internal/model"
	"github.com/v0xg/testgen/internal/pipeline"
	"github.com/v0xg/testgen/internal/render"
)

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	t.Setenv("TESTGEN_LOG_LEVEL", "error")

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func writeStructure(t *testing.T) string {
	t.Helper()
	s := model.TestStructure{
		PageName: "checkout",
		TestCases: []model.TestCase{{
			Name:  "pays with card",
			Steps: []model.TaskStep{{Description: "Pay", ElementName: "payButton", Action: "click"}},
		}},
	}
	data, err := json.Marshal(s)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "structure.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRenderCmd(t *testing.T) {
	path := writeStructure(t)

	stdout, _, err := execute(t, "render", path, "--ns", "Shop.Tests", "--base-url", "https://shop.example.com")
	require.NoError(t, err)
	assert.Contains(t, stdout, "namespace Shop.Tests;")
	assert.Contains(t, stdout, "public class CheckoutTests : PageTest")
	assert.Contains(t, stdout, "await _page.PayButton.ClickAsync();")
}

func TestRenderCmd_WritesFile(t *testing.T) {
	path := writeStructure(t)
	out := filepath.Join(t.TempDir(), "CheckoutTests.cs")

	stdout, stderr, err := execute(t, "render", path, "-o", out)
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "✓ Saved to "+out)

	code, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(code), "namespace PlaywrightTests;")
}

func TestRenderCmd_MissingTemplate(t *testing.T) {
	path := writeStructure(t)

	_, _, err := execute(t, "render", path, "--template", "Nope.tmpl")
	require.ErrorIs(t, err, render.ErrTemplateNotFound)
	assert.Contains(t, explain(err), "template not found")
}

func TestRenderCmd_BadStructure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "structure.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, _, err := execute(t, "render", path)
	assert.ErrorContains(t, err, "failed to decode structure")
}

func TestGenerateCmd_RequiresOneSource(t *testing.T) {
	_, _, err := execute(t, "generate")
	assert.ErrorContains(t, err, "exactly one of")

	_, _, err = execute(t, "generate", "a login page", "--file", "page.txt")
	assert.ErrorContains(t, err, "exactly one of")
}

func TestInvalidProvider(t *testing.T) {
	_, _, err := execute(t, "render", writeStructure(t), "--provider", "watson")
	assert.ErrorContains(t, err, "invalid config")
}

func TestModelFlagOverridesConfig(t *testing.T) {
	_, _, err := execute(t, "render", writeStructure(t), "--model", "qwen2.5-coder")
	require.NoError(t, err)

	a, err := newApp()
	require.NoError(t, err)
	defer a.close()
	assert.Equal(t, "qwen2.5-coder", a.cfg.LLM.Model)
}

func TestFindJobs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"login page.txt", "cart.md", "notes.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.txt"), 0o755))

	work, err := findJobs(dir, "out", "cs")
	require.NoError(t, err)
	require.Len(t, work, 2)
	assert.Equal(t, batchJob{input: filepath.Join(dir, "cart.md"), output: filepath.Join("out", "CartTests.cs")}, work[0])
	assert.Equal(t, batchJob{input: filepath.Join(dir, "login page.txt"), output: filepath.Join("out", "LoginPageTests.cs")}, work[1])
}

func TestFindJobs_SameStemKeepsSourceExtension(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"login.txt", "login.md", "log-in.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	work, err := findJobs(dir, "out", ".cs")
	require.NoError(t, err)

	outputs := make(map[string]string)
	for _, job := range work {
		outputs[filepath.Base(job.input)] = job.output
	}
	assert.Equal(t, map[string]string{
		"log-in.txt": filepath.Join("out", "LogInTests.cs"),
		"login.md":   filepath.Join("out", "LoginMdTests.cs"),
		"login.txt":  filepath.Join("out", "LoginTxtTests.cs"),
	}, outputs)
}

func TestFindJobs_UnresolvableCollision(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"login.txt", "login.md", "login md.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	_, err := findJobs(dir, "out", ".cs")
	assert.ErrorContains(t, err, "both write LoginMdTests.cs")
}

func TestExplain(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: x.tmpl", render.ErrTemplateNotFound), "template not found"},
		{fmt.Errorf("%w: bad", render.ErrTemplateRender), "failed to compile or render"},
		{fmt.Errorf("%w: bad", render.ErrTemplateConfiguration), "misconfigured"},
		{&pipeline.StageError{Stage: pipeline.StageTasks, Err: pipeline.ErrNoCompletion}, "no completion"},
		{context.Canceled, "interrupted"},
		{errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		assert.Contains(t, explain(tt.err), tt.want)
	}
}
