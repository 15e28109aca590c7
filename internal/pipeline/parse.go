package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/v0xg/testgen/internal/model"
)

type elementsResponse struct {
	Elements []model.PageElement `json:"elements"`
}

type tasksResponse struct {
	Tasks []model.UserTask `json:"tasks"`
}

// parseElements decodes a stage 1 response
func parseElements(content string) ([]model.PageElement, error) {
	var resp elementsResponse
	if err := decodeObject(content, &resp); err != nil {
		return nil, err
	}
	return model.NormalizeElements(resp.Elements), nil
}

// parseTasks decodes a stage 2 response
func parseTasks(content string) ([]model.UserTask, error) {
	var resp tasksResponse
	if err := decodeObject(content, &resp); err != nil {
		return nil, err
	}
	return model.NormalizeTasks(resp.Tasks), nil
}

// parseStructure decodes a stage 3 response
func parseStructure(content string) (*model.TestStructure, error) {
	var structure *model.TestStructure
	if err := decodeObject(content, &structure); err != nil {
		return nil, err
	}
	if structure == nil {
		return nil, errors.New("response decoded to null")
	}
	return structure, nil
}

// decodeObject unmarshals a JSON object from a model response. Unknown
// fields are ignored. When the response is not JSON on its own, the first
// balanced {...} object embedded in it is tried instead.
func decodeObject(content string, v any) error {
	data := []byte(strings.TrimSpace(content))
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}

	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return err
	}

	obj, ok := extractObject(data)
	if !ok {
		return fmt.Errorf("no JSON object found in response: %w", err)
	}
	if err := json.Unmarshal(obj, v); err != nil {
		return fmt.Errorf("failed to parse extracted JSON: %w", err)
	}
	return nil
}

// extractObject returns the first balanced top-level {...} in data,
// skipping braces that appear inside JSON strings.
func extractObject(data []byte) ([]byte, bool) {
	start := bytes.IndexByte(data, '{')
	if start == -1 {
		return nil, false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(data); i++ {
		c := data[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return data[start : i+1], true
			}
		}
	}
	return nil, false
}
