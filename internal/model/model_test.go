package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_EmptyStructure(t *testing.T) {
	var s TestStructure
	s.Normalize()

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"pageName": "", "elements": [], "tasks": [], "testCases": []}`, string(data))
}

func TestNormalize_FillsNestedCollections(t *testing.T) {
	s := TestStructure{
		Elements: []PageElement{{Name: "saveButton"}},
		Tasks:    []UserTask{{Name: "Save", Steps: []TaskStep{{Action: "click"}}}},
		TestCases: []TestCase{{
			Name:  "saves",
			Steps: []TaskStep{{Description: "Click save", Action: "click"}},
		}},
	}
	s.Normalize()

	assert.NotNil(t, s.Elements[0].Properties)
	assert.Equal(t, NoDescription, s.Tasks[0].Steps[0].Description)
	assert.NotNil(t, s.Tasks[0].Steps[0].Parameters)
	assert.NotNil(t, s.Tasks[0].Prerequisites)
	assert.NotNil(t, s.Tasks[0].ExpectedResults)

	tc := s.TestCases[0]
	assert.Equal(t, "Click save", tc.Steps[0].Description)
	assert.NotNil(t, tc.Tags)
	assert.NotNil(t, tc.Setup)
	assert.NotNil(t, tc.Assertions)
	assert.NotNil(t, tc.Cleanup)
}
