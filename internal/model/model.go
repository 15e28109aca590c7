package model

// PageElement represents a UI element identified on the described page
type PageElement struct {
	Name        string            `json:"name"` // referenced by TaskStep.ElementName
	Selector    string            `json:"selector"`
	Type        string            `json:"type"` // button, input, link, checkbox, ...
	Description string            `json:"description"`
	Properties  map[string]string `json:"properties"`
}

// NoDescription is used for steps the model left undescribed
const NoDescription = "(N/A)"

// TaskStep represents a single action within a workflow
type TaskStep struct {
	Description string            `json:"description"`
	ElementName string            `json:"elementName,omitempty"`
	Action      string            `json:"action"` // click, fill, visible, ... (interpreted by templates)
	Parameters  map[string]string `json:"parameters"`
}

// UserTask represents a named user workflow on the page
type UserTask struct {
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Steps           []TaskStep `json:"steps"`
	Prerequisites   []string   `json:"prerequisites"`
	ExpectedResults []string   `json:"expectedResults"`
}

// TestCase represents one generated test
type TestCase struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
	Setup       []TaskStep `json:"setup"`
	Steps       []TaskStep `json:"steps"`
	Assertions  []TaskStep `json:"assertions"`
	Cleanup     []TaskStep `json:"cleanup"`
}

// TestStructure is the full extraction result handed to the template engine
type TestStructure struct {
	PageName  string        `json:"pageName"`
	Elements  []PageElement `json:"elements"`
	Tasks     []UserTask    `json:"tasks"`
	TestCases []TestCase    `json:"testCases"`
}

// Normalize replaces nil collections with empty ones so the structure
// serializes as [] / {} and templates can range over every field.
func (s *TestStructure) Normalize() {
	s.Elements = NormalizeElements(s.Elements)
	s.Tasks = NormalizeTasks(s.Tasks)
	if s.TestCases == nil {
		s.TestCases = []TestCase{}
	}
	for i := range s.TestCases {
		tc := &s.TestCases[i]
		if tc.Tags == nil {
			tc.Tags = []string{}
		}
		tc.Setup = normalizeSteps(tc.Setup)
		tc.Steps = normalizeSteps(tc.Steps)
		tc.Assertions = normalizeSteps(tc.Assertions)
		tc.Cleanup = normalizeSteps(tc.Cleanup)
	}
}

// NormalizeElements returns elements with nil slices and maps replaced
func NormalizeElements(elements []PageElement) []PageElement {
	if elements == nil {
		return []PageElement{}
	}
	for i := range elements {
		if elements[i].Properties == nil {
			elements[i].Properties = map[string]string{}
		}
	}
	return elements
}

// NormalizeTasks returns tasks with nil slices and maps replaced
func NormalizeTasks(tasks []UserTask) []UserTask {
	if tasks == nil {
		return []UserTask{}
	}
	for i := range tasks {
		t := &tasks[i]
		t.Steps = normalizeSteps(t.Steps)
		if t.Prerequisites == nil {
			t.Prerequisites = []string{}
		}
		if t.ExpectedResults == nil {
			t.ExpectedResults = []string{}
		}
	}
	return tasks
}

func normalizeSteps(steps []TaskStep) []TaskStep {
	if steps == nil {
		return []TaskStep{}
	}
	for i := range steps {
		if steps[i].Description == "" {
			steps[i].Description = NoDescription
		}
		if steps[i].Parameters == nil {
			steps[i].Parameters = map[string]string{}
		}
	}
	return steps
}
