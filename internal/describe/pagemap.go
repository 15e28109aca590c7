package describe

import (
	"fmt"
	"strings"
)

// PageMap is the interactive surface of a captured page
type PageMap struct {
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Elements   []Element `json:"elements"`
	Navigation []NavItem `json:"navigation"`
	IsSPA      bool      `json:"isSPA"`
}

// Element is an interactive element found on the page
type Element struct {
	Selector    string `json:"selector"`
	Type        string `json:"type"` // button, text, email, link, select, checkbox, radio...
	Text        string `json:"text,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Label       string `json:"label,omitempty"`
	Name        string `json:"name,omitempty"`
	ID          string `json:"id,omitempty"`
}

// NavItem is a link found in the page navigation
type NavItem struct {
	Selector string `json:"selector"`
	Text     string `json:"text"`
	Href     string `json:"href"`
}

// Describe renders the page as free text for the extraction pipeline
func (m *PageMap) Describe() string {
	var sb strings.Builder

	title := m.Title
	if title == "" {
		title = "Untitled page"
	}
	fmt.Fprintf(&sb, "Page: %s\n", title)
	fmt.Fprintf(&sb, "URL: %s\n", m.URL)
	if m.IsSPA {
		sb.WriteString("The page is a single page application; content renders client-side.\n")
	}

	if len(m.Elements) > 0 {
		sb.WriteString("\nInteractive elements:\n")
		for _, el := range m.Elements {
			sb.WriteString("- ")
			sb.WriteString(el.summary())
			sb.WriteByte('\n')
		}
	} else {
		sb.WriteString("\nNo interactive elements were found.\n")
	}

	if len(m.Navigation) > 0 {
		sb.WriteString("\nNavigation links:\n")
		for _, nav := range m.Navigation {
			fmt.Fprintf(&sb, "- %q -> %s (selector: %s)\n", nav.Text, nav.Href, nav.Selector)
		}
	}

	return sb.String()
}

func (e Element) summary() string {
	var parts []string
	parts = append(parts, kind(e.Type))
	if e.Label != "" {
		parts = append(parts, fmt.Sprintf("labelled %q", e.Label))
	}
	if e.Text != "" {
		parts = append(parts, fmt.Sprintf("with text %q", e.Text))
	}
	if e.Placeholder != "" {
		parts = append(parts, fmt.Sprintf("with placeholder %q", e.Placeholder))
	}
	if e.Name != "" {
		parts = append(parts, fmt.Sprintf("named %q", e.Name))
	}
	return strings.Join(parts, " ") + fmt.Sprintf(" (selector: %s)", e.Selector)
}

func kind(t string) string {
	switch t {
	case "button", "link", "select", "checkbox", "radio":
		return t
	case "textarea":
		return "text area"
	case "":
		return "text input"
	default:
		return t + " input"
	}
}
