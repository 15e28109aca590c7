package render

import (
	"encoding/xml"
	"fmt"
	"strings"
	"text/template"
	"unicode"
	"unicode/utf8"
)

// FormatAction maps a step action to the Playwright locator method name
func FormatAction(action string) string {
	action = strings.ToLower(action)
	switch action {
	case "click":
		return "ClickAsync"
	case "fill":
		return "FillAsync"
	case "check":
		return "CheckAsync"
	case "uncheck":
		return "UncheckAsync"
	case "press":
		return "PressAsync"
	case "type":
		return "TypeAsync"
	default:
		return action + "Async"
	}
}

// FormatAssertion maps an assertion kind to the Playwright expectation method name
func FormatAssertion(assertion string) string {
	assertion = strings.ToLower(assertion)
	switch assertion {
	case "visible":
		return "ToBeVisibleAsync"
	case "hidden":
		return "ToBeHiddenAsync"
	case "enabled":
		return "ToBeEnabledAsync"
	case "disabled":
		return "ToBeDisabledAsync"
	case "contains":
		return "ToContainTextAsync"
	default:
		return "ToBe" + upperFirst(assertion) + "Async"
	}
}

// PascalCase turns free text such as a test case name into an identifier
func PascalCase(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if b.Len() == 0 && unicode.IsDigit(r) {
			b.WriteByte('_')
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CSString quotes s as a C# regular string literal
func CSString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// Comment flattens s onto one line so it stays inside a // comment
func Comment(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// XMLDoc flattens s and escapes it for a /// <summary> element
func XMLDoc(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(Comment(s)))
	return b.String()
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func builtinHelpers() template.FuncMap {
	return template.FuncMap{
		"formatAction":    FormatAction,
		"formatAssertion": FormatAssertion,
		"pascalCase":      PascalCase,
		"csString":        CSString,
		"comment":         Comment,
		"xmlDoc":          XMLDoc,
		"lower":           strings.ToLower,
	}
}
