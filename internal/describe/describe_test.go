package describe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageMap_Describe(t *testing.T) {
	pm := &PageMap{
		URL:   "https://shop.example.com/login",
		Title: "Sign in",
		Elements: []Element{
			{Selector: "#email", Type: "email", Label: "Email", Placeholder: "you@example.com"},
			{Selector: "#password", Type: "password", Name: "password"},
			{Selector: "button.primary", Type: "button", Text: "Sign In"},
			{Selector: "#remember", Type: "checkbox", Label: "Remember me"},
		},
		Navigation: []NavItem{
			{Selector: `a[href="/help"]`, Text: "Help", Href: "/help"},
		},
	}

	want := `Page: Sign in
URL: https://shop.example.com/login

Interactive elements:
- email input labelled "Email" with placeholder "you@example.com" (selector: #email)
- password input named "password" (selector: #password)
- button with text "Sign In" (selector: button.primary)
- checkbox labelled "Remember me" (selector: #remember)

Navigation links:
- "Help" -> /help (selector: a[href="/help"])
`
	assert.Equal(t, want, pm.Describe())
}

func TestPageMap_DescribeEmpty(t *testing.T) {
	pm := &PageMap{URL: "about:blank", IsSPA: true}

	got := pm.Describe()
	assert.Contains(t, got, "Page: Untitled page\n")
	assert.Contains(t, got, "single page application")
	assert.Contains(t, got, "No interactive elements were found.")
	assert.NotContains(t, got, "Navigation links")
}

func TestKind(t *testing.T) {
	assert.Equal(t, "text input", kind(""))
	assert.Equal(t, "text area", kind("textarea"))
	assert.Equal(t, "search input", kind("search"))
	assert.Equal(t, "select", kind("select"))
}

const loginPage = `<!doctype html>
<html><head><title>Sign in</title></head>
<body>
<nav><a href="/help">Help</a></nav>
<form>
  <label for="email">Email</label>
  <input id="email" type="email" placeholder="you@example.com">
  <input name="password" type="password">
  <button type="submit">Sign In</button>
</form>
</body></html>`

func TestCapture(t *testing.T) {
	if testing.Short() {
		t.Skip("launches a browser")
	}
	if _, ok := launcher.LookPath(); !ok {
		t.Skip("no Chrome or Chromium installed")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(loginPage))
	}))
	defer srv.Close()

	pm, err := Capture(context.Background(), srv.URL, Options{Timeout: 30 * time.Second})
	require.NoError(t, err)

	assert.Equal(t, "Sign in", pm.Title)
	assert.False(t, pm.IsSPA)

	selectors := make(map[string]Element)
	for _, el := range pm.Elements {
		selectors[el.Selector] = el
	}
	require.Contains(t, selectors, "#email")
	assert.Equal(t, "Email", selectors["#email"].Label)
	assert.Contains(t, selectors, `input[name="password"]`)

	require.Len(t, pm.Navigation, 1)
	assert.Equal(t, "/help", pm.Navigation[0].Href)
}
