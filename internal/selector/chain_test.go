// File: internal/selector/chain_test.go
package selector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestCandidateString(t *testing.T) {
	assert.Equal(t, "button", Candidate{Query: "button"}.String())
	assert.Equal(t, `button :has-text("Sign in")`,
		Candidate{Query: "button", Text: "Sign in"}.String())
}

func TestBuildLocatorScript(t *testing.T) {
	script := buildLocatorScript(Candidate{Query: `a[href*="sign-in"]`, Text: "Sign In"}, "probe-1")

	// The query and probe tag must be embedded verbatim; the text filter is lowercased.
	assert.Contains(t, script, `a[href*=\"sign-in\"]`)
	assert.Contains(t, script, `"sign in"`)
	assert.Contains(t, script, `"probe-1"`)
	assert.Contains(t, script, probeAttr)
}

func TestBuildLocatorScriptNoText(t *testing.T) {
	script := buildLocatorScript(Candidate{Query: "img.avatar"}, "probe-2")
	assert.Contains(t, script, `const needle = ""`)
}

func TestChainFindEmpty(t *testing.T) {
	// An empty chain reports no match without ever touching the browser.
	ch := Chain{Name: "empty"}
	_, found := ch.Find(context.Background(), zap.NewNop())
	assert.False(t, found)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "sign-in-button", slug("Sign In Button"))
	assert.Equal(t, "email-field", slug("email_field"))
}
