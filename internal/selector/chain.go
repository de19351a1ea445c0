// File: internal/selector/chain.go
package selector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// probeAttr is the temporary attribute used to hand a located element over to
// chromedp actions. The locator tags exactly one element; Release removes the tag.
const probeAttr = "data-inkclip-probe"

// Candidate is one way of locating a UI element: a CSS query, optionally
// narrowed to elements whose visible text contains Text (case-insensitive).
type Candidate struct {
	Query string
	Text  string
}

// String renders the candidate the way it would appear in a log line.
func (c Candidate) String() string {
	if c.Text == "" {
		return c.Query
	}
	return fmt.Sprintf("%s :has-text(%q)", c.Query, c.Text)
}

// Chain is an ordered list of candidates tried in sequence until one yields a
// visible match. Chains never mutate page state beyond tagging the match; a
// chain that finds nothing reports found=false, not an error.
type Chain struct {
	Name       string
	Candidates []Candidate
}

// Match is a successfully located element. Selector addresses it for
// subsequent click/fill actions.
type Match struct {
	Selector  string
	Candidate Candidate

	attr string
}

// Release removes the probe attribute from the matched element. Safe to call
// after navigation; a stale element is simply gone.
func (m Match) Release(ctx context.Context) {
	if m.attr == "" {
		return
	}
	script := fmt.Sprintf(
		`(() => { const el = document.querySelector(%q); if (el) el.removeAttribute(%q); })()`,
		m.Selector, probeAttr)
	var ignored interface{}
	_ = chromedp.Run(ctx, chromedp.Evaluate(script, &ignored))
}

// Find evaluates the chain's candidates lazily, first visible match wins.
// ctx must be an active chromedp session context.
func (ch Chain) Find(ctx context.Context, logger *zap.Logger) (Match, bool) {
	for _, cand := range ch.Candidates {
		tag := fmt.Sprintf("%s-%d", slug(ch.Name), time.Now().UnixNano())

		var found bool
		if err := chromedp.Run(ctx, chromedp.Evaluate(buildLocatorScript(cand, tag), &found)); err != nil {
			if ctx.Err() != nil {
				return Match{}, false
			}
			logger.Debug("selector probe failed",
				zap.String("chain", ch.Name),
				zap.String("candidate", cand.String()),
				zap.Error(err))
			continue
		}
		if found {
			logger.Debug("selector chain matched",
				zap.String("chain", ch.Name),
				zap.String("candidate", cand.String()))
			return Match{
				Selector:  fmt.Sprintf(`[%s=%q]`, probeAttr, tag),
				Candidate: cand,
				attr:      tag,
			}, true
		}
	}
	return Match{}, false
}

// buildLocatorScript produces a self-contained expression that tags the first
// visible element matching the candidate and reports whether one was found.
func buildLocatorScript(cand Candidate, tag string) string {
	return fmt.Sprintf(`(() => {
	const needle = %q;
	let els;
	try { els = document.querySelectorAll(%q); } catch (e) { return false; }
	for (const el of els) {
		const style = window.getComputedStyle(el);
		if (style.display === 'none' || style.visibility === 'hidden') continue;
		if (el.getClientRects().length === 0) continue;
		if (needle && !(el.innerText || el.value || '').toLowerCase().includes(needle)) continue;
		el.setAttribute(%q, %q);
		return true;
	}
	return false;
})()`, strings.ToLower(cand.Text), cand.Query, probeAttr, tag)
}

// slug normalizes a chain name into something safe for an attribute value.
func slug(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, name)
}
