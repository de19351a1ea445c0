// File: internal/session/validator.go
package session

import (
	"context"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/tsanko9k/inkclip/internal/config"
	"github.com/tsanko9k/inkclip/internal/selector"
)

// LoggedInIndicators is the ranked probe chain for a logged-in Medium page.
// The same chain serves session validation and the authenticator's final
// check. Medium's markup drifts; new observations go at the end of the list.
var LoggedInIndicators = selector.Chain{
	Name: "logged-in indicator",
	Candidates: []selector.Candidate{
		{Query: `button[aria-label="User"]`},
		{Query: `img.avatar`},
		{Query: `a[href*="/@"]`},
		{Query: `div[data-testid="user-menu"]`},
		{Query: `div[aria-label="Profile"]`},
		{Query: `img[alt*="Profile picture"]`},
		{Query: `a[href="/me"]`},
		{Query: `a[href="/me/stories"]`},
		{Query: "button", Text: "Write"},
		{Query: "button", Text: "Sign out"},
		{Query: "button", Text: "Notifications"},
	},
}

// loggedInPhrases only render for authenticated users. They back the
// content-scan fallback when every structural probe misses.
var loggedInPhrases = []string{
	"sign out",
	"your stories",
	"your profile",
	"account settings",
	"write a story",
}

// TabOpener provides isolated browser tabs with a session's cookies applied.
// Implemented by the browser manager.
type TabOpener interface {
	NewTab(ctx context.Context, sess Session) (context.Context, context.CancelFunc, error)
}

// Report is the outcome of a standalone session validity check.
type Report struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Validator decides whether a session is currently authenticated by rendering
// the site's home view and probing for logged-in indicators.
type Validator struct {
	baseURL      string
	postLoadWait time.Duration
	log          *zap.Logger
}

// NewValidator builds a validator for the configured site.
func NewValidator(cfg *config.Config, logger *zap.Logger) *Validator {
	return &Validator{
		baseURL:      cfg.Medium.BaseURL,
		postLoadWait: cfg.Network.PostLoadWait,
		log:          logger.Named("session_validator"),
	}
}

// IsAuthenticated navigates the given tab to the site root and checks the
// ranked probes, falling back to a content scan. Absence of proof is an
// ordinary false, never an error.
func (v *Validator) IsAuthenticated(tabCtx context.Context) bool {
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(v.baseURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(v.postLoadWait),
	)
	if err != nil {
		v.log.Warn("Could not render home view for validation", zap.Error(err))
		return false
	}

	if match, found := LoggedInIndicators.Find(tabCtx, v.log); found {
		match.Release(tabCtx)
		v.log.Debug("Authentication confirmed by probe",
			zap.String("candidate", match.Candidate.String()))
		return true
	}

	var content string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &content)); err != nil {
		v.log.Warn("Could not fetch page content for validation fallback", zap.Error(err))
		return false
	}
	if phrase, ok := ContentIndicatesLogin(content); ok {
		v.log.Debug("Authentication confirmed by content scan", zap.String("phrase", phrase))
		return true
	}

	return false
}

// ContentIndicatesLogin scans rendered markup for phrases that only appear to
// authenticated users. Returns the matching phrase.
func ContentIndicatesLogin(content string) (string, bool) {
	lowered := strings.ToLower(content)
	for _, phrase := range loggedInPhrases {
		if strings.Contains(lowered, phrase) {
			return phrase, true
		}
	}
	return "", false
}

// CheckSessionValid is the standalone validity check behind the `validate`
// command: load the persisted session, apply it to a fresh tab, and probe.
func (v *Validator) CheckSessionValid(ctx context.Context, store *Store, tabs TabOpener) Report {
	sess, ok := store.Load()
	if !ok {
		return Report{Valid: false, Reason: "session file missing, unreadable, or empty"}
	}

	tabCtx, cancel, err := tabs.NewTab(ctx, sess)
	if err != nil {
		return Report{Valid: false, Reason: "browser session could not be created: " + err.Error()}
	}
	defer cancel()

	if v.IsAuthenticated(tabCtx) {
		return Report{Valid: true}
	}
	return Report{Valid: false, Reason: "no logged-in indicator found on the home view"}
}
