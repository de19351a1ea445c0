// File: internal/auth/authenticator.go

// Package auth drives Medium's interactive email login flow. The flow is a
// linear state machine with selector-chain fallbacks at every step; any step
// whose control cannot be located halts the machine with a typed, terminal
// result. Nothing here retries: repeating an identical DOM query against an
// unchanged page will not suddenly succeed.
package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/tsanko9k/inkclip/internal/config"
	"github.com/tsanko9k/inkclip/internal/debugrec"
	"github.com/tsanko9k/inkclip/internal/selector"
	"github.com/tsanko9k/inkclip/internal/session"
)

// Result is the outcome of one authentication attempt, immutable once
// produced.
type Result struct {
	Authenticated bool
	Reason        string
	Trace         []debugrec.Step
}

// Step control chains, ordered by how reliably each candidate has matched
// Medium's sign-in UI. New observations belong at the end of a list.
var (
	signinChain = selector.Chain{
		Name: "sign-in button",
		Candidates: []selector.Candidate{
			{Query: "a", Text: "Sign In"},
			{Query: `a[href*="sign-in"]`},
			{Query: `a[href*="signin"]`},
			{Query: "button", Text: "Sign in"},
		},
	}
	emailMethodChain = selector.Chain{
		Name: "email method button",
		Candidates: []selector.Candidate{
			{Query: "button", Text: "Sign in with email"},
			{Query: `button[data-action="sign-in-with-email"]`},
			{Query: "button", Text: "Email"},
			{Query: "a", Text: "sign in with email"},
		},
	}
	emailFieldChain = selector.Chain{
		Name: "email field",
		Candidates: []selector.Candidate{
			{Query: `input[type="email"]`},
			{Query: `input[name="email"]`},
			{Query: `input[id*="email"]`},
			{Query: `input[placeholder*="email"]`},
		},
	}
	continueChain = selector.Chain{
		Name: "continue button",
		Candidates: []selector.Candidate{
			{Query: "button", Text: "Continue"},
			{Query: `button[type="submit"]`},
			{Query: "button.button--primary"},
		},
	}
	passwordFieldChain = selector.Chain{
		Name: "password field",
		Candidates: []selector.Candidate{
			{Query: `input[type="password"]`},
			{Query: `input[name="password"]`},
			{Query: `input[id*="password"]`},
		},
	}
	passwordSigninChain = selector.Chain{
		Name: "password sign-in button",
		Candidates: []selector.Candidate{
			{Query: "button", Text: "Sign in"},
			{Query: `button[type="submit"]`},
			{Query: "button.button--primary"},
		},
	}
	errorMessageChain = selector.Chain{
		Name: "login error message",
		Candidates: []selector.Candidate{
			{Query: ".error-message"},
			{Query: ".form-error"},
			{Query: ".errorMessage"},
		},
	}
)

// Authenticator performs the interactive login. It operates on a fresh,
// logged-out tab supplied by the caller; on success the caller is expected to
// harvest and persist the resulting cookies.
type Authenticator struct {
	cfg *config.Config
	log *zap.Logger
	rec *debugrec.Recorder
}

// New creates an authenticator.
func New(cfg *config.Config, logger *zap.Logger, rec *debugrec.Recorder) *Authenticator {
	return &Authenticator{
		cfg: cfg,
		log: logger.Named("authenticator"),
		rec: rec,
	}
}

// Login runs the state machine: homepage -> sign-in -> email method -> email
// -> continue -> optional password -> auth check. tabCtx must be an active,
// cookie-free chromedp tab context.
func (a *Authenticator) Login(tabCtx context.Context) Result {
	if a.cfg.Medium.Email == "" {
		return a.fail(tabCtx, "login credentials are not configured")
	}

	a.rec.Step("login_start", map[string]interface{}{"base_url": a.cfg.Medium.BaseURL})

	if err := chromedp.Run(tabCtx,
		chromedp.Navigate(a.cfg.Medium.BaseURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(a.cfg.Network.PostLoadWait),
	); err != nil {
		return a.fail(tabCtx, "could not load homepage: "+err.Error())
	}
	a.rec.Screenshot(tabCtx, "login_homepage")

	if res, ok := a.clickStep(tabCtx, signinChain); !ok {
		return res
	}
	if res, ok := a.clickStep(tabCtx, emailMethodChain); !ok {
		return res
	}
	if res, ok := a.fillStep(tabCtx, emailFieldChain, a.cfg.Medium.Email); !ok {
		return res
	}
	if res, ok := a.clickStep(tabCtx, continueChain); !ok {
		return res
	}

	// Medium either asks for a password or sends a sign-in link. A missing
	// password field is the link flow, not a failure.
	if match, found := passwordFieldChain.Find(tabCtx, a.log); found {
		a.rec.Step("password_field_found", nil)
		if a.cfg.Medium.Password == "" {
			return a.fail(tabCtx, "password prompt shown but no password is configured")
		}
		if err := a.fill(tabCtx, match, a.cfg.Medium.Password); err != nil {
			return a.fail(tabCtx, "could not fill password field: "+err.Error())
		}
		if res, ok := a.clickStep(tabCtx, passwordSigninChain); !ok {
			return res
		}
	} else {
		a.rec.Step("no_password_field", map[string]interface{}{"likely_using_email_link": true})
	}

	// Escape hatches: both require manual intervention and are never retried.
	var currentURL, content string
	if err := chromedp.Run(tabCtx,
		chromedp.Location(&currentURL),
		chromedp.OuterHTML("html", &content),
	); err != nil {
		return a.fail(tabCtx, "could not inspect post-submit page: "+err.Error())
	}
	if reason, blocked := EscapeReason(currentURL, content); blocked {
		return a.fail(tabCtx, reason)
	}

	return a.authCheck(tabCtx, content)
}

// clickStep locates the chain's control and clicks it, then lets the page
// settle.
func (a *Authenticator) clickStep(tabCtx context.Context, chain selector.Chain) (Result, bool) {
	match, found := chain.Find(tabCtx, a.log)
	if !found {
		return a.fail(tabCtx, chain.Name+" control not found"), false
	}
	a.rec.Step("clicking_"+slugName(chain.Name), map[string]interface{}{"candidate": match.Candidate.String()})

	err := chromedp.Run(tabCtx,
		chromedp.Click(match.Selector, chromedp.ByQuery),
		chromedp.Sleep(a.cfg.Network.PostLoadWait),
	)
	match.Release(tabCtx)
	if err != nil {
		return a.fail(tabCtx, "could not click "+chain.Name+": "+err.Error()), false
	}
	a.rec.Screenshot(tabCtx, "after_"+slugName(chain.Name))
	return Result{}, true
}

// fillStep locates the chain's input and types the value into it.
func (a *Authenticator) fillStep(tabCtx context.Context, chain selector.Chain, value string) (Result, bool) {
	match, found := chain.Find(tabCtx, a.log)
	if !found {
		return a.fail(tabCtx, chain.Name+" control not found"), false
	}
	a.rec.Step("filling_"+slugName(chain.Name), map[string]interface{}{"value_length": len(value)})

	if err := a.fill(tabCtx, match, value); err != nil {
		return a.fail(tabCtx, "could not fill "+chain.Name+": "+err.Error()), false
	}
	return Result{}, true
}

// fill types into a located input and pauses for client-side validation.
func (a *Authenticator) fill(tabCtx context.Context, match selector.Match, value string) error {
	err := chromedp.Run(tabCtx,
		chromedp.SendKeys(match.Selector, value, chromedp.ByQuery),
		chromedp.Sleep(a.cfg.Network.SettleDelay),
	)
	match.Release(tabCtx)
	return err
}

// authCheck reuses the session validator's probe list to confirm the
// logged-in state, with the content scan as fallback.
func (a *Authenticator) authCheck(tabCtx context.Context, content string) Result {
	if match, found := session.LoggedInIndicators.Find(tabCtx, a.log); found {
		match.Release(tabCtx)
		a.rec.Step("authentication_successful", map[string]interface{}{"candidate": match.Candidate.String()})
		a.rec.Screenshot(tabCtx, "login_success")
		a.log.Info("Interactive login succeeded",
			zap.String("indicator", match.Candidate.String()))
		return Result{Authenticated: true, Trace: a.rec.Trace()}
	}
	if phrase, ok := session.ContentIndicatesLogin(content); ok {
		a.rec.Step("authentication_successful_content", map[string]interface{}{"phrase": phrase})
		a.log.Info("Interactive login succeeded (content scan)", zap.String("phrase", phrase))
		return Result{Authenticated: true, Trace: a.rec.Trace()}
	}

	// Surface the site's own error message when one is rendered.
	reason := "could not verify successful login"
	if match, found := errorMessageChain.Find(tabCtx, a.log); found {
		var msg string
		if err := chromedp.Run(tabCtx, chromedp.Text(match.Selector, &msg, chromedp.ByQuery)); err == nil && strings.TrimSpace(msg) != "" {
			reason = fmt.Sprintf("%s: %s", reason, strings.TrimSpace(msg))
		}
		match.Release(tabCtx)
	}
	return a.fail(tabCtx, reason)
}

// fail records the terminal state and assembles the negative result.
func (a *Authenticator) fail(tabCtx context.Context, reason string) Result {
	a.rec.Step("login_failed", map[string]interface{}{"reason": reason})
	a.rec.Screenshot(tabCtx, "login_failed")
	a.log.Warn("Interactive login failed", zap.String("reason", reason))
	return Result{Authenticated: false, Reason: reason, Trace: a.rec.Trace()}
}

// EscapeReason detects the two conditions that make automated login
// impossible: a verification (two-factor) redirect and a CAPTCHA challenge.
// Both require manual intervention and must never be retried automatically.
func EscapeReason(currentURL, content string) (string, bool) {
	if strings.Contains(strings.ToLower(currentURL), "verify") {
		return "two-factor authentication required; manual login needed", true
	}
	if strings.Contains(strings.ToLower(content), "captcha") {
		return "CAPTCHA detected; manual login required", true
	}
	return "", false
}

func slugName(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}
