// File: internal/scrape/orchestrator.go

// Package scrape composes session handling, interactive login, navigation,
// and content extraction into the externally callable entry point. Each
// Scrape call runs in its own isolated browser tab; concurrent calls are not
// coordinated with each other, and callers renewing authentication
// concurrently should serialize (the session file has no lock).
package scrape

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tsanko9k/inkclip/internal/auth"
	"github.com/tsanko9k/inkclip/internal/browser"
	"github.com/tsanko9k/inkclip/internal/config"
	"github.com/tsanko9k/inkclip/internal/debugrec"
	"github.com/tsanko9k/inkclip/internal/extract"
	"github.com/tsanko9k/inkclip/internal/session"
)

// paywallPhrases indicate the rendered page is a login wall or paywall
// rather than the article. Matched case-insensitively.
var paywallPhrases = []string{
	"sign in",
	"become a member",
	"join medium",
}

// Orchestrator is the externally callable scrape entry point.
type Orchestrator struct {
	cfg       *config.Config
	logger    *zap.Logger
	browser   *browser.Manager
	store     *session.Store
	validator *session.Validator
	extractor *extract.Extractor
	limiter   *rate.Limiter
}

// New wires an orchestrator from its collaborators.
func New(cfg *config.Config, logger *zap.Logger, mgr *browser.Manager, store *session.Store) *Orchestrator {
	limit := rate.Inf
	if cfg.Network.RateLimit > 0 {
		limit = rate.Limit(cfg.Network.RateLimit)
	}
	return &Orchestrator{
		cfg:       cfg,
		logger:    logger.Named("orchestrator"),
		browser:   mgr,
		store:     store,
		validator: session.NewValidator(cfg, logger),
		extractor: extract.New(logger, cfg.Debug.Enabled),
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// Scrape fetches and extracts the article at rawURL. On failure the returned
// error is always a *Failure; recovered panics map to KindUnexpected and the
// tab is released on every exit path.
func (o *Orchestrator) Scrape(ctx context.Context, rawURL string) (result *extract.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Panic during scrape", zap.Any("panic", r))
			result = nil
			err = failf(KindUnexpected, nil, "panic during scrape: %v", r)
		}
	}()

	rec := debugrec.New(o.cfg.Debug.Enabled, o.cfg.Debug.ScreenshotDir, o.logger)
	rec.Step("start", map[string]interface{}{"url": rawURL})

	parsed, ferr := validateURL(rawURL)
	if ferr != nil {
		return nil, ferr
	}

	sess, ferr := o.ensureSession(ctx, rec)
	if ferr != nil {
		ferr.Trace = rec.Trace()
		return nil, ferr
	}

	if err := o.limiter.Wait(ctx); err != nil {
		return nil, failf(KindNavigationFailed, err, "cancelled while waiting for rate limit")
	}

	tabCtx, cancel, err := o.browser.NewTab(ctx, sess)
	if err != nil {
		return nil, failf(KindAutomationError, err, "could not open browser tab")
	}
	defer cancel()

	content, title, ferr := o.renderArticle(tabCtx, parsed.String(), rec)
	if ferr != nil {
		ferr.Trace = rec.Trace()
		return nil, ferr
	}

	if phrase, walled := IsPaywalled(content); walled {
		rec.Step("paywall_detected", map[string]interface{}{"phrase": phrase})
		rec.Screenshot(tabCtx, "paywall")
		return nil, &Failure{
			Kind:    KindPaywallOrLoginRedirect,
			Message: "redirected to login page or hit a paywall",
			Trace:   rec.Trace(),
		}
	}

	res := o.extractor.Extract(content, title, rawURL)
	if res.Title == "" && res.BodyText == "" {
		rec.Step("extraction_empty", nil)
		rec.Screenshot(tabCtx, "extraction_failed")
		return nil, &Failure{
			Kind:    KindExtractionFailed,
			Message: "no article title or body could be extracted",
			Trace:   rec.Trace(),
		}
	}

	rec.Step("completed", map[string]interface{}{
		"title_present":  res.Title != "",
		"content_length": len(res.BodyText),
		"image_count":    len(res.Images),
	})
	o.logger.Info("Article scraped",
		zap.String("url", rawURL),
		zap.String("title", res.Title),
		zap.Int("images", len(res.Images)))
	return &res, nil
}

// ensureSession loads the persisted session and revalidates it, running the
// interactive login when the session is absent or stale. A failed persist of
// a fresh session is logged but does not fail the scrape.
func (o *Orchestrator) ensureSession(ctx context.Context, rec *debugrec.Recorder) (session.Session, *Failure) {
	sess, present := o.store.Load()
	rec.Step("session_loaded", map[string]interface{}{"present": present})

	if present {
		tabCtx, cancel, err := o.browser.NewTab(ctx, sess)
		if err != nil {
			return nil, failf(KindAutomationError, err, "could not open validation tab")
		}
		ok := o.validator.IsAuthenticated(tabCtx)
		cancel()
		rec.Step("session_validated", map[string]interface{}{"valid": ok})
		if ok {
			return sess, nil
		}
		o.logger.Info("Persisted session is stale; re-authenticating")
	}

	tabCtx, cancel, err := o.browser.NewTab(ctx, nil)
	if err != nil {
		return nil, failf(KindAutomationError, err, "could not open login tab")
	}
	defer cancel()

	authenticator := auth.New(o.cfg, o.logger, rec)
	res := authenticator.Login(tabCtx)
	if !res.Authenticated {
		return nil, &Failure{
			Kind:    KindAuthenticationFailed,
			Message: "failed to authenticate with Medium: " + res.Reason,
			Trace:   res.Trace,
		}
	}

	fresh, err := browser.HarvestCookies(tabCtx)
	if err != nil {
		return nil, failf(KindAutomationError, err, "could not harvest session cookies")
	}
	if fresh.Empty() {
		return nil, failf(KindAuthenticationFailed, nil, "login produced no session cookies")
	}

	if !o.store.Save(fresh) {
		// Non-fatal: this run proceeds with the in-memory session.
		o.logger.Warn("Could not persist renewed session; next run will log in again")
	}
	rec.Step("session_renewed", map[string]interface{}{"cookies": len(fresh)})
	return fresh, nil
}

// renderArticle navigates the tab to the article and returns the rendered
// markup and tab title.
func (o *Orchestrator) renderArticle(tabCtx context.Context, target string, rec *debugrec.Recorder) (string, string, *Failure) {
	navCtx, cancel := context.WithTimeout(tabCtx, o.cfg.Network.NavigationTimeout)
	defer cancel()

	rec.Step("navigating", map[string]interface{}{"url": target})
	if err := chromedp.Run(navCtx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(o.cfg.Network.PostLoadWait),
	); err != nil {
		return "", "", classifyNavError(err, target)
	}
	rec.Screenshot(tabCtx, "article_page")

	var content, title string
	if err := chromedp.Run(navCtx,
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &content),
	); err != nil {
		return "", "", failf(KindAutomationError, err, "could not read rendered page")
	}
	rec.Step("page_rendered", map[string]interface{}{"title": title, "content_length": len(content)})
	return content, title, nil
}

// classifyNavError separates navigation faults (timeouts, network errors)
// from browser-level automation faults.
func classifyNavError(err error, target string) *Failure {
	msg := err.Error()
	if errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(msg, "net::") ||
		strings.Contains(msg, "ERR_") {
		return failf(KindNavigationFailed, err, "failed to navigate to %s", target)
	}
	return failf(KindAutomationError, err, "browser automation error while loading %s", target)
}

// validateURL enforces a non-empty absolute URL with scheme and host.
func validateURL(rawURL string) (*url.URL, *Failure) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, failf(KindInvalidInput, nil, "URL must be a non-empty string")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, failf(KindInvalidInput, err, "URL could not be parsed")
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, failf(KindInvalidInput, nil, "URL is missing scheme or domain")
	}
	return parsed, nil
}

// IsPaywalled scans rendered markup for login-wall or paywall phrases and
// returns the phrase that matched.
func IsPaywalled(content string) (string, bool) {
	lowered := strings.ToLower(content)
	for _, phrase := range paywallPhrases {
		if strings.Contains(lowered, phrase) {
			return phrase, true
		}
	}
	return "", false
}
