// File: internal/browser/manager.go

// Package browser owns the headless Chrome process and hands out isolated
// tab contexts with a session's cookies applied.
package browser

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/tsanko9k/inkclip/internal/config"
	"github.com/tsanko9k/inkclip/internal/session"
)

// Manager handles the lifecycle of the headless browser process. All tab
// contexts are derived from its allocator context.
type Manager struct {
	logger *zap.Logger
	cfg    *config.Config

	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc

	// wg tracks open tabs for a graceful shutdown.
	wg sync.WaitGroup
}

// NewManager launches the browser process and verifies it is responsive.
func NewManager(ctx context.Context, logger *zap.Logger, cfg *config.Config) (*Manager, error) {
	m := &Manager{
		logger: logger.Named("browser"),
		cfg:    cfg,
	}
	if err := m.launch(ctx); err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return m, nil
}

// launch prepares allocator options and starts the headless browser process.
func (m *Manager) launch(ctx context.Context) error {
	m.logger.Info("Initializing browser allocator...",
		zap.Bool("headless", m.cfg.Browser.Headless))

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, m.buildAllocatorOptions()...)
	m.allocatorCtx = allocCtx
	m.allocatorCancel = cancel

	// Verify the browser starts and responds before handing out tabs.
	testCtx, cancelTest := context.WithTimeout(allocCtx, 30*time.Second)
	testCtx, cancelTestCtx := chromedp.NewContext(testCtx)
	defer cancelTestCtx()
	defer cancelTest()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		m.allocatorCancel()
		return fmt.Errorf("browser failed to start or respond: %w", err)
	}

	m.logger.Info("Browser launched and responsive.")
	return nil
}

// buildAllocatorOptions assembles flags for a quiet, configurable browser
// instance. Automation tells are suppressed; Medium hard-blocks obvious bots.
func (m *Manager) buildAllocatorOptions() []chromedp.ExecAllocatorOption {
	var opts []chromedp.ExecAllocatorOption
	opts = append(opts, chromedp.DefaultExecAllocatorOptions[:]...)
	// A false bool value makes the allocator omit the flag entirely.
	opts = append(opts, chromedp.Flag("enable-automation", false))

	opts = append(opts,
		chromedp.Flag("headless", m.cfg.Browser.Headless),
		chromedp.Flag("ignore-certificate-errors", m.cfg.Browser.IgnoreTLSErrors),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", m.cfg.Browser.Headless),
		chromedp.UserAgent(m.cfg.Browser.UserAgent),
	)

	// Custom arguments from the config file.
	for _, arg := range m.cfg.Browser.Args {
		parts := strings.SplitN(arg, "=", 2)
		flagName := strings.TrimPrefix(parts[0], "--")
		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(flagName, parts[1]))
		} else {
			opts = append(opts, chromedp.Flag(flagName, true))
		}
	}

	// Flags required for running inside containers.
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}

	return opts
}

// NewTab creates an isolated tab context with the given session's cookies
// applied. A nil session opens a clean, logged-out tab. The returned cancel
// func must be called on every exit path; it releases the tab and signals the
// manager's shutdown accounting.
func (m *Manager) NewTab(ctx context.Context, sess session.Session) (context.Context, context.CancelFunc, error) {
	if m.allocatorCtx == nil {
		return nil, nil, fmt.Errorf("browser manager is not initialized")
	}

	tabCtx, cancelTab := chromedp.NewContext(m.allocatorCtx)

	// Tie the tab's lifetime to the caller's context.
	stop := context.AfterFunc(ctx, cancelTab)

	prep := []chromedp.Action{
		chromedp.ActionFunc(func(actionCtx context.Context) error {
			if m.cfg.Browser.DisableCache {
				return network.SetCacheDisabled(true).Do(actionCtx)
			}
			return nil
		}),
	}
	if !sess.Empty() {
		params := sess.CookieParams()
		prep = append(prep, chromedp.ActionFunc(func(actionCtx context.Context) error {
			return network.SetCookies(params).Do(actionCtx)
		}))
	}

	if err := chromedp.Run(tabCtx, prep...); err != nil {
		stop()
		cancelTab()
		return nil, nil, fmt.Errorf("failed to prepare tab: %w", err)
	}

	m.wg.Add(1)
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			stop()
			cancelTab()
			m.wg.Done()
		})
	}
	return tabCtx, cancel, nil
}

// HarvestCookies reads all cookies (including HttpOnly) from a live tab.
func HarvestCookies(tabCtx context.Context) (session.Session, error) {
	var cookies []*network.Cookie
	err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(actionCtx context.Context) error {
		var err error
		cookies, err = storage.GetCookies().Do(actionCtx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to harvest cookies: %w", err)
	}
	return session.FromBrowserCookies(cookies), nil
}

// Shutdown waits for open tabs to close and terminates the browser process.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Browser shutdown initiated. Waiting for open tabs...")

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("All tabs closed.")
	case <-ctx.Done():
		m.logger.Warn("Shutdown deadline exceeded. Forcing browser termination.", zap.Error(ctx.Err()))
	}

	if m.allocatorCancel != nil {
		m.allocatorCancel()
		<-m.allocatorCtx.Done()
	}
	return nil
}
