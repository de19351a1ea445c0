// File: internal/debugrec/recorder.go

// Package debugrec captures timestamped step traces and screenshots for
// troubleshooting scrape and login runs. It is purely observational: a
// disabled (or nil) recorder is a no-op and call sites never branch on it.
package debugrec

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Step is one recorded event in a run's trace.
type Step struct {
	Name    string                 `json:"step"`
	Time    time.Time              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Recorder accumulates a trace for one logical run.
type Recorder struct {
	enabled bool
	dir     string
	runID   string
	log     *zap.Logger

	mu    sync.Mutex
	steps []Step
}

// New builds a recorder. When enabled is false the recorder records nothing
// and Screenshot returns an empty path.
func New(enabled bool, screenshotDir string, logger *zap.Logger) *Recorder {
	r := &Recorder{
		enabled: enabled,
		dir:     screenshotDir,
		runID:   uuid.New().String()[:8],
		log:     logger.Named("debugrec"),
	}
	if enabled && screenshotDir != "" {
		if err := os.MkdirAll(screenshotDir, 0o755); err != nil {
			r.log.Warn("Could not create screenshot directory", zap.Error(err))
		}
	}
	return r
}

// Enabled reports whether the recorder captures anything.
func (r *Recorder) Enabled() bool {
	return r != nil && r.enabled
}

// Step appends a timestamped entry to the trace.
func (r *Recorder) Step(name string, details map[string]interface{}) {
	if !r.Enabled() {
		return
	}
	r.mu.Lock()
	r.steps = append(r.steps, Step{Name: name, Time: time.Now(), Details: details})
	r.mu.Unlock()
	r.log.Debug("step", zap.String("run", r.runID), zap.String("name", name), zap.Any("details", details))
}

// Screenshot captures the current tab into the screenshot directory and
// returns the file path. Failures are logged, never propagated; a missing
// screenshot must not alter control flow.
func (r *Recorder) Screenshot(tabCtx context.Context, name string) string {
	if !r.Enabled() || r.dir == "" {
		return ""
	}

	var buf []byte
	if err := chromedp.Run(tabCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		r.log.Warn("Failed to capture screenshot", zap.String("name", name), zap.Error(err))
		return ""
	}

	path := filepath.Join(r.dir, fmt.Sprintf("%s_%s_%s.png", name, r.runID, time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		r.log.Warn("Failed to write screenshot", zap.String("path", path), zap.Error(err))
		return ""
	}

	r.Step("screenshot", map[string]interface{}{"path": path})
	return path
}

// Trace returns a copy of the recorded steps.
func (r *Recorder) Trace() []Step {
	if !r.Enabled() {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Step, len(r.steps))
	copy(out, r.steps)
	return out
}
