// Package hooks runs user scripts when alerts and connection events occur.
//
// Scripts live in {hooks_dir}/<hook-point>/ and run in name order. Only
// executable regular files are considered.
package hooks

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/1063537326/video-warning-0127/internal/config"
	"github.com/1063537326/video-warning-0127/internal/domain"
	"github.com/1063537326/video-warning-0127/internal/logging"
)

// Point names a hook directory.
type Point string

// Hook points.
const (
	AlertNew     Point = "alert-new"
	AlertMerged  Point = "alert-merged"
	CameraStatus Point = "camera-status"
	Connection   Point = "connection"
)

// FailureMode controls what a failing script does to the run.
type FailureMode string

// Failure modes.
const (
	FailureIgnore FailureMode = "ignore"
	FailureWarn   FailureMode = "warn"
	FailureAbort  FailureMode = "abort"
)

const (
	defaultAsyncTimeout = 30 * time.Second
	defaultMaxPending   = 10
)

// Options configures a Runner.
type Options struct {
	Dir          string
	Async        bool
	AsyncTimeout time.Duration
	MaxPending   int
	FailureMode  FailureMode
	// Output receives script stdout and stderr. Defaults to os.Stderr.
	Output io.Writer
	Logger logging.Logger
}

// OptionsFromConfig reads hook settings from the loaded configuration.
// It returns ok=false when hooks are disabled.
func OptionsFromConfig() (Options, bool) {
	if !config.GetBool("hooks_enabled", true) {
		return Options{}, false
	}
	return Options{
		Dir:          config.Get("hooks_dir", ""),
		Async:        config.GetBool("hooks_async", true),
		AsyncTimeout: time.Duration(config.GetInt("hooks_async_timeout", 30)) * time.Second,
		MaxPending:   config.GetInt("max_hooks", defaultMaxPending),
		FailureMode:  FailureMode(config.Get("hooks_failure_mode", string(FailureWarn))),
	}, true
}

// Runner executes hook scripts. A nil *Runner runs nothing.
type Runner struct {
	opts Options
	log  logging.Logger

	mu      sync.Mutex
	pending int
	wg      sync.WaitGroup
}

// New creates a Runner, filling unset options with defaults.
func New(opts Options) *Runner {
	if opts.AsyncTimeout <= 0 {
		opts.AsyncTimeout = defaultAsyncTimeout
	}
	if opts.MaxPending <= 0 {
		opts.MaxPending = defaultMaxPending
	}
	switch opts.FailureMode {
	case FailureIgnore, FailureWarn, FailureAbort:
	default:
		opts.FailureMode = FailureWarn
	}
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Runner{opts: opts, log: log.With("component", "hooks")}
}

// Init creates the hooks directory.
func (r *Runner) Init() error {
	if r == nil || r.opts.Dir == "" {
		return nil
	}
	if err := os.MkdirAll(r.opts.Dir, config.FileModeDir); err != nil {
		return fmt.Errorf("failed to create hooks directory %s: %w", r.opts.Dir, err)
	}
	return nil
}

type script struct {
	path string
	name string
}

func (r *Runner) scripts(point Point) []script {
	dir := filepath.Join(r.opts.Dir, string(point))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []script
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := filepath.Join(dir, e.Name())
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() || info.Mode()&0111 == 0 {
			continue
		}
		out = append(out, script{path: p, name: e.Name()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Run executes every script for point. In abort mode the first failing
// synchronous script stops the run and its error is returned.
func (r *Runner) Run(point Point, env map[string]string) error {
	if r == nil || r.opts.Dir == "" {
		return nil
	}
	scripts := r.scripts(point)
	if len(scripts) == 0 {
		return nil
	}

	full := make(map[string]string, len(env)+2)
	for k, v := range env {
		full[k] = v
	}
	full["HOOK_POINT"] = string(point)
	full["HOOK_TIMESTAMP"] = time.Now().Format(time.RFC3339)

	r.log.Debug("running hooks", "point", point, "scripts", len(scripts))
	for _, s := range scripts {
		if r.opts.Async {
			if !r.reserve() {
				r.log.Warn("too many pending hooks, skipping", "hook", s.name, "max", r.opts.MaxPending)
				continue
			}
			r.runAsync(s, full)
			continue
		}
		if err := r.runSync(s, full); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) command(ctx context.Context, s script, env map[string]string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, s.path)
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Stdout = r.opts.Output
	cmd.Stderr = r.opts.Output
	return cmd
}

func (r *Runner) runSync(s script, env map[string]string) error {
	start := time.Now()
	err := r.command(context.Background(), s, env).Run()
	if err == nil {
		r.log.Debug("hook completed", "hook", s.name, "duration", time.Since(start))
		return nil
	}
	switch r.opts.FailureMode {
	case FailureAbort:
		return fmt.Errorf("hook %s failed: %w", s.name, err)
	case FailureWarn:
		r.log.Warn("hook failed", "hook", s.name, "error", err)
	}
	return nil
}

func (r *Runner) reserve() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending >= r.opts.MaxPending {
		return false
	}
	r.pending++
	r.wg.Add(1)
	return true
}

func (r *Runner) release() {
	r.mu.Lock()
	r.pending--
	r.mu.Unlock()
	r.wg.Done()
}

func (r *Runner) runAsync(s script, env map[string]string) {
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.AsyncTimeout)
	cmd := r.command(ctx, s, env)
	// grandchildren may keep the output pipe open after a kill
	cmd.WaitDelay = time.Second
	if err := cmd.Start(); err != nil {
		cancel()
		r.release()
		if r.opts.FailureMode != FailureIgnore {
			r.log.Warn("async hook failed to start", "hook", s.name, "error", err)
		}
		return
	}
	start := time.Now()
	go func() {
		defer func() {
			cancel()
			r.release()
		}()
		err := cmd.Wait()
		if ctx.Err() == context.DeadlineExceeded {
			r.log.Warn("async hook timed out", "hook", s.name, "after", time.Since(start))
			return
		}
		if err != nil && r.opts.FailureMode != FailureIgnore {
			r.log.Warn("async hook failed", "hook", s.name, "error", err)
			return
		}
		if err == nil {
			r.log.Debug("async hook completed", "hook", s.name, "duration", time.Since(start))
		}
	}()
}

// Pending returns the number of async scripts still running.
func (r *Runner) Pending() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending
}

// Wait blocks until all async scripts finish.
func (r *Runner) Wait() {
	if r == nil {
		return
	}
	r.wg.Wait()
}

// AlertEnv builds the script environment for an alert.
func AlertEnv(n *domain.Notification) map[string]string {
	env := map[string]string{
		"ALERT_ID":    strconv.FormatInt(n.ID, 10),
		"ALERT_TYPE":  string(n.AlertType),
		"ALERT_LEVEL": string(n.AlertLevel),
		"CAMERA_ID":   strconv.Itoa(n.CameraID),
		"CAMERA_NAME": n.CameraName,
		"PERSON_NAME": n.PersonName,
		"TRACK_ID":    n.TrackID,
	}
	return env
}

// CameraEnv builds the script environment for a camera status change.
func CameraEnv(s domain.CameraStatus) map[string]string {
	return map[string]string{
		"CAMERA_ID":     strconv.Itoa(s.CameraID),
		"CAMERA_NAME":   s.CameraName,
		"CAMERA_STATUS": string(s.Status),
	}
}

// ConnectionEnv builds the script environment for a connection change.
func ConnectionEnv(state domain.ConnectionState) map[string]string {
	return map[string]string{"CONNECTION_STATE": state.String()}
}
