/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/1063537326/video-warning-0127/internal/client"
	"github.com/1063537326/video-warning-0127/internal/domain"
	"github.com/1063537326/video-warning-0127/internal/formatter"
	"github.com/1063537326/video-warning-0127/internal/hooks"
	"github.com/1063537326/video-warning-0127/internal/inbox"
	"github.com/1063537326/video-warning-0127/internal/logging"
	"github.com/1063537326/video-warning-0127/internal/metrics"
	"github.com/1063537326/video-warning-0127/internal/status"
	"github.com/1063537326/video-warning-0127/internal/transport"
)

// WatchOptions holds all parameters of one watch run.
type WatchOptions struct {
	Settings settings
	Filter   domain.Filter
	Dialer   transport.Dialer
	Logger   logging.Logger
	Hooks    *hooks.Runner
	Output   io.Writer
	// ExpireEvery is how often toasts are checked for expiry.
	ExpireEvery time.Duration
}

// NewWatchCmd creates the watch command.
func NewWatchCmd(d deps, g *globalFlags) *cobra.Command {
	var (
		cameras     []int
		level       string
		alertType   string
		camera      int
		format      string
		alertFormat string
		noSound     bool
		metricsAddr string
		toastTTL    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream alerts, toasts and camera status",
		Long: `Connect to the server and print alerts as they arrive.

Alerts from the same track are merged, so a stranger later recognized as a
known person updates the earlier line instead of adding a new one. A status
line is printed whenever the summary changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := loadSettings()
			g.apply(cmd, &s)
			flags := cmd.Flags()
			if flags.Changed("cameras") {
				s.Cameras = cameras
			}
			if flags.Changed("format") {
				s.StatusFormat = format
			}
			if flags.Changed("alert-format") {
				s.AlertFormat = alertFormat
			}
			if _, err := formatter.Lookup(formatter.NewPresetRegistry(), s.AlertFormat); err != nil {
				return err
			}
			if noSound {
				s.SoundEnabled = false
			}
			if flags.Changed("metrics-addr") {
				s.MetricsAddr = metricsAddr
			}
			if flags.Changed("toast-ttl") {
				s.ToastTTL = toastTTL
			}
			if err := s.Endpoint.Validate(); err != nil {
				return err
			}
			filter, err := domain.FilterOptions{Level: level, Type: alertType, CameraID: camera}.ToFilter()
			if err != nil {
				return err
			}

			log := consoleLogger(d.Stderr)
			var runner *hooks.Runner
			if ho, ok := hooks.OptionsFromConfig(); ok {
				ho.Logger = log
				runner = hooks.New(ho)
				if err := runner.Init(); err != nil {
					log.Warn("hooks disabled", "error", err)
					runner = nil
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Watch(ctx, WatchOptions{
				Settings: s,
				Filter:   filter,
				Dialer:   d.Dialer,
				Logger:   log,
				Hooks:    runner,
				Output:   cmd.OutOrStdout(),
			})
		},
	}

	f := cmd.Flags()
	f.IntSliceVar(&cameras, "cameras", nil, "camera ids to subscribe to")
	f.StringVar(&level, "level", "", "only print alerts at or above this level (info, warning, critical)")
	f.StringVar(&alertType, "type", "", "only print alerts of this type (stranger, known, blacklist)")
	f.IntVar(&camera, "camera", 0, "only print alerts from this camera")
	f.StringVar(&format, "format", "", "status line format (compact, detailed, count-only)")
	f.StringVar(&alertFormat, "alert-format", "", "alert line preset (default, compact, detailed, tsv) or a {{variable}} template")
	f.BoolVar(&noSound, "no-sound", false, "disable the sound cue")
	f.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	f.DurationVar(&toastTTL, "toast-ttl", 0, "drop toasts older than this")
	return cmd
}

// Watch runs until ctx is done.
func Watch(ctx context.Context, o WatchOptions) error {
	if o.Output == nil {
		o.Output = os.Stdout
	}
	if o.Logger == nil {
		o.Logger = logging.Nop()
	}
	if o.ExpireEvery <= 0 {
		o.ExpireEvery = time.Second
	}
	s := o.Settings
	p, err := newPrinter(o.Output, o.Filter, s.StatusFormat, s.AlertFormat)
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if s.MetricsAddr != "" {
		m = metrics.New()
		go func() {
			if err := m.Serve(ctx, s.MetricsAddr); err != nil {
				o.Logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	in := inbox.New(inbox.Options{
		AlertCapacity: s.AlertCapacity,
		ToastCapacity: s.ToastCapacity,
		Player:        s.player(o.Output),
		SoundEnabled:  s.SoundEnabled,
		Logger:        o.Logger,
	})

	var c *client.Client
	refresh := func() { p.status(snapshot(c)) }
	c = client.New(client.Options{
		Endpoint:             s.Endpoint,
		Credentials:          s.credentials(),
		Dialer:               o.Dialer,
		Logger:               o.Logger,
		Metrics:              m,
		Hooks:                o.Hooks,
		Inbox:                in,
		ReconnectInterval:    s.ReconnectInterval,
		MaxReconnectAttempts: s.MaxReconnectAttempts,
		HeartbeatInterval:    s.HeartbeatInterval,
		Cameras:              s.Cameras,
		Events: client.Events{
			OnState: func(domain.ConnectionState) { refresh() },
			OnAlert: func(_ *domain.Notification, out inbox.Outcome) {
				p.alert(out)
				refresh()
			},
			OnCamera: func(cs domain.CameraStatus) {
				p.camera(cs)
				refresh()
			},
			OnEngine: func(es domain.EngineStatus) {
				p.engine(es)
				refresh()
			},
			OnNotice:      p.notice,
			OnServerError: p.serverError,
		},
	})
	defer func() {
		c.Close()
		o.Hooks.Wait()
	}()

	o.Logger.Info("watching", "host", s.Endpoint.Host, "cameras", fmt.Sprint(s.Cameras))
	c.Start()

	ticker := time.NewTicker(o.ExpireEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if n := in.ExpireToasts(now, s.ToastTTL); n > 0 {
				refresh()
			}
		}
	}
}

func snapshot(c *client.Client) status.Snapshot {
	snap := status.Snapshot{
		State:    c.State(),
		ClientID: c.ClientID(),
		Alerts:   c.Inbox().Alerts(),
		Toasts:   len(c.Inbox().Toasts()),
		Cameras:  c.Cameras(),
	}
	if e, ok := c.Engine(); ok {
		snap.Engine = &e
	}
	return snap
}
