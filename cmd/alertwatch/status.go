/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/1063537326/video-warning-0127/internal/client"
	"github.com/1063537326/video-warning-0127/internal/inbox"
	"github.com/1063537326/video-warning-0127/internal/logging"
	"github.com/1063537326/video-warning-0127/internal/status"
	"github.com/1063537326/video-warning-0127/internal/transport"
)

const defaultCaptureWindow = 2 * time.Second

// StatusOptions holds all parameters of one status run.
type StatusOptions struct {
	Settings settings
	Dialer   transport.Dialer
	Logger   logging.Logger
	// Wait is how long events are collected before the summary is taken.
	Wait   time.Duration
	Format string
}

// NewStatusCmd creates the status command.
func NewStatusCmd(d deps, g *globalFlags) *cobra.Command {
	var (
		format string
		wait   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print a one-shot connection and alert summary",
		Long: `Connect, collect events for a short window and print a summary.

Formats:
    compact     ● connected  3 unread  1 toast  cams 2/3
    detailed    adds the client id, unread counts per level and engine state
    count-only  only the unread count`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := loadSettings()
			g.apply(cmd, &s)
			if !cmd.Flags().Changed("format") {
				format = s.StatusFormat
			}
			if err := s.Endpoint.Validate(); err != nil {
				return err
			}
			line, err := Status(cmd.Context(), StatusOptions{
				Settings: s,
				Dialer:   d.Dialer,
				Logger:   consoleLogger(d.Stderr),
				Wait:     wait,
				Format:   format,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "output format (compact, detailed, count-only)")
	cmd.Flags().DurationVar(&wait, "wait", defaultCaptureWindow, "how long to collect events")
	return cmd
}

// Status connects, waits for the capture window and renders the summary.
func Status(ctx context.Context, o StatusOptions) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if o.Wait <= 0 {
		o.Wait = defaultCaptureWindow
	}
	s := o.Settings
	c := client.New(client.Options{
		Endpoint:    s.Endpoint,
		Credentials: s.credentials(),
		Dialer:      o.Dialer,
		Logger:      o.Logger,
		Inbox: inbox.New(inbox.Options{
			AlertCapacity: s.AlertCapacity,
			ToastCapacity: s.ToastCapacity,
			Logger:        o.Logger,
		}),
		// at most one retry inside the capture window
		MaxReconnectAttempts: 1,
		ReconnectInterval:    o.Wait / 2,
		HeartbeatInterval:    s.HeartbeatInterval,
		Cameras:              s.Cameras,
	})
	defer c.Close()
	c.Start()

	timer := time.NewTimer(o.Wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
	return status.Render(snapshot(c), o.Format)
}
