/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/1063537326/video-warning-0127/internal/colors"
	"github.com/1063537326/video-warning-0127/internal/config"
	"github.com/1063537326/video-warning-0127/internal/logging"
	"github.com/1063537326/video-warning-0127/internal/transport"
	"github.com/1063537326/video-warning-0127/internal/version"
)

// deps are the seams tests replace.
type deps struct {
	Dialer transport.Dialer
	// Stderr receives console logs.
	Stderr io.Writer
}

func defaultDeps() deps {
	return deps{
		Dialer: transport.GorillaDialer{Header: map[string][]string{"User-Agent": {version.UserAgent()}}},
		Stderr: os.Stderr,
	}
}

// globalFlags override configuration for one run.
type globalFlags struct {
	host   string
	secure bool
	token  string
	debug  bool
	quiet  bool
}

// apply overlays flags the user set on s.
func (g *globalFlags) apply(cmd *cobra.Command, s *settings) {
	flags := cmd.Flags()
	if flags.Changed("host") {
		s.Endpoint.Host = g.host
	}
	if flags.Changed("secure") {
		s.Endpoint.Secure = g.secure
	}
	if flags.Changed("token") {
		s.Token = g.token
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd(d deps) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "alertwatch",
		Short:         "Real-time alert notifications from a surveillance server.",
		Long:          `Real-time alert notifications from a surveillance server.`,
		Version:       version.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// flags feed the env layer so logging sees them on load
			if flags.debug {
				os.Setenv(config.EnvPrefix+"DEBUG", "true")
			}
			if flags.quiet {
				os.Setenv(config.EnvPrefix+"QUIET", "true")
			}
			config.Load()
			colors.SetDebug(config.GetBool("debug", false))
			if err := logging.InitGlobal(); err != nil {
				colors.Warning(fmt.Sprintf("file logging disabled: %v", err))
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logging.ShutdownGlobal()
		},
	}
	root.CompletionOptions.HiddenDefaultCmd = true
	root.SetVersionTemplate("alertwatch version {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&flags.host, "host", "", "server host:port (default from config)")
	pf.BoolVar(&flags.secure, "secure", false, "use wss")
	pf.StringVar(&flags.token, "token", "", "access token (default from $ALERTWATCH_TOKEN or token_file)")
	pf.BoolVar(&flags.debug, "debug", false, "enable debug output")
	pf.BoolVar(&flags.quiet, "quiet", false, "only log errors")

	root.AddCommand(
		NewWatchCmd(d, flags),
		NewStatusCmd(d, flags),
		NewVersionCmd(),
	)
	return root
}

// consoleLogger returns the file logger when file logging is on, otherwise
// a console logger on w.
func consoleLogger(w io.Writer) logging.Logger {
	if logging.CurrentLogFile() != "" {
		return logging.GetGlobal()
	}
	return logging.NewWriter(w, strings.ToLower(logging.FromGlobalConfig().Level))
}
