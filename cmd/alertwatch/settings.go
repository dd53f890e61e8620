/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package main

import (
	"io"
	"time"

	"github.com/1063537326/video-warning-0127/internal/config"
	"github.com/1063537326/video-warning-0127/internal/formatter"
	"github.com/1063537326/video-warning-0127/internal/heartbeat"
	"github.com/1063537326/video-warning-0127/internal/inbox"
	"github.com/1063537326/video-warning-0127/internal/reconnect"
	"github.com/1063537326/video-warning-0127/internal/sound"
	"github.com/1063537326/video-warning-0127/internal/transport"
)

// settings is the resolved configuration of one command run.
type settings struct {
	Endpoint             transport.Endpoint
	Token                string
	TokenFile            string
	ReconnectInterval    time.Duration
	MaxReconnectAttempts int
	HeartbeatInterval    time.Duration
	Cameras              []int
	AlertCapacity        int
	ToastCapacity        int
	ToastTTL             time.Duration
	SoundEnabled         bool
	SoundCommand         string
	SoundRate            float64
	StatusFormat         string
	AlertFormat          string
	MetricsAddr          string
}

// loadSettings reads the loaded configuration.
func loadSettings() settings {
	return settings{
		Endpoint: transport.Endpoint{
			Host:   config.Get("host", "localhost:8000"),
			Secure: config.GetBool("secure", false),
		},
		Token:                config.Get("token", ""),
		TokenFile:            config.Get("token_file", ""),
		ReconnectInterval:    config.GetDuration("reconnect_interval", reconnect.DefaultBase),
		MaxReconnectAttempts: config.GetInt("max_reconnect_attempts", reconnect.DefaultMaxAttempts),
		HeartbeatInterval:    config.GetDuration("heartbeat_interval", heartbeat.DefaultInterval),
		Cameras:              config.GetIntList("cameras"),
		AlertCapacity:        config.GetInt("alert_capacity", inbox.DefaultAlertCapacity),
		ToastCapacity:        config.GetInt("toast_capacity", inbox.DefaultToastCapacity),
		ToastTTL:             config.GetDuration("toast_ttl", 10*time.Second),
		SoundEnabled:         config.GetBool("sound_enabled", true),
		SoundCommand:         config.Get("sound_command", ""),
		SoundRate:            config.GetFloat("sound_rate", 1),
		StatusFormat:         config.Get("status_format", "compact"),
		AlertFormat:          config.Get("alert_format", formatter.DefaultPreset),
		MetricsAddr:          config.Get("metrics_addr", ""),
	}
}

// credentials prefers an explicit token over the token file.
func (s settings) credentials() transport.CredentialProvider {
	chain := transport.Chain{transport.StaticToken(s.Token)}
	if s.TokenFile != "" {
		chain = append(chain, transport.FileToken{Path: s.TokenFile})
	}
	return chain
}

// player builds the sound cue. Without a command it rings the terminal bell
// on w.
func (s settings) player(w io.Writer) sound.Player {
	var p sound.Player = sound.NewBell(w)
	if cmd := sound.ParseCommand(s.SoundCommand); cmd != nil {
		p = cmd
	}
	return sound.NewThrottled(p, s.SoundRate, 1)
}
