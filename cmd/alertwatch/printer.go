/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/1063537326/video-warning-0127/internal/colors"
	"github.com/1063537326/video-warning-0127/internal/domain"
	"github.com/1063537326/video-warning-0127/internal/formatter"
	"github.com/1063537326/video-warning-0127/internal/inbox"
	"github.com/1063537326/video-warning-0127/internal/protocol"
	"github.com/1063537326/video-warning-0127/internal/status"
)

const timeLayout = "15:04:05"

// printer writes watch output. Events arrive from several goroutines.
type printer struct {
	mu         sync.Mutex
	out        io.Writer
	filter     domain.Filter
	format     string
	template   string
	tmplEngine formatter.TemplateEngine
	lastStatus string
}

// newPrinter resolves alertFormat, a preset name or a template.
func newPrinter(out io.Writer, filter domain.Filter, format, alertFormat string) (*printer, error) {
	tmpl, err := formatter.Lookup(formatter.NewPresetRegistry(), alertFormat)
	if err != nil {
		return nil, err
	}
	return &printer{
		out:        out,
		filter:     filter,
		format:     format,
		template:   tmpl,
		tmplEngine: formatter.NewTemplateEngine(),
	}, nil
}

func (p *printer) println(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, line)
}

// alert prints alerts that changed the persistent list and pass the filter.
func (p *printer) alert(out inbox.Outcome) {
	if !out.Alert.Changed() || out.Alert.Entry == nil {
		return
	}
	entry := out.Alert.Entry
	if !p.filter.IsEmpty() && !entry.MatchesFilter(p.filter) {
		return
	}
	line, err := p.tmplEngine.Substitute(p.template, formatter.VariableContext{
		Alert:        entry,
		Outcome:      out.Alert.Label(),
		ToastOutcome: out.Toast.Label(),
		LevelStyle: func(level domain.AlertLevel, text string) string {
			return colors.ForLevel(string(level)).Render(text)
		},
	})
	if err != nil {
		line = fmt.Sprintf("#%d %s (%v)", entry.ID, entry.Label(), err)
	}
	p.println(line)
}

func (p *printer) camera(s domain.CameraStatus) {
	line := fmt.Sprintf("%s camera %d", s.UpdatedAt.Format(timeLayout), s.CameraID)
	if s.CameraName != "" {
		line += " " + s.CameraName
	}
	line += " " + string(s.Status)
	if s.Message != "" {
		line += ": " + s.Message
	}
	p.println(line)
}

func (p *printer) engine(s domain.EngineStatus) {
	p.println(fmt.Sprintf("%s engine %s %d/%d", s.UpdatedAt.Format(timeLayout), s.Status, s.RunningCameraCount, s.CameraCount))
}

func (p *printer) notice(n domain.SystemNotice) {
	tag := colors.ForLevel(n.Level).Render("NOTICE")
	line := fmt.Sprintf("%s %s %s", n.ReceivedAt.Format(timeLayout), tag, n.Title)
	if n.Message != "" {
		line += ": " + n.Message
	}
	p.println(line)
}

func (p *printer) serverError(e protocol.ServerError) {
	p.println(fmt.Sprintf("%s %s %s", time.Now().Format(timeLayout), colors.ForLevel("critical").Render("ERROR"), e.Error()))
}

// status prints the summary line when it differs from the last one.
func (p *printer) status(s status.Snapshot) {
	line, err := status.Render(s, p.format)
	if err != nil {
		line, _ = status.Render(s, status.FormatCompact)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if line == p.lastStatus {
		return
	}
	p.lastStatus = line
	fmt.Fprintln(p.out, "-- "+line)
}
