// Package shell implements the smash command dispatcher and its builtins.
package shell

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/NadavTAshkenazi/smash/core/jobs"
	"github.com/NadavTAshkenazi/smash/core/logger"
	"github.com/NadavTAshkenazi/smash/core/vos"
	"github.com/fatih/color"
)

const (
	DefaultPrompt          = "smash"
	DefaultPromptDelimiter = ">"
	DefaultKillMarker      = "kill"
)

// Options configures a Session, zero values pick the defaults.
type Options struct {
	Prompt          string
	PromptDelimiter string
	// KillMarker is the quit argument that kills every job before exiting.
	KillMarker string
	// Color prints error prefixes in color.
	Color bool
	// Events receives the session's event log.
	Events logger.Recorder
	// Now is the clock used for job timestamps.
	Now func() time.Time
}

// Session holds the state shared by every command of one shell.
type Session struct {
	OS   vos.VOS
	Jobs *jobs.Table

	events        logger.Recorder
	errColor      *color.Color
	defaultPrompt string
	delimiter     string
	killMarker    string
	prompt        string

	// lastDir is the working directory before the last successful cd.
	lastDir    string
	lastDirSet bool

	// fgPid is the pid of the process in the foreground, 0 if none.
	fgPid atomic.Int64
	quit  bool
}

// NewSession creates a session and subscribes its job table to the child
// status events of virtOS.
func NewSession(virtOS vos.VOS, opts Options) *Session {
	if opts.Prompt == "" {
		opts.Prompt = DefaultPrompt
	}
	if opts.PromptDelimiter == "" {
		opts.PromptDelimiter = DefaultPromptDelimiter
	}
	if opts.KillMarker == "" {
		opts.KillMarker = DefaultKillMarker
	}
	if opts.Events == nil {
		opts.Events = logger.Discard
	}

	errColor := color.New(color.FgRed, color.Bold)
	if opts.Color {
		errColor.EnableColor()
	} else {
		errColor.DisableColor()
	}

	s := &Session{
		OS:            virtOS,
		Jobs:          jobs.NewTable(opts.Now),
		events:        opts.Events,
		errColor:      errColor,
		defaultPrompt: opts.Prompt + opts.PromptDelimiter,
		delimiter:     opts.PromptDelimiter,
		killMarker:    opts.KillMarker,
	}
	s.prompt = s.defaultPrompt

	virtOS.SetEventHandler(s.observe)
	s.record(&logger.SessionEvent{Event: logger.SessionStarted, Pid: virtOS.Getpid()})
	return s
}

// Prompt returns the text shown before reading a command.
func (s *Session) Prompt() string {
	return s.prompt + " "
}

// Quitting reports whether quit ran.
func (s *Session) Quitting() bool {
	return s.quit
}

// observe is called from the reaper for every child status change.
func (s *Session) observe(ev vos.ProcEvent) {
	s.Jobs.Observe(ev)

	update := &logger.JobUpdate{Pid: ev.Pid}
	switch ev.State {
	case vos.ProcExited:
		update.Status = logger.JobExited
		if ev.Signaled() {
			update.Status = logger.JobKilled
			update.Signal = ev.Signal.String()
		}
	case vos.ProcStopped:
		update.Status = logger.JobStopped
		update.Signal = ev.Signal.String()
	case vos.ProcContinued:
		update.Status = logger.JobResumed
	}
	s.record(update)
}

func (s *Session) record(event logger.LogType) {
	_ = s.events.Record(event)
}

func (s *Session) printf(format string, a ...interface{}) {
	fmt.Fprintf(s.OS.Stdout(), format, a...)
}

// reportError writes "smash error: <err>" to stderr.
func (s *Session) reportError(err error) {
	w := s.OS.Stderr()
	s.errColor.Fprint(w, "smash error:")
	fmt.Fprintf(w, " %v\n", err)
}
