package shell

import (
	"strings"

	"github.com/NadavTAshkenazi/smash/core/jobs"
)

// External is a command run as a child process.
type External struct {
	session    *Session
	args       []string
	background bool
	pid        int
}

var (
	_ Command  = (*External)(nil)
	_ jobs.Job = (*External)(nil)
)

// NewExternal creates an external command. A trailing "&" token is removed
// and marks the command to run in the background.
func NewExternal(s *Session, tokens []string) *External {
	args := append([]string(nil), tokens...)
	background := false
	if n := len(args); n > 0 && args[n-1] == BackgroundMarker {
		args = args[:n-1]
		background = true
	}

	return &External{
		session:    s,
		args:       args,
		background: background,
	}
}

func (e *External) Args() []string {
	return e.args
}

// Background reports whether the command runs without holding the terminal.
func (e *External) Background() bool {
	return e.background
}

// Pid is the process id once the command started, 0 before.
func (e *External) Pid() int {
	return e.pid
}

// Name is the command name, argv[0].
func (e *External) Name() string {
	if len(e.args) == 0 {
		return ""
	}
	return e.args[0]
}

// String is the command line without the background marker.
func (e *External) String() string {
	return strings.Join(e.args, " ")
}

// Execute starts the process, see Session.runExternal.
func (e *External) Execute() error {
	return e.session.runExternal(e)
}
