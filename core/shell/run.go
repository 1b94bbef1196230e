package shell

import (
	"io"
	"log"

	"github.com/abiosoft/readline"
)

// NewReadline creates a line editor on the session's streams. History is
// kept in historyFile when it's set.
func (s *Session) NewReadline(historyFile string, historyLimit int, isTerminal bool) (*readline.Instance, error) {
	cfg := &readline.Config{
		Prompt:       s.Prompt(),
		HistoryFile:  historyFile,
		HistoryLimit: historyLimit,
		Stdin:        readline.NewCancelableStdin(s.OS.Stdin()),
		Stdout:       s.OS.Stdout(),
		Stderr:       s.OS.Stderr(),
		FuncIsTerminal: func() bool {
			return isTerminal
		},
	}

	if err := cfg.Init(); err != nil {
		return nil, err
	}

	return readline.NewEx(cfg)
}

// Run reads and dispatches lines until quit or end of input.
func (s *Session) Run(rl *readline.Instance) {
	stop := s.ForwardSignals()
	defer stop()

	for !s.quit {
		rl.SetPrompt(s.Prompt())
		line, err := rl.Readline()

		switch {
		case err == io.EOF:
			return // Input closed, quit.

		case err == readline.ErrInterrupt:
			// Interrupt clears line.
			continue

		case err != nil:
			log.Printf("Error readline: %v", err)
			return

		case len(line) == 0:
			continue // empty line

		default:
			_ = s.Dispatch(line)
		}
	}
}
