package shell

import "errors"

// Error kinds reported by commands, compare with errors.Is.
var (
	ErrArgumentCount = errors.New("wrong number of arguments")
	ErrArgument      = errors.New("invalid arguments")
	ErrState         = errors.New("shell state not set")
	ErrChdir         = errors.New("chdir failed")
	ErrSpawn         = errors.New("spawn failed")

	// ErrQuit is returned by the quit builtin to end the session.
	ErrQuit = errors.New("quit")
)

// CommandError is a user facing failure of a single command.
type CommandError struct {
	// Command is the name of the failing command.
	Command string
	// Kind is the error kind, one of the Err* values or an error from the
	// jobs package.
	Kind error
	// Msg is the message shown to the user.
	Msg string
}

func (e *CommandError) Error() string {
	return e.Command + ": " + e.Msg
}

func (e *CommandError) Unwrap() error {
	return e.Kind
}

func newError(command string, kind error, msg string) error {
	return &CommandError{Command: command, Kind: kind, Msg: msg}
}
