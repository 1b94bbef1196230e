package shell

import (
	"fmt"
	"io"
	"sort"
	"strings"

	getopt "github.com/pborman/getopt/v2"
)

// Command is a parsed command line ready to run in a session.
type Command interface {
	// Args returns the command's arguments, Args()[0] is the command name.
	Args() []string
	// Execute runs the command. Failures are *CommandError values or ErrQuit.
	Execute() error
}

// BuiltinFunc implements a builtin. args has metacharacter tokens removed.
type BuiltinFunc func(s *Session, args []string) error

// AllBuiltins holds every builtin keyed by the exact command name.
var AllBuiltins map[string]BuiltinFunc

func init() {
	AllBuiltins = map[string]BuiltinFunc{
		"chprompt": ChangePrompt,
		"showpid":  ShowPid,
		"pwd":      Pwd,
		"cd":       ChangeDir,
		"jobs":     Jobs,
		"kill":     Kill,
		"fg":       Foreground,
		"bg":       Background,
		"quit":     Quit,
	}
}

// BuiltinNames returns the builtin names in sorted order.
func BuiltinNames() []string {
	var names []string
	for name := range AllBuiltins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtin is a command executed inside the shell process.
type Builtin struct {
	session *Session
	args    []string
	main    BuiltinFunc
}

var _ Command = (*Builtin)(nil)

func (b *Builtin) Args() []string {
	return b.args
}

func (b *Builtin) Execute() error {
	return b.main(b.session, b.args)
}

// NewCommand classifies tokens by their exact first word. Anything that
// isn't a builtin is an external command.
func (s *Session) NewCommand(tokens []string) (Command, error) {
	if len(tokens) == 0 {
		return nil, newError("smash", ErrArgument, "empty command")
	}

	if main, ok := AllBuiltins[tokens[0]]; ok {
		return &Builtin{
			session: s,
			args:    stripMetaTokens(tokens),
			main:    main,
		}, nil
	}

	return NewExternal(s, tokens), nil
}

// builtinSpec holds the usage of a builtin and parses its flags.
type builtinSpec struct {
	// Use holds a one line usage string.
	Use string
	// Short holds a one line description of the command.
	Short string
	// NeverBail passes the raw arguments through when flag parsing fails.
	NeverBail bool
}

func (b *builtinSpec) printHelp(w io.Writer, flags *getopt.Set) {
	fmt.Fprint(w, "usage: ")
	fmt.Fprintln(w, b.Use)
	fmt.Fprintln(w, b.Short)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	flags.PrintOptions(w)
}

// run parses args and calls the callback with the positional arguments.
// --help prints the usage instead. Other dash words are positional, so
// "cd -" and "cd -dir" reach the callback untouched.
func (b *builtinSpec) run(s *Session, args []string, callback func(rest []string) error) error {
	if !hasOptions(args[1:]) {
		return callback(args[1:])
	}

	flags := getopt.New()
	showHelp := flags.BoolLong("help", 'h', "show this help and exit")

	if err := flags.Getopt(args, nil); err != nil {
		if !b.NeverBail {
			return newError(args[0], ErrArgument, "invalid arguments")
		}
		return callback(args[1:])
	}

	if *showHelp {
		b.printHelp(s.OS.Stdout(), flags)
		return nil
	}

	return callback(flags.Args())
}

// hasOptions reports whether args hold the help flag or a "--" terminator
// before the first positional argument.
func hasOptions(args []string) bool {
	for _, arg := range args {
		switch arg {
		case "-h", "--help", "--":
			return true
		}
		if !strings.HasPrefix(arg, "-") {
			return false
		}
	}
	return false
}
