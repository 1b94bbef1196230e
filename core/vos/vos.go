package vos

import (
	"errors"
	"fmt"
	"syscall"
)

// ErrNoProcess is returned when waiting on a process the OS never started
// or that was already reaped and released.
var ErrNoProcess = errors.New("no such child process")

// ProcState is the kind of status change reported for a child.
type ProcState int

const (
	ProcExited ProcState = iota
	ProcStopped
	ProcContinued
)

func (p ProcState) String() string {
	switch p {
	case ProcExited:
		return "exited"
	case ProcStopped:
		return "stopped"
	case ProcContinued:
		return "continued"
	default:
		return fmt.Sprintf("ProcState(%d)", int(p))
	}
}

// ProcEvent is a status change of a child process.
type ProcEvent struct {
	Pid   int
	State ProcState
	// ExitCode is set for processes that exited normally.
	ExitCode int
	// Signal is the signal that killed or stopped the process.
	Signal syscall.Signal
}

// Signaled reports whether the process was terminated by a signal.
func (p ProcEvent) Signaled() bool {
	return p.State == ProcExited && p.Signal != 0
}

// EventHandler receives child status changes. It's called from the reaper so
// it must not block.
type EventHandler func(ProcEvent)

// ProcAttr holds optional attributes for StartProcess.
type ProcAttr struct {
	// Started is called with the new pid before any status change of the
	// process can reach the EventHandler.
	Started func(pid int)
}

// VDir is the working directory of the shell process.
type VDir interface {
	Getwd() (string, error)
	Chdir(dir string) error
}

// VProc controls the shell's child processes.
type VProc interface {
	// Getpid returns the shell's own process id.
	Getpid() int

	// StartProcess starts argv in a new process group and returns its pid.
	StartProcess(argv []string, attr *ProcAttr) (int, error)

	// Kill sends a signal to a process.
	Kill(pid int, sig syscall.Signal) error

	// KillGroup sends a signal to every process in a process group.
	KillGroup(pgid int, sig syscall.Signal) error

	// Continue drops stale status notifications for the process then sends
	// SIGCONT to its process group.
	Continue(pid int) error

	// Wait blocks until the process exits or stops.
	Wait(pid int) (ProcEvent, error)

	// Release forgets a process that was reaped without a Wait.
	Release(pid int)

	// Reap collects pending child statuses without blocking and hands them to
	// the EventHandler before returning.
	Reap()

	// SetEventHandler installs the handler called for every status change.
	SetEventHandler(EventHandler)
}

// VTerm hands the controlling terminal between the shell and its jobs.
type VTerm interface {
	// SetForeground gives the terminal to the process group.
	SetForeground(pgid int) error
	// ReclaimTerminal gives the terminal back to the shell.
	ReclaimTerminal() error
}

// VOS is the operating system as seen by the shell.
type VOS interface {
	VDir
	VProc
	VTerm
	VIO
}
