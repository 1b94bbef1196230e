//go:build linux || darwin

package vos

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

// killReapTimeout bounds how long Kill waits for a SIGKILLed child to be
// reaped.
const killReapTimeout = 250 * time.Millisecond

// HostOS runs commands as real child processes of the shell.
type HostOS struct {
	*VIOAdapter
	children

	stdin, stdout, stderr *os.File

	fs        afero.Fs
	shellPgid int
	tty       bool

	// reapMu serializes reaping so statuses are delivered in order.
	reapMu sync.Mutex

	sigchld   chan os.Signal
	done      chan struct{}
	closeOnce sync.Once
}

var _ VOS = (*HostOS)(nil)

// NewHostOS creates the OS and starts reaping children. Call Close to stop
// the reaper.
func NewHostOS(stdin, stdout, stderr *os.File) *HostOS {
	h := &HostOS{
		VIOAdapter: NewVIOAdapter(stdin, stdout, stderr),
		stdin:      stdin,
		stdout:     stdout,
		stderr:     stderr,
		fs:         afero.NewOsFs(),
		shellPgid:  syscall.Getpgrp(),
		tty:        isatty.IsTerminal(stdin.Fd()),
		sigchld:    make(chan os.Signal, 1),
		done:       make(chan struct{}),
	}

	signal.Notify(h.sigchld, syscall.SIGCHLD)
	go h.reapLoop()

	return h
}

// Interactive reports whether stdin is a terminal the shell can hand out.
func (h *HostOS) Interactive() bool {
	return h.tty
}

func (h *HostOS) reapLoop() {
	for {
		select {
		case <-h.done:
			return
		case <-h.sigchld:
			h.reapAll()
		}
	}
}

// Reap implements VProc.Reap.
func (h *HostOS) Reap() {
	h.reapAll()
}

// reapAll collects every pending child status without blocking, SIGCHLD
// deliveries coalesce so one signal may stand for several children.
func (h *HostOS) reapAll() {
	h.reapMu.Lock()
	defer h.reapMu.Unlock()

	for {
		var ws syscall.WaitStatus
		pid, err := syscall.Wait4(-1, &ws, syscall.WNOHANG|syscall.WUNTRACED|syscall.WCONTINUED, nil)
		if err == syscall.EINTR {
			continue
		}
		if err != nil || pid <= 0 {
			return
		}

		h.deliver(statusEvent(pid, ws))
	}
}

func statusEvent(pid int, ws syscall.WaitStatus) ProcEvent {
	ev := ProcEvent{Pid: pid}
	switch {
	case ws.Stopped():
		ev.State = ProcStopped
		ev.Signal = ws.StopSignal()
	case ws.Continued():
		ev.State = ProcContinued
	case ws.Signaled():
		ev.State = ProcExited
		ev.Signal = ws.Signal()
	default:
		ev.State = ProcExited
		ev.ExitCode = ws.ExitStatus()
	}
	return ev
}

// Getwd implements VDir.Getwd.
func (h *HostOS) Getwd() (string, error) {
	return os.Getwd()
}

// Chdir implements VDir.Chdir.
func (h *HostOS) Chdir(dir string) error {
	return os.Chdir(dir)
}

// Getpid implements VProc.Getpid.
func (h *HostOS) Getpid() int {
	return os.Getpid()
}

// StartProcess implements VProc.StartProcess.
func (h *HostOS) StartProcess(argv []string, attr *ProcAttr) (int, error) {
	if len(argv) == 0 {
		return 0, ErrNotFound
	}

	wd, err := os.Getwd()
	if err != nil {
		return 0, err
	}
	path, err := LookPath(h.fs, os.Getenv("PATH"), wd, argv[0])
	if err != nil {
		return 0, err
	}

	// Hold the registry until the child is recorded so the reaper can't
	// deliver its status first.
	h.mu.Lock()
	defer h.mu.Unlock()

	pid, err := syscall.ForkExec(path, argv, &syscall.ProcAttr{
		Env:   os.Environ(),
		Files: []uintptr{h.stdin.Fd(), h.stdout.Fd(), h.stderr.Fd()},
		Sys: &syscall.SysProcAttr{
			Setpgid: true,
		},
	})
	if err != nil {
		return 0, err
	}

	h.register(pid)
	if attr != nil && attr.Started != nil {
		attr.Started(pid)
	}
	return pid, nil
}

// Kill implements VProc.Kill. After SIGKILL it waits up to killReapTimeout
// for the child to be reaped.
func (h *HostOS) Kill(pid int, sig syscall.Signal) error {
	if err := syscall.Kill(pid, sig); err != nil {
		return err
	}
	if sig == syscall.SIGKILL {
		h.awaitExit(pid, killReapTimeout)
	}
	return nil
}

// KillGroup implements VProc.KillGroup.
func (h *HostOS) KillGroup(pgid int, sig syscall.Signal) error {
	return syscall.Kill(-pgid, sig)
}

// Continue implements VProc.Continue. The whole process group is resumed,
// a terminal stop reaches every process in it.
func (h *HostOS) Continue(pid int) error {
	if proc := h.lookup(pid); proc != nil {
		proc.drain()
	}
	return syscall.Kill(-pid, syscall.SIGCONT)
}

func (h *HostOS) awaitExit(pid int, timeout time.Duration) {
	proc := h.lookup(pid)
	if proc == nil {
		return
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-proc.exited:
	case <-timer.C:
	}
}

// SetForeground implements VTerm.SetForeground.
func (h *HostOS) SetForeground(pgid int) error {
	if !h.tty {
		return nil
	}

	signal.Ignore(syscall.SIGTTOU)
	defer signal.Reset(syscall.SIGTTOU)

	return unix.IoctlSetPointerInt(int(h.stdin.Fd()), unix.TIOCSPGRP, pgid)
}

// ReclaimTerminal implements VTerm.ReclaimTerminal.
func (h *HostOS) ReclaimTerminal() error {
	return h.SetForeground(h.shellPgid)
}

// Close stops the reaper.
func (h *HostOS) Close() error {
	h.closeOnce.Do(func() {
		signal.Stop(h.sigchld)
		close(h.done)
	})
	return nil
}
