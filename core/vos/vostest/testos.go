// Package vostest provides a deterministic in-memory OS for tests.
package vostest

import (
	"bytes"
	"io/fs"
	"path"
	"sync"
	"syscall"

	"github.com/NadavTAshkenazi/smash/core/vos"
	"github.com/spf13/afero"
)

const (
	// ShellPid is the pid reported by Getpid.
	ShellPid = 4242
	// FirstPid is the pid given to the first started process.
	FirstPid = 1000
	// HomeDir is the initial working directory.
	HomeDir = "/home/user"
)

// Proc is a fake child process.
type Proc struct {
	Pid     int
	Argv    []string
	Signals []syscall.Signal
	Stopped bool
	Exited  bool

	// waits holds the outcomes handed out by successive Wait calls.
	waits []vos.ProcState
}

// FakeOS implements vos.VOS without touching the host. Directories live in
// an afero.MemMapFs, processes never run and only change state when
// signaled, waited on or told to exit.
type FakeOS struct {
	*vos.VIOAdapter

	Fs   afero.Fs
	Path string
	Out  *bytes.Buffer
	Err  *bytes.Buffer

	// Terminal is the process group owning the terminal, 0 for the shell.
	Terminal int

	mu      sync.Mutex
	dir     string
	nextPid int
	procs   map[int]*Proc
	scripts map[int][]vos.ProcState
	handler vos.EventHandler
}

var _ vos.VOS = (*FakeOS)(nil)

// NewFakeOS creates a fake OS with a small directory tree and a few
// executables under /bin.
func NewFakeOS() *FakeOS {
	memFs := afero.NewMemMapFs()
	for _, dir := range []string{"/etc", "/tmp", HomeDir, "/bin", "/usr/bin"} {
		_ = memFs.MkdirAll(dir, 0755)
	}
	_ = afero.WriteFile(memFs, "/etc/motd", []byte("hello\n"), 0644)
	for _, name := range []string{"sleep", "cat", "ls", "vim", "echo"} {
		_ = afero.WriteFile(memFs, path.Join("/bin", name), nil, 0755)
	}
	_ = afero.WriteFile(memFs, "/bin/noexec", nil, 0644)

	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	return &FakeOS{
		VIOAdapter: vos.NewVIOAdapter(nil, out, errOut),
		Fs:         memFs,
		Path:       "/bin:/usr/bin",
		Out:        out,
		Err:        errOut,
		dir:        HomeDir,
		nextPid:    FirstPid,
		procs:      make(map[int]*Proc),
		scripts:    make(map[int][]vos.ProcState),
	}
}

// Getwd implements vos.VDir.Getwd.
func (f *FakeOS) Getwd() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dir, nil
}

// Chdir implements vos.VDir.Chdir.
func (f *FakeOS) Chdir(dir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	resolved := dir
	if !path.IsAbs(resolved) {
		resolved = path.Join(f.dir, resolved)
	}
	resolved = path.Clean(resolved)

	stat, err := f.Fs.Stat(resolved)
	switch {
	case err != nil:
		return &fs.PathError{Op: "chdir", Path: dir, Err: syscall.ENOENT}
	case !stat.IsDir():
		return &fs.PathError{Op: "chdir", Path: dir, Err: syscall.ENOTDIR}
	case stat.Mode().Perm()&0111 == 0:
		return &fs.PathError{Op: "chdir", Path: dir, Err: syscall.EACCES}
	}

	f.dir = resolved
	return nil
}

// Getpid implements vos.VProc.Getpid.
func (f *FakeOS) Getpid() int {
	return ShellPid
}

// StartProcess implements vos.VProc.StartProcess.
func (f *FakeOS) StartProcess(argv []string, attr *vos.ProcAttr) (int, error) {
	if len(argv) == 0 {
		return 0, vos.ErrNotFound
	}

	f.mu.Lock()
	if _, err := vos.LookPath(f.Fs, f.Path, f.dir, argv[0]); err != nil {
		f.mu.Unlock()
		return 0, err
	}

	pid := f.nextPid
	f.nextPid++
	f.procs[pid] = &Proc{
		Pid:   pid,
		Argv:  append([]string(nil), argv...),
		waits: f.scripts[pid],
	}
	delete(f.scripts, pid)
	f.mu.Unlock()

	if attr != nil && attr.Started != nil {
		attr.Started(pid)
	}
	return pid, nil
}

// Proc returns a copy of the fake process with the given pid.
func (f *FakeOS) Proc(pid int) (Proc, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	proc, ok := f.procs[pid]
	if !ok {
		return Proc{}, false
	}
	out := *proc
	out.Signals = append([]syscall.Signal(nil), proc.Signals...)
	return out, true
}

// ScriptWait queues the outcomes of the next Wait calls on pid, which may not
// be started yet. Without a script a wait ends with the process exiting.
func (f *FakeOS) ScriptWait(pid int, states ...vos.ProcState) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if proc, ok := f.procs[pid]; ok {
		proc.waits = append(proc.waits, states...)
		return
	}
	f.scripts[pid] = append(f.scripts[pid], states...)
}

// Exit makes a running process exit on its own.
func (f *FakeOS) Exit(pid, code int) {
	f.transition(pid, vos.ProcEvent{Pid: pid, State: vos.ProcExited, ExitCode: code})
}

// Stop makes a running process stop as if it got SIGTSTP.
func (f *FakeOS) Stop(pid int) {
	f.transition(pid, vos.ProcEvent{Pid: pid, State: vos.ProcStopped, Signal: syscall.SIGTSTP})
}

// Kill implements vos.VProc.Kill.
func (f *FakeOS) Kill(pid int, sig syscall.Signal) error {
	f.mu.Lock()
	proc, ok := f.procs[pid]
	if !ok || proc.Exited {
		f.mu.Unlock()
		return syscall.ESRCH
	}
	proc.Signals = append(proc.Signals, sig)
	f.mu.Unlock()

	switch sig {
	case syscall.SIGKILL, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP:
		f.transition(pid, vos.ProcEvent{Pid: pid, State: vos.ProcExited, Signal: sig})
	case syscall.SIGSTOP, syscall.SIGTSTP:
		f.transition(pid, vos.ProcEvent{Pid: pid, State: vos.ProcStopped, Signal: sig})
	case syscall.SIGCONT:
		f.transition(pid, vos.ProcEvent{Pid: pid, State: vos.ProcContinued})
	}
	return nil
}

// KillGroup implements vos.VProc.KillGroup. Fake processes have no children
// so the group is just its leader.
func (f *FakeOS) KillGroup(pgid int, sig syscall.Signal) error {
	return f.Kill(pgid, sig)
}

// Continue implements vos.VProc.Continue.
func (f *FakeOS) Continue(pid int) error {
	return f.Kill(pid, syscall.SIGCONT)
}

// Wait implements vos.VProc.Wait.
func (f *FakeOS) Wait(pid int) (vos.ProcEvent, error) {
	f.mu.Lock()
	proc, ok := f.procs[pid]
	if !ok {
		f.mu.Unlock()
		return vos.ProcEvent{}, vos.ErrNoProcess
	}
	if proc.Exited {
		f.mu.Unlock()
		return vos.ProcEvent{Pid: pid, State: vos.ProcExited}, nil
	}

	next := vos.ProcExited
	if len(proc.waits) > 0 {
		next = proc.waits[0]
		proc.waits = proc.waits[1:]
	}
	f.mu.Unlock()

	ev := vos.ProcEvent{Pid: pid, State: next}
	if next == vos.ProcStopped {
		ev.Signal = syscall.SIGTSTP
	}
	f.transition(pid, ev)
	return ev, nil
}

// Release implements vos.VProc.Release.
func (f *FakeOS) Release(pid int) {}

// Reap implements vos.VProc.Reap. Fake transitions reach the handler
// synchronously so there's never anything pending.
func (f *FakeOS) Reap() {}

// SetEventHandler implements vos.VProc.SetEventHandler.
func (f *FakeOS) SetEventHandler(handler vos.EventHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
}

// SetForeground implements vos.VTerm.SetForeground.
func (f *FakeOS) SetForeground(pgid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Terminal = pgid
	return nil
}

// ReclaimTerminal implements vos.VTerm.ReclaimTerminal.
func (f *FakeOS) ReclaimTerminal() error {
	return f.SetForeground(0)
}

func (f *FakeOS) transition(pid int, ev vos.ProcEvent) {
	f.mu.Lock()
	proc, ok := f.procs[pid]
	if !ok || proc.Exited {
		f.mu.Unlock()
		return
	}
	switch ev.State {
	case vos.ProcExited:
		proc.Exited = true
	case vos.ProcStopped:
		proc.Stopped = true
	case vos.ProcContinued:
		proc.Stopped = false
	}
	handler := f.handler
	f.mu.Unlock()

	if handler != nil {
		handler(ev)
	}
}
