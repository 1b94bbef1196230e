package shell

import (
	"errors"
	"fmt"

	"github.com/NadavTAshkenazi/smash/core/jobs"
	"github.com/NadavTAshkenazi/smash/core/logger"
	"github.com/NadavTAshkenazi/smash/core/vos"
)

// Dispatch runs one command line. Finished jobs are pruned first. Command
// failures are reported on stderr and returned, ErrQuit is returned after
// quit without a report.
func (s *Session) Dispatch(line string) error {
	s.pruneJobs()

	tokens, err := Tokenize(line)
	if err != nil {
		err = newError("smash", ErrArgument, fmt.Sprintf("syntax error: %v", err))
		s.record(&logger.InvalidInvocation{Error: err.Error()})
		s.reportError(err)
		return err
	}
	if len(tokens) == 0 {
		return nil
	}

	cmd, err := s.NewCommand(tokens)
	if err != nil {
		s.reportError(err)
		return err
	}

	event := &logger.RunCommand{Command: cmd.Args()}
	switch c := cmd.(type) {
	case *Builtin:
		event.Builtin = true
	case *External:
		event.Background = c.Background()
	}
	s.record(event)

	err = cmd.Execute()
	switch {
	case err == nil, errors.Is(err, ErrQuit):
		return err
	case errors.Is(err, ErrSpawn):
		// Already logged as an unknown command.
	default:
		s.record(&logger.InvalidInvocation{Command: cmd.Args(), Error: err.Error()})
	}
	s.reportError(err)
	return err
}

// pruneJobs collects pending child statuses then removes the jobs whose
// process exited.
func (s *Session) pruneJobs() {
	s.OS.Reap()
	for _, entry := range s.Jobs.PruneFinished() {
		s.OS.Release(entry.Pid())
		s.record(&logger.JobUpdate{JobID: entry.ID, Pid: entry.Pid(), Command: entry.Job.String(), Status: logger.JobRemoved})
	}
}

// runExternal spawns e. Background commands join the job table as soon as
// they have a pid, foreground commands only if they get stopped.
func (s *Session) runExternal(e *External) error {
	if len(e.args) == 0 {
		return newError("smash", ErrArgument, "empty command")
	}

	if e.background {
		var id int
		var addErr error
		_, err := s.OS.StartProcess(e.args, &vos.ProcAttr{
			Started: func(pid int) {
				e.pid = pid
				id, addErr = s.Jobs.Add(e, jobs.Background)
			},
		})
		if err != nil {
			return s.spawnError(e, err)
		}
		if addErr != nil {
			return newError(e.Name(), addErr, addErr.Error())
		}
		s.record(&logger.JobUpdate{JobID: id, Pid: e.pid, Command: e.String(), Status: logger.JobAdded})
		return nil
	}

	pid, err := s.OS.StartProcess(e.args, nil)
	if err != nil {
		return s.spawnError(e, err)
	}
	e.pid = pid

	ev, err := s.waitForeground(pid)
	if err != nil {
		return newError(e.Name(), err, fmt.Sprintf("wait failed: %v", err))
	}
	if ev.State == vos.ProcStopped {
		id, err := s.Jobs.Add(e, jobs.Stopped)
		if err != nil {
			return newError(e.Name(), err, err.Error())
		}
		s.printf("smash: process %d was stopped\n", pid)
		s.record(&logger.JobUpdate{JobID: id, Pid: pid, Command: e.String(), Status: logger.JobAdded})
	}
	return nil
}

func (s *Session) spawnError(e *External, err error) error {
	status := logger.StatusSpawnError
	msg := err.Error()
	if errors.Is(err, vos.ErrNotFound) {
		status = logger.StatusNotFound
		msg = "command not found"
	}

	cmdErr := newError(e.Name(), ErrSpawn, msg)
	s.record(&logger.UnknownCommand{Command: e.args, Status: status, ErrorMessage: cmdErr.Error()})
	return cmdErr
}

// foregroundJob hands the terminal to a tracked job, resuming it if it was
// stopped, and waits until it exits or stops again.
func (s *Session) foregroundJob(entry jobs.Entry) error {
	name := entry.Job.Name()
	if err := s.Jobs.SetState(entry.ID, jobs.Foreground); err != nil {
		return newError(name, err, err.Error())
	}
	s.record(&logger.JobUpdate{JobID: entry.ID, Pid: entry.Pid(), Command: entry.Job.String(), Status: logger.JobForeground})

	if entry.State == jobs.Stopped {
		if err := s.OS.Continue(entry.Pid()); err != nil {
			_ = s.Jobs.SetState(entry.ID, entry.State)
			return newError(name, err, fmt.Sprintf("kill failed: %v", err))
		}
	}

	ev, err := s.waitForeground(entry.Pid())
	switch {
	case err != nil:
		// Reaped before we could wait on it.
		_ = s.Jobs.Remove(entry.ID)
	case ev.State == vos.ProcStopped:
		_ = s.Jobs.SetState(entry.ID, jobs.Stopped)
		s.printf("smash: process %d was stopped\n", entry.Pid())
	default:
		_ = s.Jobs.Remove(entry.ID)
		s.record(&logger.JobUpdate{JobID: entry.ID, Pid: entry.Pid(), Command: entry.Job.String(), Status: logger.JobRemoved})
	}
	return nil
}

// waitForeground gives pid the terminal and blocks until it exits or stops.
func (s *Session) waitForeground(pid int) (vos.ProcEvent, error) {
	s.fgPid.Store(int64(pid))
	defer s.fgPid.Store(0)

	_ = s.OS.SetForeground(pid)
	defer s.OS.ReclaimTerminal()

	return s.OS.Wait(pid)
}
