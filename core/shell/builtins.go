package shell

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"syscall"

	"github.com/NadavTAshkenazi/smash/core/jobs"
	"github.com/NadavTAshkenazi/smash/core/logger"
)

// ChangePrompt sets the prompt to the first argument plus the delimiter, or
// resets it without one.
func ChangePrompt(s *Session, args []string) error {
	cmd := &builtinSpec{
		Use:       "chprompt [PROMPT]",
		Short:     "Change the shell prompt, reset it if PROMPT is missing.",
		NeverBail: true,
	}

	return cmd.run(s, args, func(rest []string) error {
		if len(rest) == 0 {
			s.prompt = s.defaultPrompt
		} else {
			s.prompt = rest[0] + s.delimiter
		}
		return nil
	})
}

// ShowPid prints the shell's pid.
func ShowPid(s *Session, args []string) error {
	cmd := &builtinSpec{
		Use:       "showpid",
		Short:     "Print the process id of the shell.",
		NeverBail: true,
	}

	return cmd.run(s, args, func([]string) error {
		s.printf("smash pid is %d\n", s.OS.Getpid())
		return nil
	})
}

// Pwd prints the working directory.
func Pwd(s *Session, args []string) error {
	cmd := &builtinSpec{
		Use:       "pwd",
		Short:     "Print the current working directory.",
		NeverBail: true,
	}

	return cmd.run(s, args, func([]string) error {
		wd, err := s.OS.Getwd()
		if err != nil {
			return newError(args[0], err, err.Error())
		}
		s.printf("%s\n", wd)
		return nil
	})
}

// ChangeDir changes the working directory, "-" goes back to the previous one.
// The previous directory only changes when chdir succeeds.
func ChangeDir(s *Session, args []string) error {
	cmd := &builtinSpec{
		Use:   "cd DIR|-",
		Short: "Change the working directory, - returns to the previous one.",
	}

	return cmd.run(s, args, func(rest []string) error {
		switch {
		case len(rest) > 1:
			return newError(args[0], ErrArgumentCount, "too many arguments")
		case len(rest) == 0:
			return newError(args[0], ErrArgumentCount, "too few arguments")
		}

		target := rest[0]
		if target == "-" {
			if !s.lastDirSet {
				return newError(args[0], ErrState, "OLDPWD not set")
			}
			target = s.lastDir
		}

		cwd, err := s.OS.Getwd()
		if err != nil {
			return newError(args[0], ErrChdir, fmt.Sprintf("chdir failed: %v", err))
		}
		if err := s.OS.Chdir(target); err != nil {
			return newError(args[0], ErrChdir, fmt.Sprintf("chdir failed: %v", err))
		}

		s.lastDir = cwd
		s.lastDirSet = true
		return nil
	})
}

// Jobs lists the background and stopped jobs in id order.
func Jobs(s *Session, args []string) error {
	cmd := &builtinSpec{
		Use:       "jobs",
		Short:     "List background and stopped jobs.",
		NeverBail: true,
	}

	return cmd.run(s, args, func([]string) error {
		s.pruneJobs()

		now := s.Jobs.Now()
		for _, entry := range s.Jobs.List() {
			if entry.State == jobs.Foreground {
				continue
			}
			line := fmt.Sprintf("[%d] %s : %d %d", entry.ID, entry.Job.Name(), entry.Pid(), entry.Elapsed(now))
			if entry.State == jobs.Stopped {
				line += " (stopped)"
			}
			s.printf("%s\n", line)
		}
		return nil
	})
}

// Kill sends a signal to a job: kill -<signum> <job-id>.
func Kill(s *Session, args []string) error {
	if len(args) != 3 || !strings.HasPrefix(args[1], "-") {
		return newError(args[0], ErrArgument, "invalid arguments")
	}

	signum, err := strconv.Atoi(args[1][1:])
	if err != nil || signum < 0 || signum > 64 {
		return newError(args[0], ErrArgument, "invalid arguments")
	}

	id, err := strconv.Atoi(args[2])
	if err != nil {
		return newError(args[0], ErrArgument, "invalid arguments")
	}

	entry, err := s.Jobs.Get(id)
	if err != nil {
		return newError(args[0], jobs.ErrJobNotFound, fmt.Sprintf("job-id %d does not exist", id))
	}

	sig := syscall.Signal(signum)
	if err := s.OS.Kill(entry.Pid(), sig); err != nil {
		return newError(args[0], err, fmt.Sprintf("kill failed: %v", err))
	}

	s.printf("signal number %d was sent to pid %d\n", signum, entry.Pid())
	return nil
}

// Foreground moves a job to the foreground and waits for it.
func Foreground(s *Session, args []string) error {
	cmd := &builtinSpec{
		Use:   "fg [JOB-ID]",
		Short: "Resume a job in the foreground, defaults to the most recent job.",
	}

	return cmd.run(s, args, func(rest []string) error {
		var entry jobs.Entry
		switch len(rest) {
		case 0:
			s.pruneJobs()
			last, ok := s.Jobs.Last(func(e jobs.Entry) bool {
				return !e.Finished && e.State != jobs.Foreground
			})
			if !ok {
				return newError(args[0], jobs.ErrJobNotFound, "jobs list is empty")
			}
			entry = last
		case 1:
			id, err := strconv.Atoi(rest[0])
			if err != nil || id < 0 {
				return newError(args[0], ErrArgument, "invalid arguments")
			}
			found, err := s.Jobs.Get(id)
			if err != nil {
				return newError(args[0], jobs.ErrJobNotFound, fmt.Sprintf("job-id %d does not exist", id))
			}
			entry = found
		default:
			return newError(args[0], ErrArgument, "invalid arguments")
		}

		s.printf("%s : %d\n", entry.Job, entry.Pid())
		return s.foregroundJob(entry)
	})
}

// Background resumes a stopped job in the background.
func Background(s *Session, args []string) error {
	cmd := &builtinSpec{
		Use:   "bg [JOB-ID]",
		Short: "Resume a stopped job in the background, defaults to the last stopped job.",
	}

	return cmd.run(s, args, func(rest []string) error {
		var entry jobs.Entry
		switch len(rest) {
		case 0:
			last, ok := s.Jobs.LastStopped()
			if !ok {
				return newError(args[0], jobs.ErrJobNotFound, "there is no stopped jobs to resume")
			}
			entry = last
		case 1:
			id, err := strconv.Atoi(rest[0])
			if err != nil || id < 0 {
				return newError(args[0], ErrArgument, "invalid arguments")
			}
			found, err := s.Jobs.Get(id)
			if err != nil {
				return newError(args[0], jobs.ErrJobNotFound, fmt.Sprintf("job-id %d does not exist", id))
			}
			if found.State != jobs.Stopped {
				return newError(args[0], jobs.ErrInvalidState, fmt.Sprintf("job-id %d is already running in the background", id))
			}
			entry = found
		default:
			return newError(args[0], ErrArgument, "invalid arguments")
		}

		s.printf("%s : %d\n", entry.Job, entry.Pid())
		if err := s.OS.Continue(entry.Pid()); err != nil {
			return newError(args[0], err, fmt.Sprintf("kill failed: %v", err))
		}
		if err := s.Jobs.SetState(entry.ID, jobs.Background); err != nil && !errors.Is(err, jobs.ErrJobNotFound) {
			return newError(args[0], err, err.Error())
		}
		s.record(&logger.JobUpdate{JobID: entry.ID, Pid: entry.Pid(), Command: entry.Job.String(), Status: logger.JobResumed})
		return nil
	})
}

// Quit ends the session. With the kill marker every job gets SIGKILL first.
func Quit(s *Session, args []string) error {
	cmd := &builtinSpec{
		Use:       "quit [kill]",
		Short:     "Exit the shell, kill terminates every job first.",
		NeverBail: true,
	}

	return cmd.run(s, args, func(rest []string) error {
		if len(rest) > 0 && rest[0] == s.killMarker {
			s.killAll()
		}
		s.quit = true
		s.record(&logger.SessionEvent{Event: logger.SessionQuit})
		return ErrQuit
	})
}

func (s *Session) killAll() {
	s.pruneJobs()
	entries := s.Jobs.List()

	s.printf("smash: sending SIGKILL signal to %d jobs:\n", len(entries))
	for _, entry := range entries {
		s.printf("%d: %s\n", entry.Pid(), entry.Job)
		_ = s.OS.KillGroup(entry.Pid(), syscall.SIGKILL)
		_ = s.Jobs.Remove(entry.ID)
	}
}
