package logger

// LogEntry is a single logged event. Exactly one of the event fields is set.
type LogEntry struct {
	TimestampMicros int64  `json:"timestamp_micros"`
	SessionID       string `json:"session_id,omitempty"`

	RunCommand        *RunCommand        `json:"run_command,omitempty"`
	UnknownCommand    *UnknownCommand    `json:"unknown_command,omitempty"`
	InvalidInvocation *InvalidInvocation `json:"invalid_invocation,omitempty"`
	JobUpdate         *JobUpdate         `json:"job_update,omitempty"`
	SessionEvent      *SessionEvent      `json:"session_event,omitempty"`
}

// LogType is implemented by every event that can be stored in a LogEntry.
type LogType interface {
	setOn(le *LogEntry)
}

// GetLogType returns the event held by the entry or nil if it's empty.
func (le *LogEntry) GetLogType() LogType {
	switch {
	case le.RunCommand != nil:
		return le.RunCommand
	case le.UnknownCommand != nil:
		return le.UnknownCommand
	case le.InvalidInvocation != nil:
		return le.InvalidInvocation
	case le.JobUpdate != nil:
		return le.JobUpdate
	case le.SessionEvent != nil:
		return le.SessionEvent
	default:
		return nil
	}
}

// RunCommand is logged for every dispatched command line.
type RunCommand struct {
	Command    []string `json:"command"`
	Builtin    bool     `json:"builtin,omitempty"`
	Background bool     `json:"background,omitempty"`
}

func (e *RunCommand) setOn(le *LogEntry) { le.RunCommand = e }

// UnknownCommandStatus says why an external command couldn't start.
type UnknownCommandStatus string

const (
	StatusNotFound   UnknownCommandStatus = "not_found"
	StatusSpawnError UnknownCommandStatus = "spawn_error"
)

// UnknownCommand is logged when an external command fails to start.
type UnknownCommand struct {
	Command      []string             `json:"command"`
	Status       UnknownCommandStatus `json:"status"`
	ErrorMessage string               `json:"error_message,omitempty"`
}

func (e *UnknownCommand) setOn(le *LogEntry) { le.UnknownCommand = e }

// InvalidInvocation is logged when a builtin rejects its arguments or state.
type InvalidInvocation struct {
	Command []string `json:"command"`
	Error   string   `json:"error"`
}

func (e *InvalidInvocation) setOn(le *LogEntry) { le.InvalidInvocation = e }

// JobStatus is the lifecycle step of a job.
type JobStatus string

const (
	JobAdded      JobStatus = "added"
	JobStopped    JobStatus = "stopped"
	JobResumed    JobStatus = "resumed"
	JobForeground JobStatus = "foreground"
	JobExited     JobStatus = "exited"
	JobKilled     JobStatus = "killed"
	JobRemoved    JobStatus = "removed"
)

// JobUpdate is logged when a job changes state.
type JobUpdate struct {
	JobID   int       `json:"job_id,omitempty"`
	Pid     int       `json:"pid"`
	Command string    `json:"command,omitempty"`
	Status  JobStatus `json:"status"`
	Signal  string    `json:"signal,omitempty"`
}

func (e *JobUpdate) setOn(le *LogEntry) { le.JobUpdate = e }

// SessionEvent marks the start and end of a shell session.
type SessionEvent struct {
	Event string `json:"event"`
	Pid   int    `json:"pid,omitempty"`
}

func (e *SessionEvent) setOn(le *LogEntry) { le.SessionEvent = e }

const (
	SessionStarted = "started"
	SessionQuit    = "quit"
)
