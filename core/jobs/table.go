// Package jobs tracks the background and stopped processes launched by a
// shell session.
package jobs

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/NadavTAshkenazi/smash/core/vos"
)

var (
	// ErrJobNotFound is returned when a job id doesn't match a tracked job.
	ErrJobNotFound = errors.New("job not found")
	// ErrInvalidState is returned for a state transition the job can't make.
	ErrInvalidState = errors.New("invalid job state")
)

// State is the run state of a tracked job.
type State int

const (
	Foreground State = iota
	Background
	Stopped
)

func (s State) String() string {
	switch s {
	case Foreground:
		return "Foreground"
	case Background:
		return "Background"
	case Stopped:
		return "Stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Job is the command owned by an Entry.
type Job interface {
	// Pid is the process id of the running command.
	Pid() int
	// Name is the command name, argv[0].
	Name() string
	// String is the command line as the user typed it.
	String() string
}

// Entry is a single tracked job. Entries handed out by the Table are copies.
type Entry struct {
	ID      int
	Job     Job
	State   State
	Created time.Time
	// Finished is set once the process has been observed to exit.
	Finished bool

	stopSeq int
}

// Pid is the process id of the job.
func (e Entry) Pid() int {
	return e.Job.Pid()
}

// Elapsed returns the whole seconds since the job was created.
func (e Entry) Elapsed(now time.Time) int {
	return int(now.Sub(e.Created) / time.Second)
}

// Table holds every job of a session in ascending id order.
//
// The asynchronous status handler (Observe) only marks entries, structural
// removal happens in Remove and PruneFinished.
type Table struct {
	mu      sync.Mutex
	entries []*Entry
	lastID  int
	stopSeq int
	now     func() time.Time
}

// NewTable creates an empty table, now is used to timestamp entries.
func NewTable(now func() time.Time) *Table {
	if now == nil {
		now = time.Now
	}
	return &Table{now: now}
}

// Now returns the table's current time.
func (t *Table) Now() time.Time {
	return t.now()
}

// Add inserts a job and returns its id. Ids increase monotonically and are
// never handed out twice, even after the highest entry is removed.
func (t *Table) Add(job Job, state State) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if state == Foreground && t.foregroundLocked() != nil {
		return 0, fmt.Errorf("%w: a foreground job already exists", ErrInvalidState)
	}

	t.lastID++
	entry := &Entry{
		ID:      t.lastID,
		Job:     job,
		State:   state,
		Created: t.now(),
	}
	if state == Stopped {
		t.stopSeq++
		entry.stopSeq = t.stopSeq
	}
	t.entries = append(t.entries, entry)
	return entry.ID, nil
}

// Get looks up a job by id.
func (t *Table) Get(id int) (Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := t.getLocked(id)
	if entry == nil {
		return Entry{}, fmt.Errorf("%w: %d", ErrJobNotFound, id)
	}
	return *entry, nil
}

// SetState transitions a job. Only one job may hold Foreground.
func (t *Table) SetState(id int, state State) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := t.getLocked(id)
	if entry == nil {
		return fmt.Errorf("%w: %d", ErrJobNotFound, id)
	}
	if state == Foreground {
		if fg := t.foregroundLocked(); fg != nil && fg.ID != id {
			return fmt.Errorf("%w: job %d holds the foreground", ErrInvalidState, fg.ID)
		}
	}
	t.setStateLocked(entry, state)
	return nil
}

// Remove deletes a job from the table.
func (t *Table) Remove(id int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, entry := range t.entries {
		if entry.ID == id {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ErrJobNotFound, id)
}

// PruneFinished drops every job whose process has exited and returns them.
func (t *Table) PruneFinished() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	var keep []*Entry
	var dropped []Entry
	for _, entry := range t.entries {
		if entry.Finished {
			dropped = append(dropped, *entry)
		} else {
			keep = append(keep, entry)
		}
	}
	t.entries = keep
	return dropped
}

// Foreground returns the job holding the foreground, if any.
func (t *Table) Foreground() (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if entry := t.foregroundLocked(); entry != nil {
		return *entry, true
	}
	return Entry{}, false
}

// List returns a snapshot of all jobs in ascending id order.
func (t *Table) List() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Entry, 0, len(t.entries))
	for _, entry := range t.entries {
		out = append(out, *entry)
	}
	return out
}

// Len returns the number of tracked jobs.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Last returns the job with the highest id matching the predicate.
func (t *Table) Last(match func(Entry) bool) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := len(t.entries) - 1; i >= 0; i-- {
		if match(*t.entries[i]) {
			return *t.entries[i], true
		}
	}
	return Entry{}, false
}

// LastStopped returns the job that was stopped most recently.
func (t *Table) LastStopped() (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var found *Entry
	for _, entry := range t.entries {
		if entry.State != Stopped || entry.Finished {
			continue
		}
		if found == nil || entry.stopSeq > found.stopSeq {
			found = entry
		}
	}
	if found == nil {
		return Entry{}, false
	}
	return *found, true
}

// Observe records an asynchronous status change for a process. It never
// removes entries.
func (t *Table) Observe(ev vos.ProcEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, entry := range t.entries {
		if entry.Job.Pid() != ev.Pid || entry.Finished {
			continue
		}

		switch ev.State {
		case vos.ProcExited:
			entry.Finished = true
		case vos.ProcStopped:
			t.setStateLocked(entry, Stopped)
		case vos.ProcContinued:
			if entry.State == Stopped {
				t.setStateLocked(entry, Background)
			}
		}
		return
	}
}

func (t *Table) setStateLocked(entry *Entry, state State) {
	if state == Stopped && entry.State != Stopped {
		t.stopSeq++
		entry.stopSeq = t.stopSeq
	}
	entry.State = state
}

func (t *Table) getLocked(id int) *Entry {
	for _, entry := range t.entries {
		if entry.ID == id {
			return entry
		}
	}
	return nil
}

func (t *Table) foregroundLocked() *Entry {
	for _, entry := range t.entries {
		if entry.State == Foreground {
			return entry
		}
	}
	return nil
}
