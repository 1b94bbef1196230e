package vos

import "sync"

// child tracks the status notifications of one spawned process.
type child struct {
	// events holds the latest stop or continue notification.
	events chan ProcEvent
	// exited is closed once the process has been reaped.
	exited chan struct{}
	last   ProcEvent
}

func newChild() *child {
	return &child{
		events: make(chan ProcEvent, 1),
		exited: make(chan struct{}),
	}
}

// push queues a notification, replacing an unread one.
func (c *child) push(ev ProcEvent) {
	for {
		select {
		case c.events <- ev:
			return
		default:
		}

		select {
		case <-c.events:
		default:
		}
	}
}

func (c *child) drain() {
	for {
		select {
		case <-c.events:
		default:
			return
		}
	}
}

func (c *child) hasExited() bool {
	select {
	case <-c.exited:
		return true
	default:
		return false
	}
}

// wait blocks until the process exits or stops, continue notifications are
// skipped.
func (c *child) wait() ProcEvent {
	for {
		select {
		case <-c.exited:
			return c.last
		case ev := <-c.events:
			if ev.State == ProcStopped {
				return ev
			}
		}
	}
}

// children is the registry shared by the reaper and the shell's control
// thread.
type children struct {
	mu      sync.Mutex
	procs   map[int]*child
	handler EventHandler
}

func (c *children) register(pid int) {
	if c.procs == nil {
		c.procs = make(map[int]*child)
	}
	c.procs[pid] = newChild()
}

func (c *children) lookup(pid int) *child {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.procs[pid]
}

// deliver routes a reaped status to the event handler then to the waiting
// child, so a Wait that returns has been preceded by the handler call.
func (c *children) deliver(ev ProcEvent) {
	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()

	if handler != nil {
		handler(ev)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	proc := c.procs[ev.Pid]
	if proc == nil || proc.hasExited() {
		return
	}
	if ev.State == ProcExited {
		proc.last = ev
		close(proc.exited)
	} else {
		proc.push(ev)
	}
}

// SetEventHandler implements VProc.SetEventHandler.
func (c *children) SetEventHandler(handler EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// Release implements VProc.Release.
func (c *children) Release(pid int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if proc, ok := c.procs[pid]; ok && proc.hasExited() {
		delete(c.procs, pid)
	}
}

// Wait implements VProc.Wait.
func (c *children) Wait(pid int) (ProcEvent, error) {
	proc := c.lookup(pid)
	if proc == nil {
		return ProcEvent{}, ErrNoProcess
	}

	ev := proc.wait()
	if ev.State == ProcExited {
		c.Release(pid)
	}
	return ev, nil
}
