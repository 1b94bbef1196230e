package shell

import (
	"os"
	"os/signal"
	"syscall"
)

// ForwardSignals relays ctrl-C and ctrl-Z delivered to the shell to the
// foreground process. It matters when the shell doesn't own a terminal, with
// one the terminal signals the foreground process group directly. Call the
// returned function to stop forwarding.
func (s *Session) ForwardSignals() (stop func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTSTP)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case sig := <-sigs:
				if sysSig, ok := sig.(syscall.Signal); ok {
					s.Interrupt(sysSig)
				}
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

// Interrupt handles a ctrl-C (SIGINT) or ctrl-Z (SIGTSTP) aimed at the shell.
// ctrl-C kills the foreground process group, ctrl-Z stops it.
func (s *Session) Interrupt(sig syscall.Signal) {
	var name string
	var forward syscall.Signal
	switch sig {
	case syscall.SIGINT:
		name, forward = "ctrl-C", syscall.SIGKILL
	case syscall.SIGTSTP:
		name, forward = "ctrl-Z", syscall.SIGSTOP
	default:
		return
	}

	s.printf("smash: got %s\n", name)
	pid := int(s.fgPid.Load())
	if pid == 0 {
		return
	}
	if err := s.OS.KillGroup(pid, forward); err != nil {
		return
	}
	if forward == syscall.SIGKILL {
		s.printf("smash: process %d was killed\n", pid)
	}
}
