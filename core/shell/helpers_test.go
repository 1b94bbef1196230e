package shell

import (
	"testing"
	"time"

	"github.com/NadavTAshkenazi/smash/core/vos/vostest"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestSession(t *testing.T) (*vostest.FakeOS, *Session, *testClock) {
	t.Helper()

	fake := vostest.NewFakeOS()
	clock := &testClock{now: time.Unix(1600000000, 0)}
	s := NewSession(fake, Options{Now: clock.Now})
	return fake, s, clock
}

// run dispatches each line and returns the output of the last one.
func run(t *testing.T, fake *vostest.FakeOS, s *Session, lines ...string) (stdout, stderr string) {
	t.Helper()

	for _, line := range lines {
		fake.Out.Reset()
		fake.Err.Reset()
		_ = s.Dispatch(line)
	}
	return fake.Out.String(), fake.Err.String()
}
