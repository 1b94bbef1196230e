package shell

import (
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/NadavTAshkenazi/smash/core/jobs"
	"github.com/NadavTAshkenazi/smash/core/vos"
	"github.com/NadavTAshkenazi/smash/core/vos/vostest"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangePrompt(t *testing.T) {
	fake, s, _ := newTestSession(t)
	assert.Equal(t, "smash> ", s.Prompt())

	run(t, fake, s, "chprompt myshell")
	assert.Equal(t, "myshell> ", s.Prompt())

	run(t, fake, s, "chprompt first second")
	assert.Equal(t, "first> ", s.Prompt())

	run(t, fake, s, "chprompt")
	assert.Equal(t, "smash> ", s.Prompt())

	_, stderr := run(t, fake, s, "chprompt -x")
	assert.Empty(t, stderr)
	assert.Equal(t, "-x> ", s.Prompt())
}

func TestChangePrompt_CustomDelimiter(t *testing.T) {
	fake := vostest.NewFakeOS()
	s := NewSession(fake, Options{Prompt: "sh", PromptDelimiter: "$"})
	assert.Equal(t, "sh$ ", s.Prompt())

	run(t, fake, s, "chprompt x")
	assert.Equal(t, "x$ ", s.Prompt())
}

func TestShowPid(t *testing.T) {
	fake, s, _ := newTestSession(t)

	stdout, _ := run(t, fake, s, "showpid")
	assert.Equal(t, "smash pid is 4242\n", stdout)

	stdout, _ = run(t, fake, s, "showpid extra args")
	assert.Equal(t, "smash pid is 4242\n", stdout)
}

func TestPwd(t *testing.T) {
	fake, s, _ := newTestSession(t)

	stdout, _ := run(t, fake, s, "pwd")
	assert.Equal(t, "/home/user\n", stdout)

	stdout, _ = run(t, fake, s, "cd /tmp", "pwd")
	assert.Equal(t, "/tmp\n", stdout)
}

func TestChangeDir(t *testing.T) {
	cases := map[string]struct {
		lines      []string
		expectDir  string
		expectErr  string
		expectKind error
	}{
		"absolute": {
			lines:     []string{"cd /tmp"},
			expectDir: "/tmp",
		},
		"relative": {
			lines:     []string{"cd /", "cd tmp"},
			expectDir: "/tmp",
		},
		"parent": {
			lines:     []string{"cd .."},
			expectDir: "/home",
		},
		"dash swaps": {
			lines:     []string{"cd /tmp", "cd -"},
			expectDir: "/home/user",
		},
		"dash twice": {
			lines:     []string{"cd /tmp", "cd -", "cd -"},
			expectDir: "/tmp",
		},
		"dash unset": {
			lines:      []string{"cd -"},
			expectDir:  "/home/user",
			expectErr:  "smash error: cd: OLDPWD not set\n",
			expectKind: ErrState,
		},
		"too many": {
			lines:      []string{"cd /tmp /bin"},
			expectDir:  "/home/user",
			expectErr:  "smash error: cd: too many arguments\n",
			expectKind: ErrArgumentCount,
		},
		"too few": {
			lines:      []string{"cd"},
			expectDir:  "/home/user",
			expectErr:  "smash error: cd: too few arguments\n",
			expectKind: ErrArgumentCount,
		},
		"metachars stripped": {
			lines:     []string{"cd > /tmp"},
			expectDir: "/tmp",
		},
		"missing dir": {
			lines:      []string{"cd /nope"},
			expectDir:  "/home/user",
			expectErr:  "smash error: cd: chdir failed: chdir /nope: no such file or directory\n",
			expectKind: ErrChdir,
		},
		"not a dir": {
			lines:      []string{"cd /etc/motd"},
			expectDir:  "/home/user",
			expectErr:  "smash error: cd: chdir failed: chdir /etc/motd: not a directory\n",
			expectKind: ErrChdir,
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			fake, s, _ := newTestSession(t)

			var lastErr error
			for _, line := range tc.lines {
				fake.Err.Reset()
				lastErr = s.Dispatch(line)
			}

			wd, err := fake.Getwd()
			require.NoError(t, err)
			assert.Equal(t, tc.expectDir, wd)
			assert.Equal(t, tc.expectErr, fake.Err.String())
			if tc.expectKind == nil {
				assert.NoError(t, lastErr)
			} else {
				assert.ErrorIs(t, lastErr, tc.expectKind)
			}
		})
	}
}

func TestChangeDir_FailureKeepsPrevious(t *testing.T) {
	fake, s, _ := newTestSession(t)

	run(t, fake, s, "cd /tmp", "cd /nope", "cd -")

	wd, err := fake.Getwd()
	require.NoError(t, err)
	assert.Equal(t, "/home/user", wd)
}

func TestChangeDir_Help(t *testing.T) {
	fake, s, _ := newTestSession(t)

	stdout, stderr := run(t, fake, s, "cd --help")
	assert.Contains(t, stdout, "usage: cd DIR|-")
	assert.Contains(t, stdout, "--help")
	assert.Empty(t, stderr)

	wd, err := fake.Getwd()
	require.NoError(t, err)
	assert.Equal(t, "/home/user", wd)
}

func TestChangeDir_DashDirectory(t *testing.T) {
	fake, s, _ := newTestSession(t)
	require.NoError(t, fake.Fs.MkdirAll("/home/user/-foo", 0755))

	_, stderr := run(t, fake, s, "cd -foo")
	assert.Empty(t, stderr)
	wd, err := fake.Getwd()
	require.NoError(t, err)
	assert.Equal(t, "/home/user/-foo", wd)

	_, stderr = run(t, fake, s, "cd -", "cd -- -foo")
	assert.Empty(t, stderr)
	wd, err = fake.Getwd()
	require.NoError(t, err)
	assert.Equal(t, "/home/user/-foo", wd)

	_, stderr = run(t, fake, s, "cd -bar")
	assert.Equal(t, "smash error: cd: chdir failed: chdir -bar: no such file or directory\n", stderr)
}

func TestClassification(t *testing.T) {
	cases := map[string]struct {
		line    string
		builtin bool
	}{
		"cd":             {"cd /tmp", true},
		"quit":           {"quit", true},
		"prefix":         {"cdx", false},
		"path":           {"/usr/bin/cd", false},
		"suffix":         {"xjobs", false},
		"case":           {"CD /tmp", false},
		"not first":      {"sleep cd", false},
		"chprompt":       {"chprompt", true},
		"with ampersand": {"jobs &", true},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			_, s, _ := newTestSession(t)
			tokens, err := Tokenize(tc.line)
			require.NoError(t, err)

			cmd, err := s.NewCommand(tokens)
			require.NoError(t, err)

			_, isBuiltin := cmd.(*Builtin)
			assert.Equal(t, tc.builtin, isBuiltin)
		})
	}
}

func TestJobs_Golden(t *testing.T) {
	fake, s, clock := newTestSession(t)
	fake.ScriptWait(vostest.FirstPid+1, vos.ProcStopped)

	run(t, fake, s, "sleep 100 &")
	clock.Advance(3 * time.Second)
	run(t, fake, s, "vim notes.txt")
	clock.Advance(4 * time.Second)
	run(t, fake, s, "sleep 5&")
	clock.Advance(1500 * time.Millisecond)

	stdout, stderr := run(t, fake, s, "jobs")
	assert.Empty(t, stderr)

	g := goldie.New(
		t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithDiffEngine(goldie.ColoredDiff),
		goldie.WithTestNameForDir(true),
	)
	g.Assert(t, "jobs", []byte(stdout))
}

func TestJobs_SkipsFinished(t *testing.T) {
	fake, s, _ := newTestSession(t)

	run(t, fake, s, "sleep 100 &", "sleep 200 &")
	fake.Exit(vostest.FirstPid, 0)

	stdout, _ := run(t, fake, s, "jobs")
	assert.Equal(t, "[2] sleep : 1001 0\n", stdout)
	assert.Equal(t, 1, s.Jobs.Len())
}

func TestKill(t *testing.T) {
	cases := map[string]struct {
		line      string
		expectOut string
		expectErr string
		expectSig []syscall.Signal
	}{
		"sends": {
			line:      "kill -9 1",
			expectOut: "signal number 9 was sent to pid 1000\n",
			expectSig: []syscall.Signal{syscall.SIGKILL},
		},
		"stop": {
			line:      "kill -19 1",
			expectOut: "signal number 19 was sent to pid 1000\n",
			expectSig: []syscall.Signal{syscall.SIGSTOP},
		},
		"missing job": {
			line:      "kill -9 7",
			expectErr: "smash error: kill: job-id 7 does not exist\n",
		},
		"no dash": {
			line:      "kill 9 1",
			expectErr: "smash error: kill: invalid arguments\n",
		},
		"bad signal": {
			line:      "kill -abc 1",
			expectErr: "smash error: kill: invalid arguments\n",
		},
		"bad id": {
			line:      "kill -9 one",
			expectErr: "smash error: kill: invalid arguments\n",
		},
		"too few": {
			line:      "kill -9",
			expectErr: "smash error: kill: invalid arguments\n",
		},
		"too many": {
			line:      "kill -9 1 2",
			expectErr: "smash error: kill: invalid arguments\n",
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			fake, s, _ := newTestSession(t)
			run(t, fake, s, "sleep 100 &")

			stdout, stderr := run(t, fake, s, tc.line)
			assert.Equal(t, tc.expectOut, stdout)
			assert.Equal(t, tc.expectErr, stderr)

			proc, ok := fake.Proc(vostest.FirstPid)
			require.True(t, ok)
			assert.Equal(t, tc.expectSig, proc.Signals)
		})
	}
}

func TestKill_StopMarksJob(t *testing.T) {
	fake, s, _ := newTestSession(t)

	run(t, fake, s, "sleep 100 &", "kill -19 1")

	entry, err := s.Jobs.Get(1)
	require.NoError(t, err)
	assert.Equal(t, jobs.Stopped, entry.State)
}

func TestForeground(t *testing.T) {
	fake, s, _ := newTestSession(t)
	fake.ScriptWait(vostest.FirstPid+1, vos.ProcStopped)

	run(t, fake, s, "sleep 100 &", "vim notes.txt")
	require.Equal(t, 2, s.Jobs.Len())

	// Defaults to the highest job id, which is stopped and gets resumed.
	stdout, stderr := run(t, fake, s, "fg")
	assert.Equal(t, "vim notes.txt : 1001\n", stdout)
	assert.Empty(t, stderr)

	proc, ok := fake.Proc(vostest.FirstPid + 1)
	require.True(t, ok)
	assert.Equal(t, []syscall.Signal{syscall.SIGCONT}, proc.Signals)
	assert.True(t, proc.Exited)
	assert.Equal(t, 1, s.Jobs.Len())
	assert.Equal(t, 0, fake.Terminal)

	// Background job isn't signaled.
	stdout, _ = run(t, fake, s, "fg 1")
	assert.Equal(t, "sleep 100 : 1000\n", stdout)
	proc, ok = fake.Proc(vostest.FirstPid)
	require.True(t, ok)
	assert.Empty(t, proc.Signals)
	assert.Equal(t, 0, s.Jobs.Len())
}

func TestForeground_StopsAgain(t *testing.T) {
	fake, s, _ := newTestSession(t)
	fake.ScriptWait(vostest.FirstPid, vos.ProcStopped, vos.ProcStopped)

	stdout, _ := run(t, fake, s, "vim")
	assert.Equal(t, "smash: process 1000 was stopped\n", stdout)

	stdout, _ = run(t, fake, s, "fg 1")
	assert.Equal(t, "vim : 1000\nsmash: process 1000 was stopped\n", stdout)

	entry, err := s.Jobs.Get(1)
	require.NoError(t, err)
	assert.Equal(t, jobs.Stopped, entry.State)
	_, hasForeground := s.Jobs.Foreground()
	assert.False(t, hasForeground)
}

func TestForeground_Errors(t *testing.T) {
	cases := map[string]struct {
		line       string
		expectErr  string
		expectKind error
	}{
		"empty":    {"fg", "smash error: fg: jobs list is empty\n", jobs.ErrJobNotFound},
		"missing":  {"fg 3", "smash error: fg: job-id 3 does not exist\n", jobs.ErrJobNotFound},
		"bad id":   {"fg x", "smash error: fg: invalid arguments\n", ErrArgument},
		"negative": {"fg -1", "smash error: fg: invalid arguments\n", ErrArgument},
		"too many": {"fg 1 2", "smash error: fg: invalid arguments\n", ErrArgument},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			fake, s, _ := newTestSession(t)

			err := s.Dispatch(tc.line)
			assert.ErrorIs(t, err, tc.expectKind)
			assert.Equal(t, tc.expectErr, fake.Err.String())
		})
	}
}

func TestBackground(t *testing.T) {
	fake, s, _ := newTestSession(t)
	fake.ScriptWait(vostest.FirstPid, vos.ProcStopped, vos.ProcStopped)
	fake.ScriptWait(vostest.FirstPid+1, vos.ProcStopped)

	run(t, fake, s, "vim a", "vim b", "fg 1")
	// Job 1 was stopped last so bg picks it even though 2 has a higher id.
	entry, err := s.Jobs.Get(1)
	require.NoError(t, err)
	require.Equal(t, jobs.Stopped, entry.State)

	stdout, stderr := run(t, fake, s, "bg")
	assert.Equal(t, "vim a : 1000\n", stdout)
	assert.Empty(t, stderr)

	entry, err = s.Jobs.Get(1)
	require.NoError(t, err)
	assert.Equal(t, jobs.Background, entry.State)

	stdout, _ = run(t, fake, s, "bg 2")
	assert.Equal(t, "vim b : 1001\n", stdout)

	proc, ok := fake.Proc(vostest.FirstPid + 1)
	require.True(t, ok)
	assert.Equal(t, []syscall.Signal{syscall.SIGCONT}, proc.Signals)
	assert.False(t, proc.Stopped)

	stdout, _ = run(t, fake, s, "jobs")
	assert.Equal(t, "[1] vim : 1000 0\n[2] vim : 1001 0\n", stdout)
}

func TestBackground_Errors(t *testing.T) {
	cases := map[string]struct {
		line       string
		expectErr  string
		expectKind error
	}{
		"nothing stopped": {"bg", "smash error: bg: there is no stopped jobs to resume\n", jobs.ErrJobNotFound},
		"running":         {"bg 1", "smash error: bg: job-id 1 is already running in the background\n", jobs.ErrInvalidState},
		"missing":         {"bg 9", "smash error: bg: job-id 9 does not exist\n", jobs.ErrJobNotFound},
		"bad id":          {"bg x", "smash error: bg: invalid arguments\n", ErrArgument},
		"negative":        {"bg -1", "smash error: bg: invalid arguments\n", ErrArgument},
		"too many":        {"bg 1 2", "smash error: bg: invalid arguments\n", ErrArgument},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			fake, s, _ := newTestSession(t)
			run(t, fake, s, "sleep 100 &")
			fake.Err.Reset()

			err := s.Dispatch(tc.line)
			assert.ErrorIs(t, err, tc.expectKind)
			assert.Equal(t, tc.expectErr, fake.Err.String())

			entry, getErr := s.Jobs.Get(1)
			require.NoError(t, getErr)
			assert.Equal(t, jobs.Background, entry.State)
		})
	}
}

func TestQuit(t *testing.T) {
	fake, s, _ := newTestSession(t)
	run(t, fake, s, "sleep 100 &")

	err := s.Dispatch("quit")
	assert.True(t, errors.Is(err, ErrQuit))
	assert.True(t, s.Quitting())
	assert.Empty(t, fake.Out.String())
	assert.Empty(t, fake.Err.String())

	proc, ok := fake.Proc(vostest.FirstPid)
	require.True(t, ok)
	assert.Empty(t, proc.Signals)
}

func TestQuit_Kill(t *testing.T) {
	fake, s, _ := newTestSession(t)
	fake.ScriptWait(vostest.FirstPid+1, vos.ProcStopped)
	run(t, fake, s, "sleep 100 &", "vim notes.txt")

	fake.Out.Reset()
	err := s.Dispatch("quit kill")
	assert.ErrorIs(t, err, ErrQuit)
	assert.Equal(t, "smash: sending SIGKILL signal to 2 jobs:\n1000: sleep 100\n1001: vim notes.txt\n", fake.Out.String())
	assert.Equal(t, 0, s.Jobs.Len())

	for _, pid := range []int{vostest.FirstPid, vostest.FirstPid + 1} {
		proc, ok := fake.Proc(pid)
		require.True(t, ok)
		assert.Equal(t, []syscall.Signal{syscall.SIGKILL}, proc.Signals)
		assert.True(t, proc.Exited)
	}
}

func TestQuit_KillEmpty(t *testing.T) {
	fake, s, _ := newTestSession(t)

	stdout, _ := run(t, fake, s, "quit kill")
	assert.Equal(t, "smash: sending SIGKILL signal to 0 jobs:\n", stdout)
	assert.True(t, s.Quitting())
}

func TestBuiltinNames(t *testing.T) {
	assert.Equal(t, []string{"bg", "cd", "chprompt", "fg", "jobs", "kill", "pwd", "quit", "showpid"}, BuiltinNames())
}
