package cmd

import (
	"bytes"
	"testing"

	"github.com/NadavTAshkenazi/smash/core/config"
	"github.com/NadavTAshkenazi/smash/core/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()

	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		cfgPath = ""
	})

	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestBuiltinsCommand(t *testing.T) {
	out := execute(t, "builtins")

	assert.Equal(t, "bg\ncd\nchprompt\nfg\njobs\nkill\npwd\nquit\nshowpid\n", out)
}

func TestInitAndReport(t *testing.T) {
	dir := t.TempDir()

	execute(t, "--config", dir, "init")

	cfg, err := config.Load(dir)
	require.NoError(t, err)

	fd, err := cfg.OpenEventLog()
	require.NoError(t, err)
	session := logger.NewJsonLinesLogRecorder(fd).NewSession()
	require.NoError(t, session.Record(&logger.SessionEvent{Event: logger.SessionStarted}))
	require.NoError(t, session.Record(&logger.RunCommand{Command: []string{"jobs"}, Builtin: true}))
	require.NoError(t, fd.Close())

	out := execute(t, "--config", dir, "events", "report")
	assert.Contains(t, out, "log_entries: 2")
	assert.Contains(t, out, "jobs: 1")

	out = execute(t, "--config", dir, "events", "sessions")
	assert.Contains(t, out, session.SessionID())
}
