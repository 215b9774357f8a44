package action

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
}

func linesAt(hook *test.Hook, level logrus.Level) []string {
	var lines []string
	for _, e := range hook.AllEntries() {
		if e.Level == level {
			lines = append(lines, e.Data["line"].(string))
		}
	}
	return lines
}

func TestCommand_ParseErrors(t *testing.T) {
	_, err := Command("")
	assert.ErrorIs(t, err, ErrEmptyCommand)

	_, err = Command(`sh -c "unterminated`)
	assert.Error(t, err)
}

func TestCommand_RunsAndLogsOutput(t *testing.T) {
	skipOnWindows(t)
	logger, hook := test.NewNullLogger()

	act, err := Command(`sh -c 'echo "pulling modules"; echo "cache cold" 1>&2'`, WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, act(context.Background()))

	assert.Equal(t, []string{"pulling modules"}, linesAt(hook, logrus.InfoLevel))
	assert.Equal(t, []string{"cache cold"}, linesAt(hook, logrus.WarnLevel))
}

func TestCommand_NonZeroExit(t *testing.T) {
	skipOnWindows(t)
	logger, _ := test.NewNullLogger()

	act, err := Command("sh -c 'exit 7'", WithLogger(logger))
	require.NoError(t, err)

	err = act(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 7")
}

func TestCommand_MissingBinary(t *testing.T) {
	logger, _ := test.NewNullLogger()
	act, err := Command("/nonexistent/divineos-update", WithLogger(logger))
	require.NoError(t, err)
	assert.Error(t, act(context.Background()))
}

func TestCommand_DirAndEnv(t *testing.T) {
	skipOnWindows(t)
	logger, _ := test.NewNullLogger()
	dir := t.TempDir()

	act, err := Command(`sh -c 'env > marker'`,
		WithLogger(logger), WithDir(dir), WithEnv("GFL_CHANNEL=stable"))
	require.NoError(t, err)
	require.NoError(t, act(context.Background()))

	data, err := os.ReadFile(filepath.Join(dir, "marker"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "GFL_CHANNEL=stable\n")
}

func TestCommand_ExpandsEnvAtParse(t *testing.T) {
	skipOnWindows(t)
	logger, hook := test.NewNullLogger()
	t.Setenv("DIVINEOS_TEST_WORD", "solin")

	act, err := Command("echo $DIVINEOS_TEST_WORD", WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, act(context.Background()))
	assert.Equal(t, []string{"solin"}, linesAt(hook, logrus.InfoLevel))
}

func TestCommand_Cancelled(t *testing.T) {
	skipOnWindows(t)
	logger, _ := test.NewNullLogger()

	act, err := Command("sleep 30", WithLogger(logger))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = act(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestCommand_LongLineDoesNotBlock(t *testing.T) {
	skipOnWindows(t)
	logger, hook := test.NewNullLogger()

	act, err := Command(`sh -c 'printf "%204800s" "" | tr " " "#"; echo done'`, WithLogger(logger))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, act(ctx))

	lines := linesAt(hook, logrus.InfoLevel)
	require.Len(t, lines, 4)
	for _, line := range lines[:3] {
		assert.Len(t, line, maxLineBytes)
	}
	assert.True(t, strings.HasSuffix(lines[3], "#done"))
}

func TestCommand_CarriageReturnEndsLine(t *testing.T) {
	skipOnWindows(t)
	logger, hook := test.NewNullLogger()

	act, err := Command(`printf 'fetch 10%%\\rfetch 100%%\\r\\n'`, WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, act(context.Background()))

	assert.Equal(t, []string{"fetch 10%", "fetch 100%"}, linesAt(hook, logrus.InfoLevel))
}

func TestCommand_CancelKillsChildProcesses(t *testing.T) {
	skipOnWindows(t)
	logger, hook := test.NewNullLogger()

	act, err := Command("sh -c 'sleep 4; echo late'", WithLogger(logger))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = act(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), waitDelay+time.Second)
	assert.Empty(t, linesAt(hook, logrus.InfoLevel))
}

func TestLineWriter_FlushesPartialLine(t *testing.T) {
	logger, hook := test.NewNullLogger()
	w := &lineWriter{log: logrus.NewEntry(logger), level: logrus.InfoLevel}

	_, err := w.Write([]byte("solin\nlib"))
	require.NoError(t, err)
	_, err = w.Write([]byte("ra"))
	require.NoError(t, err)
	assert.Equal(t, []string{"solin"}, linesAt(hook, logrus.InfoLevel))

	w.Flush()
	assert.Equal(t, []string{"solin", "libra"}, linesAt(hook, logrus.InfoLevel))
}

func TestCommand_BackgroundProcessHoldingOutput(t *testing.T) {
	skipOnWindows(t)
	logger, hook := test.NewNullLogger()

	act, err := Command("sh -c 'sleep 4 & echo started'", WithLogger(logger))
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, act(context.Background()))
	assert.Less(t, time.Since(start), waitDelay+time.Second)
	assert.Equal(t, []string{"started"}, linesAt(hook, logrus.InfoLevel))
	assert.NotEmpty(t, hook.AllEntries())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}
