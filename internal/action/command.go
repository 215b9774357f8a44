package action

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/mattn/go-shellwords"
	"github.com/sirupsen/logrus"

	"github.com/gfl-labs/divineos/internal/supervisor"
)

// ErrEmptyCommand is returned when the command line has no words.
var ErrEmptyCommand = errors.New("update command is empty")

const (
	// waitDelay bounds how long output is still collected after the
	// context is done.
	waitDelay = 2 * time.Second

	maxLineBytes = 64 * 1024
)

// CommandOption configures a command action.
type CommandOption func(*command)

// WithDir runs the command in dir.
func WithDir(dir string) CommandOption {
	return func(c *command) { c.dir = dir }
}

// WithEnv appends KEY=VALUE pairs to the inherited environment.
func WithEnv(env ...string) CommandOption {
	return func(c *command) { c.env = append(c.env, env...) }
}

// WithLogger sets where the command's output lines are logged.
func WithLogger(l logrus.FieldLogger) CommandOption {
	return func(c *command) { c.log = l }
}

type command struct {
	argv []string
	dir  string
	env  []string
	log  logrus.FieldLogger
}

// Command parses line with shell quoting rules and returns an action that runs
// it to completion. Environment references like $HOME are expanded. The
// command's stdout and stderr are logged line by line; a non-zero exit is an
// error.
func Command(line string, opts ...CommandOption) (supervisor.Action, error) {
	p := shellwords.NewParser()
	p.ParseEnv = true
	argv, err := p.Parse(line)
	if err != nil {
		return nil, fmt.Errorf("parsing update command %q: %w", line, err)
	}
	if len(argv) == 0 {
		return nil, ErrEmptyCommand
	}

	c := &command{argv: argv, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(c)
	}
	return c.run, nil
}

func (c *command) run(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, c.argv[0], c.argv[1:]...)
	cmd.Dir = c.dir
	if len(c.env) > 0 {
		cmd.Env = append(os.Environ(), c.env...)
	}
	// Grandchildren may hold stdout/stderr open after the child is killed.
	cmd.WaitDelay = waitDelay
	killProcessGroup(cmd)

	log := c.log.WithField("command", c.argv[0])
	stdout := &lineWriter{log: log.WithField("stream", "stdout"), level: logrus.InfoLevel}
	stderr := &lineWriter{log: log.WithField("stream", "stderr"), level: logrus.WarnLevel}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", c.argv[0], err)
	}
	err := cmd.Wait()
	stdout.Flush()
	stderr.Flush()
	if errors.Is(err, exec.ErrWaitDelay) {
		log.Warn("command exited but a background process kept its output open")
		err = nil
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("running %s: %w", c.argv[0], err)
	}
	return nil
}

// lineWriter logs each line written to it. Carriage returns end a line so
// progress output is logged as it advances, and a line longer than
// maxLineBytes is logged in pieces. Write never fails, so the child can
// never block on a full pipe.
type lineWriter struct {
	mu    sync.Mutex
	log   *logrus.Entry
	level logrus.Level
	buf   []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexAny(w.buf, "\r\n")
		if i < 0 {
			break
		}
		w.emit(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	for len(w.buf) >= maxLineBytes {
		w.emit(w.buf[:maxLineBytes])
		w.buf = w.buf[maxLineBytes:]
	}
	return len(p), nil
}

// Flush logs a trailing partial line.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.emit(w.buf)
	w.buf = nil
}

func (w *lineWriter) emit(line []byte) {
	if len(line) == 0 {
		return
	}
	w.log.WithField("line", string(line)).Log(w.level, "update output")
}
