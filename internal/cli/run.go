package cli

import (
	"io"
	"os"

	"github.com/gfl-labs/divineos/internal/action"
	"github.com/gfl-labs/divineos/internal/branding"
	"github.com/gfl-labs/divineos/internal/config"
	"github.com/gfl-labs/divineos/internal/logging"
	"github.com/gfl-labs/divineos/internal/supervisor"
	"github.com/gfl-labs/divineos/internal/updater"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func runSupervisor(cmd *cobra.Command, args []string) error {
	result, err := config.ValidateFile(config.FilePath())
	if err != nil {
		return err
	}
	if err := result.Err(); err != nil {
		return err
	}
	if err := config.Load(); err != nil {
		return err
	}
	log, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	policy, err := supervisor.ParseFailurePolicy(config.OnFailure())
	if err != nil {
		return err
	}
	act, err := buildAction(log)
	if err != nil {
		return err
	}

	s := supervisor.New(act,
		supervisor.WithOutput(cmd.OutOrStdout()),
		supervisor.WithLogger(log),
		supervisor.WithFailurePolicy(policy),
	)
	return s.Run(cmd.Context())
}

// buildAction picks the configured update command, or the release updater.
func buildAction(log logrus.FieldLogger) (supervisor.Action, error) {
	if line := config.UpdateCommand(); line != "" {
		log.WithField("command", line).Debug("using external update command")
		return action.Command(line, action.WithLogger(log))
	}
	return newUpdater(log).Update, nil
}

func newUpdater(log logrus.FieldLogger) *updater.Updater {
	opts := []updater.Option{
		updater.WithConfigDir(config.Dir()),
		updater.WithLogger(log),
	}
	if mirror := config.Mirror(); mirror != "" {
		opts = append(opts, updater.WithMirror(mirror))
	}
	if base := os.Getenv(branding.EnvVar("API_BASE")); base != "" {
		opts = append(opts, updater.WithAPIBase(base))
	}
	return updater.New(buildVersion, branding.GitHubRepo(), opts...)
}

// newLogger honors --log-level over the configured level.
func newLogger(w io.Writer) (*logrus.Logger, error) {
	level := logLevel
	if level == "" {
		level = config.LogLevel()
	}
	return logging.New(w, level)
}
