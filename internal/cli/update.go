package cli

import (
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/gfl-labs/divineos/internal/config"
	"github.com/gfl-labs/divineos/internal/updater"
	"github.com/spf13/cobra"
)

var (
	updateCheck   bool
	updateForce   bool
	updateVersion string
	updateRefresh bool
)

func init() {
	updateCmd.Flags().BoolVar(&updateCheck, "check", false, "Only check for updates, don't install")
	updateCmd.Flags().BoolVar(&updateForce, "force", false, "Install even if already on the latest version")
	updateCmd.Flags().StringVar(&updateVersion, "version", "", "Install a specific version (e.g., 1.2.0)")
	updateCmd.Flags().BoolVar(&updateRefresh, "refresh", false, "With --check, ignore the cached result of the last check")

	rootCmd.AddCommand(updateCmd)
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Run a single update outside the supervisor loop",
	Long: `Checks GitHub releases (or the configured mirror) for a newer divineos and
installs it in place.

  divineos update                  # update to latest
  divineos update --check          # check only, answered from the last day's check if any
  divineos update --check --refresh
  divineos update --version 1.2.0  # install a specific version`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}
		log, err := newLogger(cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
		u := newUpdater(log)

		if updateCheck && updateVersion == "" && !updateRefresh {
			if cache := u.CachedCheck(); cache != nil {
				fmt.Fprintf(errOut, "Last checked %s\n", cache.CheckedAt.Local().Format(time.RFC1123))
				printCheck(out, cache.UpdateAvailable, cache.LatestVersion)
				return nil
			}
		}

		var release *updater.Release
		if updateVersion != "" {
			fmt.Fprintf(errOut, "Checking for version %s...\n", updateVersion)
			release, err = u.CheckSpecificVersion(ctx, updateVersion)
		} else {
			fmt.Fprintln(errOut, "Checking for updates...")
			release, err = u.CheckLatestVersion(ctx)
		}
		if err != nil {
			return fmt.Errorf("checking for updates: %w", err)
		}

		available, err := updater.IsUpdateAvailable(buildVersion, release.Version)
		switch {
		case err == nil:
			if updateVersion == "" {
				u.RecordCheck(release.Version, available)
			}
		case buildVersion == updater.DevVersion:
			// Development builds can always be replaced by hand.
			available = true
		default:
			return fmt.Errorf("comparing versions: %w", err)
		}

		if updateCheck {
			printCheck(out, available, release.Version)
			return nil
		}

		if !available && !updateForce {
			fmt.Fprintf(out, "You are on the latest version (%s)\n", buildVersion)
			return nil
		}

		fmt.Fprintf(errOut, "Installing divineos %s for %s/%s...\n", release.Version, runtime.GOOS, runtime.GOARCH)
		if err := u.Install(ctx, release); err != nil {
			return err
		}

		fmt.Fprintf(out, "Successfully updated to %s\n", release.Version)
		return nil
	},
}

func printCheck(w io.Writer, available bool, latest string) {
	if available {
		fmt.Fprintf(w, "Update available: %s -> %s\n", buildVersion, latest)
	} else {
		fmt.Fprintf(w, "You are on the latest version (%s)\n", buildVersion)
	}
}
