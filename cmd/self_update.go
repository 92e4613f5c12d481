package cmd

import (
	"fmt"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

const defaultReleaseRepo = "giantswarm/mcp-brightspace"

var updateRepo string

func newSelfUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "self-update",
		Short: "Update mcp-brightspace to the latest GitHub release",
		Args:  cobra.NoArgs,
		RunE:  runSelfUpdate,
	}
	cmd.Flags().StringVar(&updateRepo, "repo", defaultReleaseRepo, "GitHub repository (owner/name) to fetch releases from")
	return cmd
}

func runSelfUpdate(cmd *cobra.Command, args []string) error {
	if version == "" || version == "dev" {
		return fmt.Errorf("self-update is not available for development builds")
	}

	logger := newLogger()
	ctx, cancel := commandContext(cmd, logger)
	defer cancel()

	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(updateRepo))
	if err != nil {
		return fmt.Errorf("error occurred while detecting version: %w", err)
	}
	if !found {
		return fmt.Errorf("latest version for %s could not be found", updateRepo)
	}

	if latest.LessOrEqual(version) {
		logger.Info("Current version (%s) is the latest", version)
		return nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("could not locate executable path: %w", err)
	}
	logger.Info("Updating %s from %s to %s...", exe, version, latest.Version())
	if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
		return fmt.Errorf("error occurred while updating binary: %w", err)
	}
	logger.Success("Successfully updated to version %s", latest.Version())
	return nil
}
