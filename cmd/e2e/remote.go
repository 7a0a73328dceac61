package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/shehryarbajwa/browserbase-e2e/internal/browser"
)

func init() {
	remoteCmd.AddCommand(remotePullCmd)
	rootCmd.AddCommand(remoteCmd)
}

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Manage containerised browsers",
}

var remotePullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Pull the remote browser image",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := browser.NewRemotePool(cfg.Browser.Remote.Image, cfg.Browser.Remote.ReadyTimeout, logger.Named("remote"))
		if err != nil {
			return err
		}
		defer pool.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()
		return pool.EnsureImage(ctx)
	},
}
