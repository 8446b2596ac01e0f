/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"
	"log"

	"github.com/awdoty/GlucoseUploader-sub002/internal/api"
	"github.com/awdoty/GlucoseUploader-sub002/internal/config"
	"github.com/awdoty/GlucoseUploader-sub002/internal/container"
	"github.com/spf13/cobra"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload pending readings to the health data store",
	Long: `Upload all pending readings to the health data store.
The upload only proceeds when the store has granted the required
permissions; otherwise the run ends with the permission status and
no readings change state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err := api.NewLoggerFromConfig(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ctr, err := container.NewContainer(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		result, err := ctr.UploadService().SyncPending(cmd.Context())
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		log.Printf("Sync finished: status=%s uploaded=%d failed=%d batches=%d",
			result.Status, result.Uploaded, result.Failed, result.Batches)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().String("config", "", "Config file path (default: search in current directory, ./config, or $HOME/.glucose-uploader)")
}
