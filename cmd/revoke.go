/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"
	"log"

	"github.com/awdoty/GlucoseUploader-sub002/internal/api"
	"github.com/awdoty/GlucoseUploader-sub002/internal/config"
	"github.com/awdoty/GlucoseUploader-sub002/internal/permissions"
	"github.com/spf13/cobra"
)

// revokeCmd represents the revoke command
var revokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke all permissions granted by the health data store",
	Long: `Revoke all permissions this service holds on the health data store.
After revocation subsequent syncs will stop at the permission gate
until the permissions are granted again.`,
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

		gate := permissions.NewGate(cfg.HealthStore, logger)
		gate.RevokeAll(cmd.Context())

		log.Println("Revocation requested")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(revokeCmd)

	revokeCmd.Flags().String("config", "", "Config file path (default: search in current directory, ./config, or $HOME/.glucose-uploader)")
}
