/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"errors"
	"fmt"
	"log"

	"github.com/awdoty/GlucoseUploader-sub002/internal/api"
	"github.com/awdoty/GlucoseUploader-sub002/internal/config"
	"github.com/awdoty/GlucoseUploader-sub002/internal/container"
	"github.com/awdoty/GlucoseUploader-sub002/internal/importer"
	"github.com/spf13/cobra"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <file.csv> [more files...]",
	Short: "Import blood glucose readings from CSV files",
	Long: `Import blood glucose readings from one or more CSV files into the
local database. Imported readings are stored as pending and uploaded
to the health data store by the sync command or the background scheduler.

A file that was already imported (same content checksum) is skipped.`,
	Args: cobra.MinimumNArgs(1),
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

		for _, path := range args {
			batch, err := ctr.ImportService().ImportFile(cmd.Context(), path)
			if err != nil {
				if errors.Is(err, importer.ErrDuplicateFile) {
					log.Printf("Skipped %s: already imported (batch %s)", path, batch.ID)
					continue
				}
				return fmt.Errorf("failed to import %s: %w", path, err)
			}
			log.Printf("Imported %s: %d readings, %d rows rejected (batch %s)",
				path, batch.RowsParsed, batch.RowsRejected, batch.ID)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().String("config", "", "Config file path (default: search in current directory, ./config, or $HOME/.glucose-uploader)")
}
