package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stakewatch/stakewatch/internal/config"
	"github.com/stakewatch/stakewatch/internal/storage"
)

var flagExportLimit int

func init() {
	exportCmd.Flags().IntVar(&flagExportLimit, "limit", 100, "Maximum journal entries to export")
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the delivery journal as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		store, err := storage.Open(cfg.Global.DBPath)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()

		deliveries, err := store.Deliveries(cmd.Context(), flagExportLimit)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(deliveries)
	},
}
