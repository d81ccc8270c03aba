package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stakewatch/stakewatch/internal/config"
	"github.com/stakewatch/stakewatch/internal/storage"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the pipeline cursor and processing lag",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		store, err := storage.Open(cfg.Global.DBPath)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()

		block, ok, err := store.GetCursor(cmd.Context(), storage.CursorID)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "no cursor yet (pipeline has not completed a tick)")
			return nil
		}
		fmt.Fprintf(out, "last checked block: %d\n", block)

		client := &http.Client{Timeout: defaultHTTPTimeout}
		latestHex, err := pingRPC(cmd.Context(), client, cfg.Global.RPCURL, "eth_blockNumber")
		if err != nil {
			fmt.Fprintf(out, "latest block: unavailable (%v)\n", err)
			return nil
		}
		latest, err := strconv.ParseUint(strings.TrimPrefix(latestHex, "0x"), 16, 64)
		if err != nil {
			return fmt.Errorf("parse block number %q: %w", latestHex, err)
		}
		fmt.Fprintf(out, "latest block: %d\n", latest)
		if latest > block {
			fmt.Fprintf(out, "lag: %d blocks\n", latest-block)
		} else {
			fmt.Fprintln(out, "lag: 0 blocks")
		}
		return nil
	},
}
