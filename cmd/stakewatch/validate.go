package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/stakewatch/stakewatch/internal/config"
	"github.com/stakewatch/stakewatch/internal/render"
)

const defaultHTTPTimeout = 8 * time.Second

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate config, templates, and RPC connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}
		fmt.Fprintf(out, "config OK (version %d)\n", cfg.Version)

		templates, err := render.LoadTemplates(cfg.Global.TemplatesPath)
		if err != nil {
			return fmt.Errorf("templates invalid: %w", err)
		}

		failures := 0
		for _, ct := range cfg.Contracts {
			for _, ev := range ct.Events {
				for _, part := range []string{".title", ".description"} {
					if _, err := templates.Render(ev.Display+part, map[string]string{}); err != nil {
						failures++
						fmt.Fprintf(out, "- template %s%s: %v\n", ev.Display, part, err)
					}
				}
			}
		}
		if failures == 0 {
			fmt.Fprintln(out, "templates OK")
		}

		client := &http.Client{Timeout: defaultHTTPTimeout}
		chainID, err := pingRPC(cmd.Context(), client, cfg.Global.RPCURL, "eth_chainId")
		if err != nil {
			failures++
			fmt.Fprintf(out, "- rpc: ERROR %v\n", err)
		} else {
			fmt.Fprintf(out, "rpc OK (chainId %s)\n", chainID)
		}

		if failures > 0 {
			return fmt.Errorf("validate: %d check(s) failed", failures)
		}
		fmt.Fprintln(out, "validate: success")
		return nil
	},
}

func pingRPC(ctx context.Context, client *http.Client, url, method string) (string, error) {
	payload := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  []any{},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("rpc status %d", resp.StatusCode)
	}

	var rpcResp struct {
		Result string `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return "", fmt.Errorf("decode rpc response: %w", err)
	}

	if rpcResp.Error != nil {
		return "", fmt.Errorf("rpc error: %s", rpcResp.Error.Message)
	}
	if rpcResp.Result == "" {
		return "", fmt.Errorf("empty %s result", method)
	}

	return rpcResp.Result, nil
}
