package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const sampleConfig = `version: 1

global:
  rpc_url: ${RPC_URL}
  lookup_address: "0x1d8f8f00cfa6758d7bE78336684788Fb0ee0Fa46"
  abi_dir: ./abis
  db_path: ./stakewatch.db
  templates_path: ./templates.yaml
  tick_interval: 15s
  lookback_blocks: 32
  confirmations: 2
  el_explorer: etherscan.io
  cl_explorer: beaconcha.in

channels:
  - id: default
    type: discord
    webhook_url: ${DISCORD_WEBHOOK_URL}
  - id: governance
    type: discord
    webhook_url: ${GOVERNANCE_WEBHOOK_URL}

contracts:
  - name: rocketNodeManager
    category: node
    events:
      - event: NodeRegistered
        display: node_registered
  - name: rocketDAOProposal
    category: proposal
    events:
      - event: ProposalAdded
        display: proposal_added
`

const sampleTemplates = `node_registered:
  title: "New Node Registered"
  description: "Node {{.nodeAddress}} joined the network."
proposal_added:
  title: "New Proposal #{{.proposalID}}"
  description: "{{.message}}"
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold a sample config and templates file",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		files := []struct {
			path string
			body string
		}{
			{cfgPath, sampleConfig},
			{"templates.yaml", sampleTemplates},
		}
		for _, f := range files {
			if _, err := os.Stat(f.path); err == nil {
				return fmt.Errorf("refusing to overwrite existing %s", f.path)
			}
			if err := os.WriteFile(f.path, []byte(f.body), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", f.path, err)
			}
			fmt.Fprintf(out, "wrote %s\n", f.path)
		}

		if err := os.MkdirAll("abis", 0o755); err != nil {
			return fmt.Errorf("create abis dir: %w", err)
		}
		fmt.Fprintln(out, "created abis/ (drop contract ABI JSON files here, named <contract>.json)")
		fmt.Fprintln(out, "next: set RPC_URL and webhook env vars, then run 'stakewatch validate'")
		return nil
	},
}
