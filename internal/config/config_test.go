package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const baseYAML = `
version: 1
global:
  rpc_url: ${RPC_URL}
  lookup_address: "0x1d8f8f00cfa6758d7bE78336684788Fb0ee0Fa46"
  abi_dir: ./abis
  templates_path: ./templates.yaml
  tick_interval: 15s
  lookback_blocks: 32
channels:
  - id: default
    type: discord
    webhook_url: ${WEBHOOK_URL}
contracts:
  - name: rocketNodeManager
    category: node
    events:
      - event: NodeRegistered
        display: node_registered
`

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadInterpolatesEnvAndValidates(t *testing.T) {
	t.Setenv("RPC_URL", "http://example-rpc")
	t.Setenv("WEBHOOK_URL", "https://hooks.example.test")

	cfg, err := Load(writeConfig(t, baseYAML))
	if err != nil {
		t.Fatalf("expected load to succeed: %v", err)
	}

	if got := cfg.Global.RPCURL; got != "http://example-rpc" {
		t.Fatalf("rpc_url not interpolated, got %q", got)
	}
	if got := cfg.Channels[0].WebhookURL; got != "https://hooks.example.test" {
		t.Fatalf("webhook_url not interpolated, got %q", got)
	}
	if got := cfg.Contracts[0].Category; got != CategoryNode {
		t.Fatalf("category = %q, want node", got)
	}
}

func TestLoadFailsOnMissingEnv(t *testing.T) {
	t.Setenv("WEBHOOK_URL", "https://hooks.example.test")
	os.Unsetenv("RPC_URL")

	_, err := Load(writeConfig(t, baseYAML))
	if err == nil {
		t.Fatalf("expected missing env to fail")
	}
	if !strings.Contains(err.Error(), "RPC_URL") {
		t.Fatalf("error should name the missing variable, got %v", err)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("RPC_URL", "http://example-rpc")
	t.Setenv("WEBHOOK_URL", "https://hooks.example.test")

	yaml := strings.Replace(baseYAML, "  tick_interval: 15s\n", "", 1)
	cfg, err := Load(writeConfig(t, yaml))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if got := cfg.Global.TickInterval; got != "15s" {
		t.Fatalf("tick_interval default = %q, want 15s", got)
	}
	if cfg.Global.ELExplorer == "" || cfg.Global.CLExplorer == "" || cfg.Global.DBPath == "" {
		t.Fatalf("expected explorer and db defaults, got %+v", cfg.Global)
	}
}

func TestLoadStripsExplorerScheme(t *testing.T) {
	t.Setenv("RPC_URL", "http://example-rpc")
	t.Setenv("WEBHOOK_URL", "https://hooks.example.test")

	yaml := strings.Replace(baseYAML, "global:\n",
		"global:\n  el_explorer: https://etherscan.io/\n  cl_explorer: http://beaconcha.in\n", 1)
	cfg, err := Load(writeConfig(t, yaml))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	// Link markup prepends the scheme; a scheme in config would
	// double it in every rendered link.
	if got := cfg.Global.ELExplorer; got != "etherscan.io" {
		t.Fatalf("el_explorer = %q, want bare host", got)
	}
	if got := cfg.Global.CLExplorer; got != "beaconcha.in" {
		t.Fatalf("cl_explorer = %q, want bare host", got)
	}
}

func TestValidateRejections(t *testing.T) {
	t.Setenv("RPC_URL", "http://example-rpc")
	t.Setenv("WEBHOOK_URL", "https://hooks.example.test")

	tests := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			name:    "bad_tick_interval",
			mutate:  func(y string) string { return strings.Replace(y, "15s", "soon", 1) },
			wantErr: "tick_interval",
		},
		{
			name:    "bad_lookup_address",
			mutate:  func(y string) string { return strings.Replace(y, "0x1d8f8f00cfa6758d7bE78336684788Fb0ee0Fa46", "not-an-address", 1) },
			wantErr: "lookup_address",
		},
		{
			name:    "unknown_category",
			mutate:  func(y string) string { return strings.Replace(y, "category: node", "category: pool", 1) },
			wantErr: "unknown category",
		},
		{
			name:    "missing_default_channel",
			mutate:  func(y string) string { return strings.Replace(y, "id: default", "id: main", 1) },
			wantErr: `"default"`,
		},
		{
			name:    "unsupported_channel_type",
			mutate:  func(y string) string { return strings.Replace(y, "type: discord", "type: irc", 1) },
			wantErr: "unsupported channel type",
		},
		{
			name:    "missing_display",
			mutate:  func(y string) string { return strings.Replace(y, "        display: node_registered\n", "", 1) },
			wantErr: "display is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.mutate(baseYAML)))
			if err == nil {
				t.Fatalf("expected validation failure")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRejectsDuplicateContracts(t *testing.T) {
	t.Setenv("RPC_URL", "http://example-rpc")
	t.Setenv("WEBHOOK_URL", "https://hooks.example.test")

	dup := baseYAML + `
  - name: rocketNodeManager
    category: node
    events:
      - event: NodeRegistered
        display: node_registered_again
`
	_, err := Load(writeConfig(t, dup))
	if err == nil || !strings.Contains(err.Error(), "duplicate contract") {
		t.Fatalf("expected duplicate contract error, got %v", err)
	}
}

func TestTickParsesInterval(t *testing.T) {
	g := GlobalConfig{TickInterval: "30s"}
	if got := g.Tick().Seconds(); got != 30 {
		t.Fatalf("Tick() = %vs, want 30s", got)
	}

	g.TickInterval = "garbage"
	if got := g.Tick().Seconds(); got != 15 {
		t.Fatalf("Tick() fallback = %vs, want 15s", got)
	}
}
