package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Category classifies a watched contract. Enrichment hooks and channel
// routing key on it instead of matching substrings of display names.
type Category string

const (
	CategoryDeposit  Category = "deposit"
	CategoryNode     Category = "node"
	CategoryMinipool Category = "minipool"
	CategoryProposal Category = "proposal"
	CategoryODAO     Category = "odao"
	CategoryNetwork  Category = "network"
)

var categories = map[Category]struct{}{
	CategoryDeposit:  {},
	CategoryNode:     {},
	CategoryMinipool: {},
	CategoryProposal: {},
	CategoryODAO:     {},
	CategoryNetwork:  {},
}

// Valid reports whether the category is one of the known values.
func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

// Config holds the YAML configuration.
type Config struct {
	Version   int               `yaml:"version"`
	Global    GlobalConfig      `yaml:"global"`
	Channels  []Channel         `yaml:"channels"`
	Contracts []Contract        `yaml:"contracts"`
	Labels    map[string]string `yaml:"labels,omitempty"`
}

type GlobalConfig struct {
	RPCURL         string `yaml:"rpc_url"`
	LookupAddress  string `yaml:"lookup_address"`
	ABIDir         string `yaml:"abi_dir"`
	DBPath         string `yaml:"db_path"`
	TemplatesPath  string `yaml:"templates_path"`
	TickInterval   string `yaml:"tick_interval"`
	LookbackBlocks uint64 `yaml:"lookback_blocks"`
	Confirmations  uint64 `yaml:"confirmations"`
	ELExplorer     string `yaml:"el_explorer"`
	CLExplorer     string `yaml:"cl_explorer"`
}

// Tick returns the parsed tick interval. Validate guarantees it parses.
func (g *GlobalConfig) Tick() time.Duration {
	d, err := time.ParseDuration(g.TickInterval)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// Channel declares a notification destination. The governance channel
// receives odao-category traffic, the default channel everything else.
type Channel struct {
	ID         string `yaml:"id"`
	Type       string `yaml:"type"`
	WebhookURL string `yaml:"webhook_url"`
}

// Contract declares a watched contract and its event subscriptions.
type Contract struct {
	Name     string   `yaml:"name"`
	Category Category `yaml:"category"`
	Events   []Event  `yaml:"events"`
}

// Event maps an on-chain event type to its display name, which doubles
// as the template key for title/description rendering.
type Event struct {
	Event   string `yaml:"event"`
	Display string `yaml:"display"`
}

var envPattern = regexp.MustCompile(`\${([A-Za-z_][A-Za-z0-9_]*)}`)

// Load reads, interpolates env vars, parses YAML, and validates.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}

	if err := loadDotEnv(path); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	interpolated, err := interpolateEnv(string(raw))
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolated), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadDotEnv(configPath string) error {
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return fmt.Errorf("load .env: %w", err)
		}
	}
	return nil
}

func interpolateEnv(input string) (string, error) {
	missing := []string{}
	out := envPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := envPattern.FindStringSubmatch(match)[1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		missing = append(missing, name)
		return match
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("missing environment variables: %s", strings.Join(dedup(missing), ", "))
	}
	return out, nil
}

func (c *Config) applyDefaults() {
	if c.Global.TickInterval == "" {
		c.Global.TickInterval = "15s"
	}
	if c.Global.ELExplorer == "" {
		c.Global.ELExplorer = "etherscan.io"
	}
	if c.Global.CLExplorer == "" {
		c.Global.CLExplorer = "beaconcha.in"
	}
	if c.Global.DBPath == "" {
		c.Global.DBPath = "stakewatch.db"
	}
	c.Global.ELExplorer = stripScheme(c.Global.ELExplorer)
	c.Global.CLExplorer = stripScheme(c.Global.CLExplorer)
}

// stripScheme normalizes explorer hosts; link markup prepends https://.
func stripScheme(host string) string {
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	return strings.TrimSuffix(host, "/")
}

// Validate performs small, direct schema checks.
func (c *Config) Validate() error {
	if c.Version == 0 {
		return errors.New("version is required")
	}
	if err := c.Global.Validate(); err != nil {
		return fmt.Errorf("global: %w", err)
	}
	if len(c.Channels) == 0 {
		return errors.New("at least one channel is required")
	}
	if len(c.Contracts) == 0 {
		return errors.New("at least one contract is required")
	}

	channelIDs := map[string]struct{}{}
	for _, ch := range c.Channels {
		if _, exists := channelIDs[ch.ID]; exists {
			return fmt.Errorf("duplicate channel id: %s", ch.ID)
		}
		channelIDs[ch.ID] = struct{}{}
		if err := ch.Validate(); err != nil {
			return fmt.Errorf("channel %s: %w", ch.ID, err)
		}
	}
	if _, ok := channelIDs["default"]; !ok {
		return errors.New(`a channel with id "default" is required`)
	}

	contractNames := map[string]struct{}{}
	for _, ct := range c.Contracts {
		if _, exists := contractNames[ct.Name]; exists {
			return fmt.Errorf("duplicate contract: %s", ct.Name)
		}
		contractNames[ct.Name] = struct{}{}
		if err := ct.Validate(); err != nil {
			return fmt.Errorf("contract %s: %w", ct.Name, err)
		}
	}

	for addr := range c.Labels {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("labels: %q is not a hex address", addr)
		}
	}

	return nil
}

func (g *GlobalConfig) Validate() error {
	if g.RPCURL == "" {
		return errors.New("rpc_url is required")
	}
	if !common.IsHexAddress(g.LookupAddress) {
		return fmt.Errorf("lookup_address %q is not a hex address", g.LookupAddress)
	}
	if g.ABIDir == "" {
		return errors.New("abi_dir is required")
	}
	if g.TemplatesPath == "" {
		return errors.New("templates_path is required")
	}
	if _, err := time.ParseDuration(g.TickInterval); err != nil {
		return fmt.Errorf("tick_interval: %w", err)
	}
	return nil
}

func (ch *Channel) Validate() error {
	if ch.ID == "" {
		return errors.New("id is required")
	}
	switch strings.ToLower(ch.Type) {
	case "discord", "webhook":
		if ch.WebhookURL == "" {
			return errors.New("webhook_url is required")
		}
	default:
		return fmt.Errorf("unsupported channel type: %s", ch.Type)
	}
	return nil
}

func (ct *Contract) Validate() error {
	if ct.Name == "" {
		return errors.New("name is required")
	}
	if !ct.Category.Valid() {
		return fmt.Errorf("unknown category: %s", ct.Category)
	}
	if len(ct.Events) == 0 {
		return errors.New("at least one event is required")
	}
	seen := map[string]struct{}{}
	for _, ev := range ct.Events {
		if ev.Event == "" {
			return errors.New("event is required")
		}
		if ev.Display == "" {
			return fmt.Errorf("event %s: display is required", ev.Event)
		}
		if _, exists := seen[ev.Event]; exists {
			return fmt.Errorf("duplicate event: %s", ev.Event)
		}
		seen[ev.Event] = struct{}{}
	}
	return nil
}

func dedup(values []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
