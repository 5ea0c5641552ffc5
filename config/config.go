package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"relicledger/crypto"
)

// Config describes the daemon's runtime settings.
type Config struct {
	RPCAddress       string `toml:"RPCAddress"`
	DataDir          string `toml:"DataDir"`
	OwnerAddress     string `toml:"OwnerAddress"`
	BaseURI          string `toml:"BaseURI"`
	AdapterGrowthBps uint64 `toml:"AdapterGrowthBps"`
	Environment      string `toml:"Environment"`
	LogFile          string `toml:"LogFile"`
	LogMaxSizeMB     int    `toml:"LogMaxSizeMB"`
	LogMaxBackups    int    `toml:"LogMaxBackups"`
	LogMaxAgeDays    int    `toml:"LogMaxAgeDays"`
}

const maxAdapterGrowthBps = 10_000

// Load reads the configuration at path, creating a default file when none
// exists yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the daemon cannot boot with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RPCAddress) == "" {
		return fmt.Errorf("RPCAddress required")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DataDir required")
	}
	if strings.TrimSpace(c.OwnerAddress) == "" {
		return fmt.Errorf("OwnerAddress required")
	}
	if _, err := crypto.DecodeAddress(strings.TrimSpace(c.OwnerAddress)); err != nil {
		return fmt.Errorf("invalid OwnerAddress: %w", err)
	}
	if c.AdapterGrowthBps > maxAdapterGrowthBps {
		return fmt.Errorf("AdapterGrowthBps must not exceed %d", maxAdapterGrowthBps)
	}
	return nil
}

// Owner returns the decoded governance address. Call Validate first.
func (c *Config) Owner() (crypto.Address, error) {
	return crypto.DecodeAddress(strings.TrimSpace(c.OwnerAddress))
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8545"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./relic-data"
	}
	if strings.TrimSpace(cfg.BaseURI) == "" {
		cfg.BaseURI = "https://relics.example/meta/"
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "local"
	}
	if cfg.AdapterGrowthBps == 0 {
		cfg.AdapterGrowthBps = 500
	}
	if cfg.LogMaxSizeMB == 0 {
		cfg.LogMaxSizeMB = 100
	}
	if cfg.LogMaxBackups == 0 {
		cfg.LogMaxBackups = 3
	}
	if cfg.LogMaxAgeDays == 0 {
		cfg.LogMaxAgeDays = 28
	}
}

// createDefault writes a fresh config with a generated owner key so a new
// deployment can boot without manual setup.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	cfg := &Config{OwnerAddress: key.PubKey().Address().String()}
	applyDefaults(cfg)

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
