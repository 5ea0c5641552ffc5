package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"relicledger/crypto"
)

func testOwnerString(t *testing.T) string {
	t.Helper()
	var raw [20]byte
	raw[19] = 0x7
	return crypto.MustNewAddress(crypto.RelicPrefix, raw[:]).String()
}

func TestLoadParsesSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := fmt.Sprintf(`RPCAddress = "0.0.0.0:9000"
DataDir = "./data"
OwnerAddress = "%s"
BaseURI = "https://relics.test/meta/"
AdapterGrowthBps = 750
Environment = "staging"
LogFile = "./relicd.log"
LogMaxSizeMB = 50
`, testOwnerString(t))
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.RPCAddress != "0.0.0.0:9000" {
		t.Fatalf("unexpected RPCAddress %q", cfg.RPCAddress)
	}
	if cfg.AdapterGrowthBps != 750 {
		t.Fatalf("unexpected AdapterGrowthBps %d", cfg.AdapterGrowthBps)
	}
	if cfg.Environment != "staging" {
		t.Fatalf("unexpected Environment %q", cfg.Environment)
	}
	if cfg.LogMaxBackups != 3 {
		t.Fatalf("expected default LogMaxBackups, got %d", cfg.LogMaxBackups)
	}
	owner, err := cfg.Owner()
	if err != nil {
		t.Fatalf("decode owner: %v", err)
	}
	if owner.String() != testOwnerString(t) {
		t.Fatalf("owner round-trip mismatch")
	}
}

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to be created: %v", err)
	}
	if cfg.RPCAddress != ":8545" {
		t.Fatalf("unexpected default RPCAddress %q", cfg.RPCAddress)
	}
	if _, err := cfg.Owner(); err != nil {
		t.Fatalf("generated owner should decode: %v", err)
	}

	// Loading again should parse the persisted file unchanged.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload config: %v", err)
	}
	if again.OwnerAddress != cfg.OwnerAddress {
		t.Fatalf("owner changed across reloads")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	owner := testOwnerString(t)
	cases := []struct {
		name string
		cfg  Config
	}{
		{"missing rpc address", Config{DataDir: "./d", OwnerAddress: owner}},
		{"missing data dir", Config{RPCAddress: ":8545", OwnerAddress: owner}},
		{"missing owner", Config{RPCAddress: ":8545", DataDir: "./d"}},
		{"bad owner", Config{RPCAddress: ":8545", DataDir: "./d", OwnerAddress: "nope"}},
		{"growth too high", Config{RPCAddress: ":8545", DataDir: "./d", OwnerAddress: owner, AdapterGrowthBps: 10_001}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
