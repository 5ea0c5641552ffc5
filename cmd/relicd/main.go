package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"relicledger/config"
	"relicledger/core"
	"relicledger/observability/logging"
	"relicledger/rpc"
	"relicledger/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	env := strings.TrimSpace(os.Getenv("RELIC_ENV"))
	if env == "" {
		env = cfg.Environment
	}
	logger := logging.Setup("relicd", env, logging.Options{
		FilePath:   cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})

	owner, err := cfg.Owner()
	if err != nil {
		logger.Error("Failed to decode owner address", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	node, err := core.NewNode(db, core.Config{
		Owner:            owner,
		BaseURI:          cfg.BaseURI,
		AdapterGrowthBps: cfg.AdapterGrowthBps,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialise node", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("Node initialised",
		slog.String("owner", owner.String()),
		slog.String("dataDir", cfg.DataDir),
	)

	server := rpc.NewServer(node)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
