package main

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/mcdev12/ladders/go/internal/board"
	"github.com/mcdev12/ladders/go/internal/broker"
	"github.com/mcdev12/ladders/go/internal/dbconfig"
	"github.com/mcdev12/ladders/go/internal/gateway"
	"github.com/mcdev12/ladders/go/internal/matchmaking"
	"github.com/mcdev12/ladders/go/internal/sessionstore"
	"github.com/mcdev12/ladders/go/internal/stakes"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Config struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	InstanceID      string        `env:"INSTANCE_ID"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// CatalogPath replaces the embedded board and stake catalog.
	CatalogPath string `env:"CATALOG_PATH"`

	RedisURL      string        `env:"REDIS_URL"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`
	PurgeInterval time.Duration `env:"SESSION_PURGE_INTERVAL" envDefault:"10m"`

	// Without an economy URL wallets live in an in-process ledger.
	EconomyURL      string        `env:"ECONOMY_URL"`
	EconomyAPIKey   string        `env:"ECONOMY_API_KEY"`
	EconomyTimeout  time.Duration `env:"ECONOMY_TIMEOUT" envDefault:"5s"`
	StartingBalance int64         `env:"STARTING_BALANCE" envDefault:"1000"`

	DB        dbconfig.Config
	Store     sessionstore.Config
	Match     matchmaking.Config
	NATS      broker.Config
	WebSocket gateway.ConnectionConfig
}

func loadConfig() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = defaultInstanceID()
	}
	return &cfg, nil
}

// defaultInstanceID derives a NATS-safe consumer name from the hostname.
func defaultInstanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "local"
	}
	return strings.NewReplacer(".", "-", "*", "-", ">", "-", " ", "-").Replace(host)
}

func setupLogging(cfg *Config) {
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Err(err).Str("level", cfg.LogLevel).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func loadCatalog(path string) (*board.Registry, *stakes.Catalog, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read catalog file: %w", err)
		}
	}

	boards, err := board.LoadLayouts(data)
	if err != nil {
		return nil, nil, err
	}
	catalog, err := stakes.LoadCatalog(data, func(id string) bool {
		_, err := boards.Layout(id)
		return err == nil
	})
	if err != nil {
		return nil, nil, err
	}
	return boards, catalog, nil
}
