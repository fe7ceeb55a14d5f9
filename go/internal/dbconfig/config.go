package dbconfig

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds Postgres connection settings.
type Config struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	Database string `env:"DB_NAME" envDefault:"ladders"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	// Enabled turns tier 3 on. Without it sessions live only in memory and Redis.
	Enabled  bool          `env:"DB_ENABLED" envDefault:"false"`
	MaxConns int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	Timeout  time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"5s"`
}

// DSN returns the Postgres connection URL.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d",
		url.QueryEscape(c.User), url.QueryEscape(c.Password), c.Host, c.Port, c.Database, c.SSLMode, c.MaxConns,
	)
}
