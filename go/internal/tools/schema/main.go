package main

import (
	"context"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/mcdev12/ladders/go/internal/dbconfig"
	"github.com/mcdev12/ladders/go/internal/sessionstore"
	"github.com/mcdev12/ladders/go/internal/sqlutil"
)

func main() {
	_ = godotenv.Load()

	// 1) Connect using shared dbconfig
	cfg, err := env.ParseAs[dbconfig.Config]()
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse db config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 2) Apply the session tier DDL in one transaction
	err = sqlutil.RunTx(ctx, pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, sessionstore.Schema)
		return err
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "apply schema: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("schema applied to %s@%s:%d/%s\n", cfg.User, cfg.Host, cfg.Port, cfg.Database)
}
