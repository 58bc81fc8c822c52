// Command migrate applies goose migrations for one of the platform's
// services against its own Postgres database.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ticketmesh/orderflow/pkg/config"
	"github.com/ticketmesh/orderflow/pkg/logging"
	"github.com/ticketmesh/orderflow/pkg/migrate"
	"github.com/ticketmesh/orderflow/pkg/shutdown"
)

func main() {
	service := flag.String("service", "", "service whose schema to migrate: inventory, order, orchestrator")
	command := flag.String("command", "up", "goose command: up, down, status, redo, version")
	flag.Parse()

	if *service == "" {
		fmt.Fprintln(os.Stderr, "usage: migrate -service={inventory,order,orchestrator} [-command=up]")
		os.Exit(2)
	}
	dir := "db/migrations/" + *service
	if err := migrate.ValidateDir(dir); err != nil {
		fmt.Fprintf(os.Stderr, "invalid migration directory %s: %v\n", dir, err)
		os.Exit(1)
	}

	log := logging.New(*service + "-migrate")

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config failed", "err", err)
		os.Exit(1)
	}

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	db, err := sql.Open("pgx", cfg.Postgres.URL)
	if err != nil {
		log.Error("open db failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := migrate.Run(ctx, db, dir, *command); err != nil {
		log.Error("migration failed", "service", *service, "command", *command, "err", err)
		os.Exit(1)
	}
	log.Info("migration complete", "service", *service, "command", *command)
}
