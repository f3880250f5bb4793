package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"registra.org/internal/migrate"
	"registra.org/internal/obs"
)

func main() {
	var (
		dsn           = flag.String("dsn", os.Getenv("REGISTRA_DATABASE_DSN"), "postgres connection string")
		migrationsDir = flag.String("migrations", "migrations", "directory with .up.sql/.down.sql files")
		seedsDir      = flag.String("seeds", "migrations/seeds", "directory with seed .sql files")
	)
	flag.Parse()

	log := obs.Logger()
	command := flag.Arg(0)
	if command == "" {
		fmt.Fprintln(os.Stderr, "usage: migrate [flags] up|down|seed|status")
		os.Exit(2)
	}
	if *dsn == "" {
		log.Fatal("database dsn is required")
	}

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	mgr, err := migrate.NewManager(db, *migrationsDir, *seedsDir)
	if err != nil {
		log.WithError(err).Fatal("build manager")
	}

	switch command {
	case "up":
		n, err := mgr.Up(ctx)
		if err != nil {
			log.WithError(err).Fatal("migrate up")
		}
		log.WithField("applied", n).Info("migrations applied")
	case "down":
		name, err := mgr.Down(ctx)
		if err != nil {
			log.WithError(err).Fatal("migrate down")
		}
		if name == "" {
			log.Info("nothing to roll back")
		} else {
			log.WithField("migration", name).Info("rolled back")
		}
	case "seed":
		n, err := mgr.Seed(ctx)
		if err != nil {
			log.WithError(err).Fatal("seed")
		}
		log.WithField("applied", n).Info("seeds applied")
	case "status":
		st, err := mgr.Status(ctx)
		if err != nil {
			log.WithError(err).Fatal("status")
		}
		names := make([]string, 0, len(st))
		for name := range st {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			state := "pending"
			if st[name] {
				state = "applied"
			}
			fmt.Printf("%-40s %s\n", name, state)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", command)
		os.Exit(2)
	}
}
