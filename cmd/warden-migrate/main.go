package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"time"

	_ "github.com/lib/pq"

	"github.com/platinummonkey/warden/pkg/audit"
	"github.com/platinummonkey/warden/pkg/authz"
	"github.com/platinummonkey/warden/pkg/config"
)

func main() {
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall migration timeout")
	withAccessLog := flag.Bool("access-log", true, "Also create the access log table")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Printf("Running authorization schema migrations")
	if err := authz.RunMigrations(ctx, db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	if *withAccessLog {
		log.Printf("Ensuring access log table")
		sink, err := audit.NewDBSink(db)
		if err != nil {
			log.Fatalf("Failed to create access log table: %v", err)
		}
		sink.Close()
	}

	log.Printf("Migrations complete")
}
