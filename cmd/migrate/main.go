package main

import (
	"colorgame_backend/internal/config"
	"colorgame_backend/internal/config/env"
	"colorgame_backend/migrations"
	"context"
	"io/fs"
	"log"
	"sort"

	"github.com/jackc/pgx/v5"
)

const createVersionsSQL = `CREATE TABLE IF NOT EXISTS schema_migrations (
	name       TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func main() {
	if err := config.Load(".env"); err != nil {
		log.Printf("Error loading .env file: %v", err)
	}

	cfg, err := env.NewPGConfig()
	if err != nil {
		log.Fatalf("failed to get database config: %v", err)
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, cfg.DSN())
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	if _, err = conn.Exec(ctx, createVersionsSQL); err != nil {
		log.Fatalf("failed to create schema_migrations: %v", err)
	}

	files, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		log.Fatalf("failed to list migrations: %v", err)
	}
	sort.Strings(files)

	applied := 0
	for _, name := range files {
		var exists bool
		err = conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, name).Scan(&exists)
		if err != nil {
			log.Fatalf("failed to check migration %s: %v", name, err)
		}
		if exists {
			continue
		}

		content, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			log.Fatalf("failed to read migration %s: %v", name, err)
		}

		log.Printf("running migration: %s", name)
		if err = applyMigration(ctx, conn, name, string(content)); err != nil {
			log.Fatalf("failed to apply migration %s: %v", name, err)
		}
		applied++
	}

	log.Printf("migrations done, applied %d", applied)
}

func applyMigration(ctx context.Context, conn *pgx.Conn, name, sql string) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err = tx.Exec(ctx, sql); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
