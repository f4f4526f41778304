// Package repositories opens the local state database and vends its
// repositories.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/swiftvfs/internal/migrations"
	"github.com/dmitrijs2005/swiftvfs/internal/repositories/files"
	"github.com/dmitrijs2005/swiftvfs/internal/repositories/tokens"

	_ "modernc.org/sqlite"
)

// Repositories bundles the repositories of one database.
type Repositories struct {
	Tokens tokens.Repository
	Files  files.Repository

	db *sql.DB
}

// gooseUp is a seam for tests.
var gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
	return goose.UpContext(ctx, db, dir)
}

// RunMigrations applies the embedded migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUp(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Open opens the sqlite database at dsn and migrates it.
func Open(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repositories{
		Tokens: tokens.NewSQLiteRepository(db),
		Files:  files.NewSQLiteRepository(db),
		db:     db,
	}, nil
}

// Close closes the database.
func (r *Repositories) Close() error {
	return r.db.Close()
}
