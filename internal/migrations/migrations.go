// Package migrations applies ikigai's schema to Postgres at startup,
// grounded on tarsy's pkg/database/client.go runMigrations: embedded
// migration files run through golang-migrate against a dedicated
// *sql.DB opened with the pgx stdlib driver, tracked in a schema_version
// table (spec §6) rather than golang-migrate's default name.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/dohr-michael/ikigai/internal/config"
	"github.com/dohr-michael/ikigai/internal/ikerr"
)

//go:embed sql
var migrationsFS embed.FS

// migrationsTable is the name spec §6 gives the version-tracking row,
// overriding golang-migrate's default "schema_migrations".
const migrationsTable = "schema_version"

// Run opens a short-lived connection to the database described by cfg and
// applies every pending migration in lexical filename order. It is safe to
// call on every process start: a fully migrated database is a no-op.
func Run(cfg config.Config) error {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName,
	)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return ikerr.Wrap(ikerr.DbConnect, "open migration connection", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return ikerr.Wrap(ikerr.DbConnect, "ping database", err)
	}

	if err := apply(db); err != nil {
		return err
	}
	return nil
}

func apply(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return ikerr.Wrap(ikerr.DbMigrate, "create postgres migration driver", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "sql")
	if err != nil {
		return ikerr.Wrap(ikerr.DbMigrate, "open embedded migration source", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "ikigai", driver)
	if err != nil {
		return ikerr.Wrap(ikerr.DbMigrate, "create migrate instance", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return ikerr.Wrap(ikerr.DbMigrate, "apply migrations", err)
	}

	// Close only the source side; closing m would also close db via the
	// postgres driver, which callers may still want open (the teacher's
	// client.go hits the same snag wrapping an Ent client around the pool).
	if err := sourceDriver.Close(); err != nil {
		return ikerr.Wrap(ikerr.DbMigrate, "close migration source", err)
	}
	return nil
}

// DSN builds the pgx-compatible connection string for the long-lived
// connection pool (eventstore.Store, registry.Registry, mailbox.Mailbox all
// share one pool; Run uses its own short-lived *sql.DB instead).
func DSN(cfg config.Config) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName,
	)
}
