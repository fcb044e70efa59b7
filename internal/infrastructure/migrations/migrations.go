// Package migrations versiona el esquema SQL con goose. Los archivos van embebidos en el binario.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Dialectos soportados.
const (
	Postgres = "postgres"
	SQLite   = "sqlite3"
)

// goose guarda dialecto y FS en variables globales.
var mu sync.Mutex

// Up aplica las migraciones pendientes del dialecto indicado.
func Up(ctx context.Context, db *sql.DB, dialect string, log goose.Logger) error {
	dir, err := dirFor(dialect)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	goose.SetBaseFS(files)
	defer goose.SetBaseFS(nil)
	if log != nil {
		goose.SetLogger(log)
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("migraciones %s: %w", dialect, err)
	}
	return nil
}

func dirFor(dialect string) (string, error) {
	switch dialect {
	case Postgres:
		return "postgres", nil
	case SQLite:
		return "sqlite", nil
	}
	return "", fmt.Errorf("dialecto no soportado: %q", dialect)
}
