package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"nanotrade/internal/observability"
)

// Migrator applies the SQL files under migrationsDir in lexical order,
// one transaction per file. File naming follows golang-migrate:
// {version}_{name}.up.sql and a matching .down.sql. Applied versions
// are tracked in public.schema_migrations; the nanotrade schema itself
// is created by the first migration, so the tracking table cannot
// live there.
type Migrator struct {
	db            *sql.DB
	migrationsDir string
	logger        zerolog.Logger
}

func NewMigrator(db *sql.DB, migrationsDir string) *Migrator {
	return &Migrator{
		db:            db,
		migrationsDir: migrationsDir,
		logger:        observability.NewLogger("migrator"),
	}
}

// Up applies every pending up-migration in version order.
func (m *Migrator) Up(ctx context.Context) error {
	if err := m.ensureVersionTable(ctx); err != nil {
		return fmt.Errorf("ensure version table: %w", err)
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return fmt.Errorf("load applied versions: %w", err)
	}

	files, err := m.migrationFiles(".up.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}

	for _, f := range files {
		if applied[versionOf(f)] {
			continue
		}
		if err := m.applyUp(ctx, f); err != nil {
			return err
		}
		m.logger.Info().Str("file", f).Msg("migration applied")
	}
	return nil
}

func (m *Migrator) applyUp(ctx context.Context, file string) error {
	ddl, err := os.ReadFile(filepath.Join(m.migrationsDir, file))
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for %s: %w", file, err)
	}

	if _, err := tx.ExecContext(ctx, string(ddl)); err != nil {
		tx.Rollback()
		return fmt.Errorf("exec %s: %w", file, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO public.schema_migrations (version, filename) VALUES ($1, $2)`,
		versionOf(file), file,
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("record %s: %w", file, err)
	}
	return tx.Commit()
}

// Down rolls back the most recently applied migration.
func (m *Migrator) Down(ctx context.Context) error {
	if err := m.ensureVersionTable(ctx); err != nil {
		return err
	}

	var version, filename string
	err := m.db.QueryRowContext(ctx,
		`SELECT version, filename FROM public.schema_migrations ORDER BY version DESC LIMIT 1`,
	).Scan(&version, &filename)
	if err == sql.ErrNoRows {
		m.logger.Info().Msg("nothing to roll back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("latest applied version: %w", err)
	}

	downFile := strings.Replace(filename, ".up.sql", ".down.sql", 1)
	ddl, err := os.ReadFile(filepath.Join(m.migrationsDir, downFile))
	if err != nil {
		return fmt.Errorf("read %s: %w", downFile, err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for %s: %w", downFile, err)
	}
	if _, err := tx.ExecContext(ctx, string(ddl)); err != nil {
		tx.Rollback()
		return fmt.Errorf("exec %s: %w", downFile, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM public.schema_migrations WHERE version = $1`, version,
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("unrecord %s: %w", version, err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	m.logger.Info().Str("file", downFile).Msg("migration rolled back")
	return nil
}

func (m *Migrator) ensureVersionTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS public.schema_migrations (
			version    TEXT PRIMARY KEY,
			filename   TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func (m *Migrator) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version FROM public.schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func (m *Migrator) migrationFiles(suffix string) ([]string, error) {
	entries, err := os.ReadDir(m.migrationsDir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// versionOf returns the numeric prefix of a migration filename, the
// "000001" in 000001_alert_history.up.sql.
func versionOf(filename string) string {
	version, _, _ := strings.Cut(filename, "_")
	return version
}
