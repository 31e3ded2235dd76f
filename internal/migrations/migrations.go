// Package migrations applies the semantic registry schema to Postgres.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var embeddedFS embed.FS

const migrationTable = "s2sql_schema_migrations"

// registryLockID serializes migrators across replicas via pg_advisory_lock.
const registryLockID int64 = 0x5253514c

var migrationNamePattern = regexp.MustCompile(`^([0-9]+)_(.+)\.(up|down)\.sql$`)

type Runner struct {
	fsys fs.FS
}

func NewRunner() *Runner {
	return &Runner{fsys: embeddedFS}
}

type migration struct {
	Version int64
	Name    string
	UpSQL   string
	DownSQL string
}

// Status is one migration known to the binary and whether it is applied.
type Status struct {
	Version int64
	Name    string
	Applied bool
}

// Up applies pending migrations in version order. steps <= 0 applies all.
func (r *Runner) Up(ctx context.Context, db *sql.DB, steps int) (int, error) {
	migrations, err := loadMigrations(r.fsys)
	if err != nil {
		return 0, err
	}
	runCount := 0
	err = withRegistryLock(ctx, db, func(conn *sql.Conn) error {
		applied, err := appliedVersions(ctx, conn)
		if err != nil {
			return err
		}
		byVersion := make(map[int64]migration, len(migrations))
		for _, item := range migrations {
			byVersion[item.Version] = item
		}
		for _, version := range pendingVersions(migrations, applied) {
			if steps > 0 && runCount >= steps {
				break
			}
			item := byVersion[version]
			insert := `INSERT INTO ` + migrationTable + ` (version, name) VALUES ($1, $2)`
			if err := inTx(ctx, conn, item.UpSQL, insert, item.Version, item.Name); err != nil {
				return fmt.Errorf("apply migration %d (%s): %w", version, item.Name, err)
			}
			runCount++
		}
		return nil
	})
	return runCount, err
}

// Down rolls back the newest applied migrations. steps <= 0 rolls back one.
func (r *Runner) Down(ctx context.Context, db *sql.DB, steps int) (int, error) {
	if steps <= 0 {
		steps = 1
	}
	migrations, err := loadMigrations(r.fsys)
	if err != nil {
		return 0, err
	}
	lookup := make(map[int64]migration, len(migrations))
	for _, item := range migrations {
		lookup[item.Version] = item
	}

	runCount := 0
	err = withRegistryLock(ctx, db, func(conn *sql.Conn) error {
		applied, err := appliedVersions(ctx, conn)
		if err != nil {
			return err
		}
		slices.Reverse(applied)
		for _, version := range applied {
			if runCount >= steps {
				break
			}
			item, ok := lookup[version]
			if !ok {
				return fmt.Errorf("applied migration %d is missing from this binary", version)
			}
			remove := `DELETE FROM ` + migrationTable + ` WHERE version = $1`
			if err := inTx(ctx, conn, item.DownSQL, remove, item.Version); err != nil {
				return fmt.Errorf("roll back migration %d (%s): %w", version, item.Name, err)
			}
			runCount++
		}
		return nil
	})
	return runCount, err
}

// Pending reports versions present in the embedded source but not yet applied.
func (r *Runner) Pending(ctx context.Context, db *sql.DB) ([]int64, error) {
	statuses, err := r.Status(ctx, db)
	if err != nil {
		return nil, err
	}
	var pending []int64
	for _, status := range statuses {
		if !status.Applied {
			pending = append(pending, status.Version)
		}
	}
	return pending, nil
}

// Status lists every embedded migration with its applied flag.
func (r *Runner) Status(ctx context.Context, db *sql.DB) ([]Status, error) {
	migrations, err := loadMigrations(r.fsys)
	if err != nil {
		return nil, err
	}
	var out []Status
	err = withRegistryLock(ctx, db, func(conn *sql.Conn) error {
		applied, err := appliedVersions(ctx, conn)
		if err != nil {
			return err
		}
		out = make([]Status, 0, len(migrations))
		for _, item := range migrations {
			out = append(out, Status{
				Version: item.Version,
				Name:    item.Name,
				Applied: slices.Contains(applied, item.Version),
			})
		}
		return nil
	})
	return out, err
}

// withRegistryLock pins one connection, takes the session advisory lock and
// ensures the bookkeeping table exists before running fn.
func withRegistryLock(ctx context.Context, db *sql.DB, fn func(conn *sql.Conn) error) (err error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, registryLockID); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		if _, unlockErr := conn.ExecContext(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, registryLockID); unlockErr != nil && err == nil {
			err = fmt.Errorf("release migration lock: %w", unlockErr)
		}
	}()

	if _, err := conn.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS `+migrationTable+` (
	version BIGINT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}
	return fn(conn)
}

// inTx runs a migration script and its bookkeeping statement atomically.
func inTx(ctx context.Context, conn *sql.Conn, script, bookkeeping string, args ...any) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, bookkeeping, args...); err != nil {
		return fmt.Errorf("update %s: %w", migrationTable, err)
	}
	return tx.Commit()
}

// appliedVersions returns applied versions in ascending order.
func appliedVersions(ctx context.Context, conn *sql.Conn) ([]int64, error) {
	rows, err := conn.QueryContext(ctx, `SELECT version FROM `+migrationTable+` ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("query applied versions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var versions []int64
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied versions: %w", err)
	}
	return versions, nil
}

func pendingVersions(migrations []migration, applied []int64) []int64 {
	var pending []int64
	for _, item := range migrations {
		if !slices.Contains(applied, item.Version) {
			pending = append(pending, item.Version)
		}
	}
	return pending
}

// loadMigrations pairs NNN_name.up.sql with NNN_name.down.sql. Both halves
// are required so every registry change can be rolled back.
func loadMigrations(fsys fs.FS) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, "sql")
	if err != nil {
		return nil, fmt.Errorf("read migration dir: %w", err)
	}

	items := map[int64]migration{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		base := path.Base(entry.Name())
		matches := migrationNamePattern.FindStringSubmatch(base)
		if matches == nil {
			continue
		}
		version, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse migration version for %q: %w", base, err)
		}
		script, err := fs.ReadFile(fsys, path.Join("sql", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %q: %w", entry.Name(), err)
		}

		item := items[version]
		if item.Name != "" && item.Name != matches[2] {
			return nil, fmt.Errorf("migration %d has mismatched names %q and %q", version, item.Name, matches[2])
		}
		item.Version = version
		item.Name = matches[2]
		if matches[3] == "up" {
			item.UpSQL = string(script)
		} else {
			item.DownSQL = string(script)
		}
		items[version] = item
	}

	migrations := make([]migration, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.UpSQL) == "" {
			return nil, fmt.Errorf("migration %d missing up SQL", item.Version)
		}
		if strings.TrimSpace(item.DownSQL) == "" {
			return nil, fmt.Errorf("migration %d missing down SQL", item.Version)
		}
		migrations = append(migrations, item)
	}
	slices.SortFunc(migrations, func(a, b migration) int {
		switch {
		case a.Version < b.Version:
			return -1
		case a.Version > b.Version:
			return 1
		default:
			return 0
		}
	})
	return migrations, nil
}
