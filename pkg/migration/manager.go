// SPDX-License-Identifier: Apache-2.0

package migration

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/ormkit/ormkit/pkg/builder"
	"github.com/ormkit/ormkit/pkg/db"
)

const historyTable = "migration_history"

// createHistoryTable matches the migration_history layout verbatim. It is
// raw SQL rather than Schema Builder DSL output because the DSL has no
// UNIQUE-index affordance; this mirrors the common practice of hand-writing
// a tool's own bookkeeping table DDL rather than routing it through the
// tool's own migration abstraction.
const createHistoryTable = `
CREATE TABLE IF NOT EXISTS ` + "`" + historyTable + "`" + ` (
  id INT UNSIGNED NOT NULL AUTO_INCREMENT,
  version VARCHAR(20) NOT NULL,
  executed_at DATETIME NOT NULL,
  execution_time INT NOT NULL,
  PRIMARY KEY (id),
  UNIQUE KEY uniq_migration_history_version (version)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_general_ci;
`

// Manager tracks which migrations have run against a database and executes
// the rest in version order, recording a history row per execution.
type Manager struct {
	db       db.DB
	dialect  builder.Dialect
	builder  *builder.Builder
	registry map[string]Migration
}

// NewManager builds a Manager and ensures migration_history exists.
func NewManager(ctx context.Context, database db.DB, dialect builder.Dialect) (*Manager, error) {
	m := &Manager{
		db:       database,
		dialect:  dialect,
		builder:  builder.New(dialect),
		registry: make(map[string]Migration),
	}
	if _, err := m.db.ExecContext(ctx, createHistoryTable); err != nil {
		return nil, err
	}
	return m, nil
}

// formatVersion renders a Migration's raw 12-digit Version() (matching its
// generated class name, Migration<YYYYMMDDHHMM>) into the dashed
// YYYYMMDD-HHMM form migration_history.version stores.
func formatVersion(raw string) string {
	if len(raw) != 12 {
		return raw
	}
	return raw[:8] + "-" + raw[8:]
}

// parseVersion is formatVersion's inverse, turning a stored YYYYMMDD-HHMM
// value back into the raw 12-digit Version() key the registry is keyed by.
func parseVersion(formatted string) string {
	if len(formatted) == 13 && formatted[8] == '-' {
		return formatted[:8] + formatted[9:]
	}
	return formatted
}

// Register adds a migration to the registry, keyed by its Version.
func (m *Manager) Register(mig Migration) error {
	if _, exists := m.registry[mig.Version()]; exists {
		return DuplicateVersionError{Version: mig.Version()}
	}
	m.registry[mig.Version()] = mig
	return nil
}

// RegisterGenerated registers every migration compiled into the binary via
// RegisterGenerated's init()-based convention.
func (m *Manager) RegisterGenerated() error {
	for _, mig := range Generated() {
		if err := m.Register(mig); err != nil {
			return err
		}
	}
	return nil
}

// RegisteredCount returns the number of migrations registered, whether or
// not they have executed.
func (m *Manager) RegisteredCount() int {
	return len(m.registry)
}

// Pending returns every registered migration not yet recorded in
// migration_history, sorted ascending by version.
func (m *Manager) Pending(ctx context.Context) ([]Migration, error) {
	executed, err := m.executedVersions(ctx)
	if err != nil {
		return nil, err
	}

	var pending []Migration
	for version, mig := range m.registry {
		if !executed[version] {
			pending = append(pending, mig)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Version() < pending[j].Version() })
	return pending, nil
}

func (m *Manager) executedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version FROM "+historyTable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		out[parseVersion(version)] = true
	}
	return out, rows.Err()
}

// Migrate executes every pending migration in order, returning the count
// executed. It stops and returns an error at the first failure, wrapped as
// FailedError.
func (m *Manager) Migrate(ctx context.Context) (int, error) {
	pending, err := m.Pending(ctx)
	if err != nil {
		return 0, err
	}

	for i, mig := range pending {
		if err := m.Execute(ctx, mig); err != nil {
			return i, err
		}
	}
	return len(pending), nil
}

// Execute runs a single migration's Up program inside one transaction and
// records its history row, rolling back on any failure.
func (m *Manager) Execute(ctx context.Context, mig Migration) error {
	executed, err := m.executedVersions(ctx)
	if err != nil {
		return err
	}
	if executed[mig.Version()] {
		return AlreadyExecutedError{Version: mig.Version()}
	}

	started := time.Now()
	err = m.db.WithRetryableTransaction(ctx, func(txCtx context.Context, tx *sql.Tx) error {
		for _, stmt := range mig.Up(m.builder) {
			if _, err := tx.ExecContext(txCtx, stmt); err != nil {
				return err
			}
		}

		elapsed := time.Since(started).Milliseconds()
		_, err := tx.ExecContext(txCtx,
			"INSERT INTO "+historyTable+" (version, executed_at, execution_time) VALUES (?, ?, ?)",
			formatVersion(mig.Version()), started.UTC(), elapsed)
		return err
	})
	if err != nil {
		return FailedError{Version: mig.Version(), Err: err}
	}
	return nil
}

// LastExecuted returns the version of the most recently executed migration,
// for callers (the CLI's --dry-run reporting) that want to preview a
// rollback without running it.
func (m *Manager) LastExecuted(ctx context.Context) (version string, found bool, err error) {
	return m.lastExecutedVersion(ctx)
}

// Rollback undoes the most recently executed migration by running its Down
// program, then deletes its history row. It reports ok=false when no
// migration has been executed.
func (m *Manager) Rollback(ctx context.Context) (ok bool, err error) {
	version, found, err := m.lastExecutedVersion(ctx)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	mig, known := m.registry[version]
	if !known {
		return false, OrphanExecutedError{Version: version}
	}

	err = m.db.WithRetryableTransaction(ctx, func(txCtx context.Context, tx *sql.Tx) error {
		for _, stmt := range mig.Down(m.builder) {
			if _, err := tx.ExecContext(txCtx, stmt); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(txCtx, "DELETE FROM "+historyTable+" WHERE version = ?", formatVersion(version))
		return err
	})
	if err != nil {
		return false, FailedError{Version: version, Err: err}
	}
	return true, nil
}

func (m *Manager) lastExecutedVersion(ctx context.Context) (string, bool, error) {
	row := m.db.QueryRowContext(ctx, "SELECT version FROM "+historyTable+" ORDER BY version DESC LIMIT 1")
	var version string
	if err := row.Scan(&version); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return parseVersion(version), true, nil
}
