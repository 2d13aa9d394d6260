package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xraph/dues"
)

// Migration is one versioned schema step.
type Migration struct {
	Version int
	Name    string
	Up      func(d Dialect) []string
}

// Migrations is the ordered schema history.
var Migrations = []Migration{
	{
		Version: 1,
		Name:    "create_dues_charges",
		Up: func(d Dialect) []string {
			return []string{fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS dues_charges (
    id                TEXT PRIMARY KEY,
    member_id         TEXT NOT NULL,
    period            TEXT NOT NULL,
    base_amount       BIGINT NOT NULL,
    total_amount      BIGINT NOT NULL,
    amount_paid       BIGINT NOT NULL DEFAULT 0,
    remaining_balance BIGINT NOT NULL,
    status            TEXT NOT NULL DEFAULT 'pending',
    discounts         TEXT NOT NULL DEFAULT '[]',
    surcharges        TEXT NOT NULL DEFAULT '[]',
    payments          TEXT NOT NULL DEFAULT '[]',
    version           BIGINT NOT NULL DEFAULT 0,
    created_at        %[1]s NOT NULL,
    updated_at        %[1]s NOT NULL,
    UNIQUE (period, member_id)
)`, d.TimeType),
				`CREATE INDEX IF NOT EXISTS idx_dues_charges_member ON dues_charges (member_id, period)`,
				`CREATE INDEX IF NOT EXISTS idx_dues_charges_status ON dues_charges (period, status)`,
			}
		},
	},
	{
		Version: 2,
		Name:    "create_dues_closures",
		Up: func(d Dialect) []string {
			return []string{fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS dues_closures (
    period     TEXT PRIMARY KEY,
    closed_by  TEXT NOT NULL,
    closed_at  %s NOT NULL,
    surcharged INTEGER NOT NULL DEFAULT 0
)`, d.TimeType)}
		},
	},
	{
		Version: 3,
		Name:    "create_dues_fee_config",
		Up: func(d Dialect) []string {
			return []string{fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS dues_fee_config (
    id         INTEGER PRIMARY KEY,
    data       TEXT NOT NULL,
    updated_at %s NOT NULL
)`, d.TimeType)}
		},
	},
}

// Migrate applies every migration not yet recorded in dues_migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS dues_migrations (
    version    INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at %s NOT NULL
)`, s.d.TimeType)); err != nil {
		return fmt.Errorf("%w: %w", dues.ErrMigrationFailed, s.d.wrap("create migrations table", err))
	}

	for _, m := range Migrations {
		if err := s.apply(ctx, m); err != nil {
			return fmt.Errorf("%w: %w", dues.ErrMigrationFailed, s.d.wrap(m.Name, err))
		}
	}
	return nil
}

func (s *Store) apply(ctx context.Context, m Migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var applied int
	err = tx.QueryRowContext(ctx, s.d.rebind(`SELECT version FROM dues_migrations WHERE version = ?`), m.Version).Scan(&applied)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}

	for _, stmt := range m.Up(s.d) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		s.d.rebind(`INSERT INTO dues_migrations (version, name, applied_at) VALUES (?, ?, ?)`),
		m.Version, m.Name, s.d.EncodeTime(s.now()),
	); err != nil {
		return err
	}
	return tx.Commit()
}
