package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/xraph/dues"
	"github.com/xraph/dues/charge"
	"github.com/xraph/dues/closure"
	"github.com/xraph/dues/fee"
	"github.com/xraph/dues/id"
	"github.com/xraph/dues/period"
)

// Store implements store.Store over database/sql.
type Store struct {
	db  *sql.DB
	d   Dialect
	now func() time.Time
}

// New wraps an open database. The caller configures the pool.
func New(db *sql.DB, d Dialect) *Store {
	return &Store{db: db, d: d, now: time.Now}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB { return s.db }

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return s.d.wrap("ping", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Charge Store ====================

const chargeColumns = `id, member_id, period, base_amount, total_amount, amount_paid,
remaining_balance, status, discounts, surcharges, payments, version, created_at, updated_at`

func (s *Store) GetCharge(ctx context.Context, chargeID id.ChargeID) (*charge.Charge, error) {
	row := s.db.QueryRowContext(ctx,
		s.d.rebind(`SELECT `+chargeColumns+` FROM dues_charges WHERE id = ?`),
		chargeID.String(),
	)
	c, err := scanCharge(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dues.ErrChargeNotFound
		}
		return nil, s.d.wrap("get charge", err)
	}
	return c, nil
}

func (s *Store) GetChargeByKey(ctx context.Context, memberID string, p period.Period) (*charge.Charge, error) {
	row := s.db.QueryRowContext(ctx,
		s.d.rebind(`SELECT `+chargeColumns+` FROM dues_charges WHERE period = ? AND member_id = ?`),
		p.String(), memberID,
	)
	c, err := scanCharge(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dues.ErrChargeNotFound
		}
		return nil, s.d.wrap("get charge by key", err)
	}
	return c, nil
}

func (s *Store) CreateChargeIfAbsent(ctx context.Context, c *charge.Charge) (bool, error) {
	r, err := toChargeRow(c)
	if err != nil {
		return false, s.d.wrap("encode charge", err)
	}
	res, err := s.db.ExecContext(ctx, s.d.rebind(`
INSERT INTO dues_charges (`+chargeColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (period, member_id) DO NOTHING`),
		r.ID, r.MemberID, r.Period, r.BaseAmount, r.TotalAmount, r.AmountPaid,
		r.RemainingBalance, r.Status, r.Discounts, r.Surcharges, r.Payments, r.Version,
		s.d.EncodeTime(c.CreatedAt), s.d.EncodeTime(c.UpdatedAt),
	)
	if err != nil {
		return false, s.d.wrap("create charge", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, s.d.wrap("create charge", err)
	}
	return n == 1, nil
}

func (s *Store) UpdateCharge(ctx context.Context, c *charge.Charge) error {
	r, err := toChargeRow(c)
	if err != nil {
		return s.d.wrap("encode charge", err)
	}
	res, err := s.db.ExecContext(ctx, s.d.rebind(`
UPDATE dues_charges SET
    base_amount = ?, total_amount = ?, amount_paid = ?, remaining_balance = ?,
    status = ?, discounts = ?, surcharges = ?, payments = ?,
    version = version + 1, updated_at = ?
WHERE id = ? AND version = ?`),
		r.BaseAmount, r.TotalAmount, r.AmountPaid, r.RemainingBalance,
		r.Status, r.Discounts, r.Surcharges, r.Payments,
		s.d.EncodeTime(c.UpdatedAt),
		r.ID, r.Version,
	)
	if err != nil {
		return s.d.wrap("update charge", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return s.d.wrap("update charge", err)
	}
	if n == 0 {
		var one int
		err := s.db.QueryRowContext(ctx, s.d.rebind(`SELECT 1 FROM dues_charges WHERE id = ?`), r.ID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return dues.ErrChargeNotFound
		}
		return dues.ErrVersionConflict
	}
	c.Version++
	return nil
}

func (s *Store) ListCharges(ctx context.Context, opts charge.ListOpts) ([]*charge.Charge, error) {
	var (
		where []string
		args  []any
	)
	if opts.MemberID != "" {
		where = append(where, "member_id = ?")
		args = append(args, opts.MemberID)
	}
	if !opts.From.IsZero() {
		where = append(where, "period >= ?")
		args = append(args, opts.From.String())
	}
	if !opts.To.IsZero() {
		where = append(where, "period <= ?")
		args = append(args, opts.To.String())
	}
	if len(opts.Status) > 0 {
		marks := make([]string, len(opts.Status))
		for i, st := range opts.Status {
			marks[i] = "?"
			args = append(args, string(st))
		}
		where = append(where, "status IN ("+strings.Join(marks, ", ")+")")
	}

	q := `SELECT ` + chargeColumns + ` FROM dues_charges`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY period ASC, member_id ASC"
	if opts.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.d.rebind(q), args...)
	if err != nil {
		return nil, s.d.wrap("list charges", err)
	}
	defer rows.Close()

	var out []*charge.Charge
	for rows.Next() {
		c, err := scanCharge(rows)
		if err != nil {
			return nil, s.d.wrap("scan charge", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, s.d.wrap("list charges", err)
	}
	return out, nil
}

// ==================== Closure Store ====================

func (s *Store) CreateClosureIfAbsent(ctx context.Context, r *closure.Record) (*closure.Record, bool, error) {
	res, err := s.db.ExecContext(ctx, s.d.rebind(`
INSERT INTO dues_closures (period, closed_by, closed_at, surcharged)
VALUES (?, ?, ?, ?)
ON CONFLICT (period) DO NOTHING`),
		r.Period.String(), r.ClosedBy, s.d.EncodeTime(r.ClosedAt), r.Surcharged,
	)
	if err != nil {
		return nil, false, s.d.wrap("create closure", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, s.d.wrap("create closure", err)
	}
	stored, err := s.GetClosure(ctx, r.Period)
	if err != nil {
		return nil, false, err
	}
	return stored, n == 1, nil
}

func (s *Store) GetClosure(ctx context.Context, p period.Period) (*closure.Record, error) {
	r := &closure.Record{}
	err := s.db.QueryRowContext(ctx,
		s.d.rebind(`SELECT period, closed_by, closed_at, surcharged FROM dues_closures WHERE period = ?`),
		p.String(),
	).Scan(&r.Period, &r.ClosedBy, timeValue{&r.ClosedAt}, &r.Surcharged)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dues.ErrClosureNotFound
		}
		return nil, s.d.wrap("get closure", err)
	}
	return r, nil
}

// ==================== Fee Config Store ====================

const feeConfigRow = 1

func (s *Store) GetFeeConfig(ctx context.Context) (*fee.Overrides, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		s.d.rebind(`SELECT data FROM dues_fee_config WHERE id = ?`), feeConfigRow,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dues.ErrConfigNotFound
		}
		return nil, s.d.wrap("get fee config", err)
	}
	o, err := decodeOverrides(data)
	if err != nil {
		return nil, s.d.wrap("decode fee config", err)
	}
	return o, nil
}

func (s *Store) PutFeeConfig(ctx context.Context, o *fee.Overrides) error {
	data, err := encodeJSON(o)
	if err != nil {
		return s.d.wrap("encode fee config", err)
	}
	_, err = s.db.ExecContext(ctx, s.d.rebind(`
INSERT INTO dues_fee_config (id, data, updated_at) VALUES (?, ?, ?)
ON CONFLICT (id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`),
		feeConfigRow, data, s.d.EncodeTime(s.now()),
	)
	if err != nil {
		return s.d.wrap("put fee config", err)
	}
	return nil
}
