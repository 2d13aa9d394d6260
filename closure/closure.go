// Package closure models the administrative marker that finalises a period.
package closure

import (
	"context"
	"time"

	"github.com/xraph/dues/period"
)

// Record marks a period as closed. There is at most one per period.
type Record struct {
	Period     period.Period `json:"period"`
	ClosedBy   string        `json:"closed_by"`
	ClosedAt   time.Time     `json:"closed_at"`
	Surcharged int           `json:"surcharged"`
}

// Store persists closure records (key "ledger/closures/{period}").
type Store interface {
	// CreateClosureIfAbsent writes r unless the period already has a record.
	// It returns the stored record (r or the earlier winner) and whether r
	// was the one written.
	CreateClosureIfAbsent(ctx context.Context, r *Record) (*Record, bool, error)
	GetClosure(ctx context.Context, p period.Period) (*Record, error)
}
