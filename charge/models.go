package charge

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/xraph/dues/id"
	"github.com/xraph/dues/period"
	"github.com/xraph/dues/types"
)

// ErrInvalidTransition is returned when a status change breaks the
// pending -> paid | delinquent -> paid state machine.
var ErrInvalidTransition = errors.New("dues: invalid status transition")

// Status represents the payment state of a charge.
type Status string

const (
	StatusPending    Status = "pending"
	StatusPaid       Status = "paid"
	StatusDelinquent Status = "delinquent"
)

// IsOpen reports whether the charge still carries a collectable balance.
func (s Status) IsOpen() bool {
	return s == StatusPending || s == StatusDelinquent
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusDelinquent:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is an allowed transition.
// Paid is terminal.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusPaid || to == StatusDelinquent
	case StatusDelinquent:
		return to == StatusPaid
	default:
		return false
	}
}

// Transition moves the charge to status to, or fails with
// ErrInvalidTransition leaving the charge untouched.
func (c *Charge) Transition(to Status) error {
	if !CanTransition(c.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, to)
	}
	c.Status = to
	return nil
}

// Adjustment kinds.
const (
	KindDelinquency  = "delinquency"
	KindEarlyPayment = "early_payment"
)

// Adjustment is a discount or surcharge applied to a charge.
type Adjustment struct {
	Kind      string      `json:"kind"`
	Amount    types.Money `json:"amount"`
	AppliedAt time.Time   `json:"applied_at"`
}

// Payment is one payment applied to a charge.
type Payment struct {
	ID       id.PaymentID      `json:"id"`
	Amount   types.Money       `json:"amount"`
	PaidAt   time.Time         `json:"paid_at"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Charge is one billing obligation for one member for one period.
type Charge struct {
	types.Entity

	ID               id.ChargeID   `json:"id"`
	MemberID         string        `json:"member_id"`
	Period           period.Period `json:"period"`
	BaseAmount       types.Money   `json:"base_amount"`
	Discounts        []Adjustment  `json:"discounts"`
	Surcharges       []Adjustment  `json:"surcharges"`
	TotalAmount      types.Money   `json:"total_amount"`
	AmountPaid       types.Money   `json:"amount_paid"`
	RemainingBalance types.Money   `json:"remaining_balance"`
	Status           Status        `json:"status"`
	Payments         []Payment     `json:"payments"`

	// Version is bumped by the store on every successful update and is the
	// compare-and-swap token for conditional updates.
	Version int64 `json:"version"`
}

// New builds a pending charge for memberID in p with the given base amount.
func New(memberID string, p period.Period, base types.Money, now time.Time) *Charge {
	return &Charge{
		Entity:           types.NewEntity(now),
		ID:               id.NewChargeID(),
		MemberID:         memberID,
		Period:           p,
		BaseAmount:       base,
		Discounts:        []Adjustment{},
		Surcharges:       []Adjustment{},
		TotalAmount:      base,
		RemainingBalance: base,
		Status:           StatusPending,
		Payments:         []Payment{},
	}
}

// Recompute derives TotalAmount and RemainingBalance from the components.
func (c *Charge) Recompute() {
	total := c.BaseAmount
	for _, d := range c.Discounts {
		total -= d.Amount
	}
	for _, s := range c.Surcharges {
		total += s.Amount
	}
	c.TotalAmount = total
	c.RemainingBalance = total - c.AmountPaid
}

// HasSurcharge reports whether a surcharge of kind is already present.
func (c *Charge) HasSurcharge(kind string) bool {
	return slices.ContainsFunc(c.Surcharges, func(a Adjustment) bool { return a.Kind == kind })
}

// HasDiscount reports whether a discount of kind is already present.
func (c *Charge) HasDiscount(kind string) bool {
	return slices.ContainsFunc(c.Discounts, func(a Adjustment) bool { return a.Kind == kind })
}

// AddSurcharge appends a surcharge of kind unless one is present. It reports
// whether the surcharge was added.
func (c *Charge) AddSurcharge(kind string, amount types.Money, now time.Time) bool {
	if c.HasSurcharge(kind) {
		return false
	}
	c.Surcharges = append(c.Surcharges, Adjustment{Kind: kind, Amount: amount, AppliedAt: now.UTC()})
	c.Recompute()
	return true
}

// AddDiscount appends a discount of kind unless one is present.
func (c *Charge) AddDiscount(kind string, amount types.Money, now time.Time) bool {
	if c.HasDiscount(kind) {
		return false
	}
	c.Discounts = append(c.Discounts, Adjustment{Kind: kind, Amount: amount, AppliedAt: now.UTC()})
	c.Recompute()
	return true
}

// ApplyPayment accumulates p into AmountPaid and marks the charge paid once
// nothing remains. Callers validate the amount beforehand. A paid charge
// takes no further payments.
func (c *Charge) ApplyPayment(p Payment) error {
	if !c.Status.IsOpen() {
		return fmt.Errorf("%w: payment on %s charge", ErrInvalidTransition, c.Status)
	}
	c.Payments = append(c.Payments, p)
	c.AmountPaid += p.Amount
	c.Recompute()
	if c.RemainingBalance <= 0 {
		return c.Transition(StatusPaid)
	}
	return nil
}

// Surcharged returns the sum of all surcharges.
func (c *Charge) Surcharged() types.Money {
	var sum types.Money
	for _, s := range c.Surcharges {
		sum += s.Amount
	}
	return sum
}

// Clone returns a deep copy.
func (c *Charge) Clone() *Charge {
	if c == nil {
		return nil
	}
	out := *c
	out.Discounts = slices.Clone(c.Discounts)
	out.Surcharges = slices.Clone(c.Surcharges)
	out.Payments = make([]Payment, len(c.Payments))
	for i, p := range c.Payments {
		p.Metadata = maps.Clone(p.Metadata)
		out.Payments[i] = p
	}
	return &out
}
