package sqlstore

import (
	"encoding/json"

	"github.com/xraph/dues/charge"
	"github.com/xraph/dues/fee"
	"github.com/xraph/dues/types"
)

// chargeRow is the column form of a charge. Adjustments and payments are
// stored as JSON text.
type chargeRow struct {
	ID               string
	MemberID         string
	Period           string
	BaseAmount       int64
	TotalAmount      int64
	AmountPaid       int64
	RemainingBalance int64
	Status           string
	Discounts        string
	Surcharges       string
	Payments         string
	Version          int64
}

func toChargeRow(c *charge.Charge) (*chargeRow, error) {
	discounts, err := encodeJSON(nonNil(c.Discounts))
	if err != nil {
		return nil, err
	}
	surcharges, err := encodeJSON(nonNil(c.Surcharges))
	if err != nil {
		return nil, err
	}
	payments, err := encodeJSON(nonNil(c.Payments))
	if err != nil {
		return nil, err
	}
	return &chargeRow{
		ID:               c.ID.String(),
		MemberID:         c.MemberID,
		Period:           c.Period.String(),
		BaseAmount:       c.BaseAmount.Minor(),
		TotalAmount:      c.TotalAmount.Minor(),
		AmountPaid:       c.AmountPaid.Minor(),
		RemainingBalance: c.RemainingBalance.Minor(),
		Status:           string(c.Status),
		Discounts:        discounts,
		Surcharges:       surcharges,
		Payments:         payments,
		Version:          c.Version,
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCharge(sc scanner) (*charge.Charge, error) {
	var (
		c      charge.Charge
		r      chargeRow
		status string
	)
	err := sc.Scan(
		&c.ID, &c.MemberID, &c.Period,
		&r.BaseAmount, &r.TotalAmount, &r.AmountPaid, &r.RemainingBalance,
		&status, &r.Discounts, &r.Surcharges, &r.Payments, &c.Version,
		timeValue{&c.CreatedAt}, timeValue{&c.UpdatedAt},
	)
	if err != nil {
		return nil, err
	}

	c.BaseAmount = types.Money(r.BaseAmount)
	c.TotalAmount = types.Money(r.TotalAmount)
	c.AmountPaid = types.Money(r.AmountPaid)
	c.RemainingBalance = types.Money(r.RemainingBalance)
	c.Status = charge.Status(status)

	if err := json.Unmarshal([]byte(r.Discounts), &c.Discounts); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(r.Surcharges), &c.Surcharges); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(r.Payments), &c.Payments); err != nil {
		return nil, err
	}
	return &c, nil
}

func decodeOverrides(data string) (*fee.Overrides, error) {
	var o fee.Overrides
	if err := json.Unmarshal([]byte(data), &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
