package mongo

import (
	"time"

	"github.com/xraph/dues/charge"
	"github.com/xraph/dues/closure"
	"github.com/xraph/dues/fee"
	"github.com/xraph/dues/id"
	"github.com/xraph/dues/period"
	"github.com/xraph/dues/types"
)

// ==================== Charge models ====================

type chargeModel struct {
	ID               string            `bson:"_id"`
	MemberID         string            `bson:"member_id"`
	Period           string            `bson:"period"`
	BaseAmount       int64             `bson:"base_amount"`
	Discounts        []adjustmentModel `bson:"discounts"`
	Surcharges       []adjustmentModel `bson:"surcharges"`
	TotalAmount      int64             `bson:"total_amount"`
	AmountPaid       int64             `bson:"amount_paid"`
	RemainingBalance int64             `bson:"remaining_balance"`
	Status           string            `bson:"status"`
	Payments         []paymentModel    `bson:"payments"`
	Version          int64             `bson:"version"`
	CreatedAt        time.Time         `bson:"created_at"`
	UpdatedAt        time.Time         `bson:"updated_at"`
}

type adjustmentModel struct {
	Kind      string    `bson:"kind"`
	Amount    int64     `bson:"amount"`
	AppliedAt time.Time `bson:"applied_at"`
}

type paymentModel struct {
	ID       string            `bson:"id"`
	Amount   int64             `bson:"amount"`
	PaidAt   time.Time         `bson:"paid_at"`
	Metadata map[string]string `bson:"metadata,omitempty"`
}

func toChargeModel(c *charge.Charge) *chargeModel {
	m := &chargeModel{
		ID:               c.ID.String(),
		MemberID:         c.MemberID,
		Period:           c.Period.String(),
		BaseAmount:       c.BaseAmount.Minor(),
		Discounts:        toAdjustmentModels(c.Discounts),
		Surcharges:       toAdjustmentModels(c.Surcharges),
		TotalAmount:      c.TotalAmount.Minor(),
		AmountPaid:       c.AmountPaid.Minor(),
		RemainingBalance: c.RemainingBalance.Minor(),
		Status:           string(c.Status),
		Payments:         make([]paymentModel, 0, len(c.Payments)),
		Version:          c.Version,
		CreatedAt:        c.CreatedAt.UTC(),
		UpdatedAt:        c.UpdatedAt.UTC(),
	}
	for _, p := range c.Payments {
		m.Payments = append(m.Payments, paymentModel{
			ID:       p.ID.String(),
			Amount:   p.Amount.Minor(),
			PaidAt:   p.PaidAt.UTC(),
			Metadata: p.Metadata,
		})
	}
	return m
}

func fromChargeModel(m *chargeModel) (*charge.Charge, error) {
	chargeID, err := id.ParseChargeID(m.ID)
	if err != nil {
		return nil, err
	}
	p, err := period.Parse(m.Period)
	if err != nil {
		return nil, err
	}
	c := &charge.Charge{
		Entity:           types.Entity{CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC()},
		ID:               chargeID,
		MemberID:         m.MemberID,
		Period:           p,
		BaseAmount:       types.Money(m.BaseAmount),
		Discounts:        fromAdjustmentModels(m.Discounts),
		Surcharges:       fromAdjustmentModels(m.Surcharges),
		TotalAmount:      types.Money(m.TotalAmount),
		AmountPaid:       types.Money(m.AmountPaid),
		RemainingBalance: types.Money(m.RemainingBalance),
		Status:           charge.Status(m.Status),
		Payments:         make([]charge.Payment, 0, len(m.Payments)),
		Version:          m.Version,
	}
	for _, pm := range m.Payments {
		payID, err := id.ParsePaymentID(pm.ID)
		if err != nil {
			return nil, err
		}
		c.Payments = append(c.Payments, charge.Payment{
			ID:       payID,
			Amount:   types.Money(pm.Amount),
			PaidAt:   pm.PaidAt.UTC(),
			Metadata: pm.Metadata,
		})
	}
	return c, nil
}

func toAdjustmentModels(in []charge.Adjustment) []adjustmentModel {
	out := make([]adjustmentModel, 0, len(in))
	for _, a := range in {
		out = append(out, adjustmentModel{Kind: a.Kind, Amount: a.Amount.Minor(), AppliedAt: a.AppliedAt.UTC()})
	}
	return out
}

func fromAdjustmentModels(in []adjustmentModel) []charge.Adjustment {
	out := make([]charge.Adjustment, 0, len(in))
	for _, a := range in {
		out = append(out, charge.Adjustment{Kind: a.Kind, Amount: types.Money(a.Amount), AppliedAt: a.AppliedAt.UTC()})
	}
	return out
}

// ==================== Closure models ====================

type closureModel struct {
	Period     string    `bson:"_id"`
	ClosedBy   string    `bson:"closed_by"`
	ClosedAt   time.Time `bson:"closed_at"`
	Surcharged int       `bson:"surcharged"`
}

func toClosureModel(r *closure.Record) *closureModel {
	return &closureModel{
		Period:     r.Period.String(),
		ClosedBy:   r.ClosedBy,
		ClosedAt:   r.ClosedAt.UTC(),
		Surcharged: r.Surcharged,
	}
}

func fromClosureModel(m *closureModel) (*closure.Record, error) {
	p, err := period.Parse(m.Period)
	if err != nil {
		return nil, err
	}
	return &closure.Record{
		Period:     p,
		ClosedBy:   m.ClosedBy,
		ClosedAt:   m.ClosedAt.UTC(),
		Surcharged: m.Surcharged,
	}, nil
}

// ==================== Fee config models ====================

type feeConfigModel struct {
	ID        string         `bson:"_id"`
	Overrides *fee.Overrides `bson:"overrides"`
	UpdatedAt time.Time      `bson:"updated_at"`
}
