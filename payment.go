package dues

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/xraph/dues/charge"
	"github.com/xraph/dues/fee"
	"github.com/xraph/dues/id"
	"github.com/xraph/dues/types"
)

// RecordPayment applies amount to the charge. Payments accumulate; the charge
// becomes paid once nothing remains.
//
// During the early-payment window a pending, untouched charge can be settled
// with the discounted amount, in which case the discount is recorded on the
// charge. A payment of the full undiscounted amount is accepted as well.
func (d *Dues) RecordPayment(ctx context.Context, chargeID id.ChargeID, amount types.Money, metadata map[string]string) (*charge.Charge, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	cfg, err := d.Config(ctx)
	if err != nil {
		return nil, err
	}

	var (
		result  *charge.Charge
		payment charge.Payment
	)
	err = d.withRetry(ctx, isVersionConflict, func() error {
		c, err := d.store.GetCharge(ctx, chargeID)
		if err != nil {
			return err
		}
		if c.Status == charge.StatusPaid {
			return ErrChargePaid
		}

		now := d.Now()
		if disc := earlyDiscount(c, cfg, now); disc > 0 && amount == c.RemainingBalance-disc {
			c.AddDiscount(charge.KindEarlyPayment, disc, now)
		}
		if amount > c.RemainingBalance {
			return fmt.Errorf("%w: paying %s against %s", ErrOverpayment, amount, c.RemainingBalance)
		}

		payment = charge.Payment{
			ID:       id.NewPaymentID(),
			Amount:   amount,
			PaidAt:   now.UTC(),
			Metadata: maps.Clone(metadata),
		}
		if err := c.ApplyPayment(payment); err != nil {
			return err
		}
		c.Touch(now.UTC())

		if err := d.store.UpdateCharge(ctx, c); err != nil {
			return err
		}
		result = c
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			d.plugins.EmitWriteConflict(ctx, chargeID.String(), "record_payment")
			return nil, fmt.Errorf("%w: payment on %s: %w", ErrConflict, chargeID, err)
		}
		return nil, err
	}

	d.logger.Info("payment recorded",
		"charge_id", chargeID.String(),
		"payment_id", payment.ID.String(),
		"amount", payment.Amount.String(),
		"remaining", result.RemainingBalance.String(),
		"status", string(result.Status),
	)
	d.plugins.EmitPaymentRecorded(ctx, result, &payment)
	if result.Status == charge.StatusPaid {
		d.plugins.EmitChargePaid(ctx, result)
	}

	return result, nil
}

// AmountDue returns what a payment made now must equal to settle the charge,
// with the early-payment discount taken into account.
func (d *Dues) AmountDue(ctx context.Context, chargeID id.ChargeID) (types.Money, error) {
	cfg, err := d.Config(ctx)
	if err != nil {
		return 0, err
	}
	c, err := d.store.GetCharge(ctx, chargeID)
	if err != nil {
		return 0, err
	}
	if c.Status == charge.StatusPaid {
		return 0, nil
	}
	return c.RemainingBalance - earlyDiscount(c, cfg, d.Now()), nil
}

// earlyDiscount returns the discount a payment at now would earn on c, or 0.
func earlyDiscount(c *charge.Charge, cfg fee.Config, now time.Time) types.Money {
	if c.Status != charge.StatusPending || len(c.Payments) > 0 || c.HasDiscount(charge.KindEarlyPayment) {
		return 0
	}
	if !cfg.EarlyPayment.Applies(c.Period, now) {
		return 0
	}
	return cfg.EarlyPayment.Discount(c.BaseAmount)
}
