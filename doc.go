// Package dues provides a periodic dues ledger for community associations.
//
// Dues is designed as a library. Import it into your Go application, give it a
// store and a member directory, and drive it from your own scheduler, API or
// CLI. It provides:
//
//   - Idempotent monthly charge generation, one charge per member per period
//   - Payment recording with accumulating partial payments
//   - An early-payment discount inside a configurable window of days
//   - Period closing that marks unpaid charges delinquent with a surcharge
//   - Per-member debt summaries and an association-wide collection overview
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/dues"
//	    "github.com/xraph/dues/member"
//	    "github.com/xraph/dues/store/sqlite"
//	)
//
//	s, err := sqlite.Open(ctx, "dues.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	d := dues.New(s, member.FileDirectory{Path: "members.yaml"})
//	if err := d.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer d.Stop()
//
// # Core Concepts
//
// Periods are calendar months keyed "YYYY-MM". Generation creates a pending
// charge per active member:
//
//	report, err := d.GenerateForPeriod(ctx, period.MustParse("2025-01"))
//
// Payments accumulate against a charge until it is paid:
//
//	c, err := d.RecordPayment(ctx, chargeID, dues.Money(5000), nil)
//
// Closing a period past its grace day marks the remaining pending charges
// delinquent and adds the surcharge once:
//
//	rec, err := d.ClosePeriod(ctx, period.MustParse("2025-01"), "treasurer")
//
// # Concurrency
//
// The engine holds no locks. Every write is a per-key conditional write on
// the store: a conditional create per (member, period), a compare-and-swap on
// the charge version, and a conditional create per closure. Several
// processes may run generation, payments and closing against one store.
//
// # Money
//
// Amounts are integer minor units (types.Money) and percentages are integer
// basis points (types.Percent). There is no floating point on any amount.
//
// # TypeID
//
// Records use TypeID identifiers:
//
//	chg_01h2xcejqtf2nbrexx3vqjhp41  // Charge ID
//	pay_01h455vb4pex5vsknk084sn02q  // Payment ID
package dues
