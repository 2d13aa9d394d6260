package dues_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/xraph/dues"
	"github.com/xraph/dues/member"
	"github.com/xraph/dues/period"
	"github.com/xraph/dues/store/memory"
	"github.com/xraph/dues/types"
)

// Example walks through one billing month: generate, pay, close, report.
func Example() {
	ctx := context.Background()
	clock := &testClock{t: time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)}

	d := dues.New(memory.New(),
		member.Static{{ID: "A", Active: true}, {ID: "B", Active: true}, {ID: "C", Active: true}},
		dues.WithClock(clock),
		dues.WithLocation(time.UTC),
		dues.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err := d.Start(ctx); err != nil {
		panic(err)
	}
	defer d.Stop()

	jan := period.MustParse("2025-01")
	report, _ := d.GenerateForPeriod(ctx, jan)
	fmt.Println("created:", report.Created)

	a, _ := d.Store().GetChargeByKey(ctx, "A", jan)
	paid, _ := d.RecordPayment(ctx, a.ID, types.MustParseMoney("50.00"), nil)
	fmt.Println("A:", paid.Status)

	clock.Set(2025, 1, 20)
	rec, _ := d.ClosePeriod(ctx, jan, "treasurer")
	fmt.Println("delinquent:", rec.Surcharged)

	ov, _ := d.PortfolioOverview(ctx, jan)
	fmt.Println("collected:", ov.Collected, "pending:", ov.Pending, "rate:", ov.CollectionRate)

	// Output:
	// created: 3
	// A: paid
	// delinquent: 2
	// collected: 50.00 pending: 105.00 rate: 32.25%
}

// ExampleMoney shows parsing and formatting of minor-unit amounts.
func ExampleMoney() {
	m, _ := dues.ParseMoney("52.5")
	fmt.Println(m, m.Minor())
	fmt.Println(types.Pct(5).Of(types.MustParseMoney("50.00")))

	// Output:
	// 52.50 5250
	// 2.50
}
