// Package export renders collection reports as spreadsheets.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/xraph/dues"
	"github.com/xraph/dues/charge"
)

// Sheet names.
const (
	OverviewSheet = "overview"
	ChargesSheet  = "charges"
)

// ContentType is the media type of BuildOverviewXLSX output.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var chargeHeader = []string{
	"Charge", "Member", "Period", "Base", "Discounts", "Surcharges",
	"Total", "Paid", "Remaining", "Status",
}

// BuildOverviewXLSX renders the overview totals and one row per charge.
// Amounts are written as major-unit strings so no float carries money.
func BuildOverviewXLSX(ov *dues.Overview, charges []*charge.Charge) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", OverviewSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(ChargesSheet); err != nil {
		return nil, err
	}

	rows := [][2]any{
		{"Dues Overview", nil},
		{"From", ov.From.String()},
		{"To", ov.To.String()},
		{"Members", ov.Members},
		{"Collected", ov.Collected.String()},
		{"Pending", ov.Pending.String()},
		{"Collection rate", ov.CollectionRate.String()},
		{"Delinquent members", ov.DelinquentMembers},
		{"Delinquent", strings.Join(ov.Delinquent, ", ")},
	}
	for i, r := range rows {
		row := i + 1
		if err := f.SetCellValue(OverviewSheet, fmt.Sprintf("A%d", row), r[0]); err != nil {
			return nil, err
		}
		if r[1] == nil {
			continue
		}
		if err := f.SetCellValue(OverviewSheet, fmt.Sprintf("B%d", row), r[1]); err != nil {
			return nil, err
		}
	}

	if err := f.SetSheetRow(ChargesSheet, "A1", &chargeHeader); err != nil {
		return nil, err
	}
	for i, c := range charges {
		values := []any{
			c.ID.String(),
			c.MemberID,
			c.Period.String(),
			c.BaseAmount.String(),
			sumAdjustments(c.Discounts).String(),
			c.Surcharged().String(),
			c.TotalAmount.String(),
			c.AmountPaid.String(),
			c.RemainingBalance.String(),
			string(c.Status),
		}
		if err := f.SetSheetRow(ChargesSheet, fmt.Sprintf("A%d", i+2), &values); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sumAdjustments(adjs []charge.Adjustment) dues.Money {
	var sum dues.Money
	for _, a := range adjs {
		sum += a.Amount
	}
	return sum
}
