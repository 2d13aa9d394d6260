package export_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/xraph/dues"
	"github.com/xraph/dues/charge"
	"github.com/xraph/dues/export"
	"github.com/xraph/dues/id"
	"github.com/xraph/dues/period"
	"github.com/xraph/dues/types"
)

func TestBuildOverviewXLSX(t *testing.T) {
	jan := period.New(2025, time.January)
	now := time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC)

	paid := charge.New("A", jan, types.Units(50), now)
	require.NoError(t, paid.ApplyPayment(charge.Payment{ID: id.NewPaymentID(), Amount: types.Units(50), PaidAt: now}))

	late := charge.New("B", jan, types.Units(50), now)
	late.AddSurcharge(charge.KindDelinquency, types.Cents(250), now)
	require.NoError(t, late.Transition(charge.StatusDelinquent))

	ov := &dues.Overview{
		From:              jan,
		To:                jan,
		Members:           2,
		Collected:         types.Units(50),
		Pending:           types.MustParseMoney("52.50"),
		DelinquentMembers: 1,
		Delinquent:        []string{"B"},
		CollectionRate:    types.Ratio(types.Units(50), types.MustParseMoney("102.50")),
	}

	data, err := export.BuildOverviewXLSX(ov, []*charge.Charge{paid, late})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{export.OverviewSheet, export.ChargesSheet}, f.GetSheetList())

	cell := func(sheet, axis string) string {
		t.Helper()
		v, err := f.GetCellValue(sheet, axis)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "2025-01", cell(export.OverviewSheet, "B2"))
	assert.Equal(t, "50.00", cell(export.OverviewSheet, "B5"))
	assert.Equal(t, "52.50", cell(export.OverviewSheet, "B6"))
	assert.Equal(t, "48.78%", cell(export.OverviewSheet, "B7"))
	assert.Equal(t, "B", cell(export.OverviewSheet, "B9"))

	rows, err := f.GetRows(export.ChargesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Charge", rows[0][0])
	assert.Equal(t, []string{"A", "2025-01", "50.00", "0.00", "0.00", "50.00", "50.00", "0.00", "paid"}, rows[1][1:])
	assert.Equal(t, []string{"B", "2025-01", "50.00", "0.00", "2.50", "52.50", "0.00", "52.50", "delinquent"}, rows[2][1:])
}

func TestBuildOverviewXLSXEmpty(t *testing.T) {
	data, err := export.BuildOverviewXLSX(&dues.Overview{}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
