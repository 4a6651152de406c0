package aging

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/carrier-billing/faturas/internal/invoice"
)

func columnStrings(cols []invoice.Date) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.String()
	}
	return out
}

func TestBuildPivotColumnsAndSentinels(t *testing.T) {
	engine := newTestEngine(t)
	today := invoice.MustParseDate("2024-03-14")
	invoices := []invoice.Invoice{
		mkInvoice("1", "DHL", "", "100", "2024-03-18", invoice.StatusPending),
		mkInvoice("2", "DHL", "", "50", "2024-03-20", invoice.StatusPending),
		mkInvoice("3", "Garcia", "", "0", "2024-03-18", invoice.StatusPending),
		mkInvoice("4", "Garcia", "", "999", "2024-01-01", invoice.StatusPaid),
		mkInvoice("5", "Garcia", "", "12", "", invoice.StatusOverdue),
	}

	matrix := engine.BuildPivot(invoices, today, GroupByCarrier)
	require.Equal(t, []string{"2024-03-18", "2024-03-20", ""}, columnStrings(matrix.Columns))
	require.Len(t, matrix.Rows, 3)

	dhl := matrix.Rows[0]
	require.Equal(t, "DHL", dhl.Carrier)
	require.True(t, dhl.Cells[0].Valid)
	requireDecimal(t, "100", dhl.Cells[0].Amount)
	require.True(t, dhl.Cells[1].Valid)
	require.False(t, dhl.Cells[2].Valid, "no undated DHL invoices")

	garcia := matrix.Rows[1]
	require.True(t, garcia.Cells[0].Valid, "zero-amount invoice is still a value")
	requireDecimal(t, "0", garcia.Cells[0].Amount)
	require.False(t, garcia.Cells[1].Valid)
	require.True(t, garcia.Cells[2].Valid)
	requireDecimal(t, "12", garcia.Total)
	requireDecimal(t, "12", garcia.OverdueSum)

	grand := matrix.GrandTotal()
	require.Equal(t, RowGrandTotal, grand.Kind)
	requireDecimal(t, "100", grand.Cells[0].Amount)
	requireDecimal(t, "50", grand.Cells[1].Amount)
	requireDecimal(t, "12", grand.Cells[2].Amount)
	requireDecimal(t, "162", grand.Total)
}

func TestBuildPivotEmptyInput(t *testing.T) {
	engine := newTestEngine(t)
	matrix := engine.BuildPivot(nil, invoice.MustParseDate("2024-03-14"), GroupByCarrierParty)
	require.Empty(t, matrix.Columns)
	require.Len(t, matrix.Rows, 1)
	requireDecimal(t, "0", matrix.GrandTotal().Total)
}

func TestBuildPivotOnlyPaidInvoices(t *testing.T) {
	engine := newTestEngine(t)
	matrix := engine.BuildPivot([]invoice.Invoice{
		mkInvoice("1", "DHL", "", "10", "2024-03-18", invoice.StatusPaid),
	}, invoice.MustParseDate("2024-03-14"), GroupByCarrier)
	require.Empty(t, matrix.Columns)
	require.Len(t, matrix.Rows, 1)
}

func TestBuildPivotConsistency(t *testing.T) {
	engine := newTestEngine(t)
	today := invoice.MustParseDate("2024-03-14")
	invoices := randomInvoices(21, 500)

	for _, by := range []GroupBy{GroupByCarrier, GroupByCarrierParty} {
		matrix := engine.BuildPivot(invoices, today, by)
		table := engine.Aggregate(invoices, today, Options{Mode: ModePending, GroupBy: by})
		require.Len(t, matrix.Rows, len(table.Rows))

		for i := 1; i < len(matrix.Columns); i++ {
			require.True(t, matrix.Columns[i-1].Before(matrix.Columns[i]), "columns must be ascending")
		}

		colSums := make([]decimal.Decimal, len(matrix.Columns))
		for i, row := range matrix.Rows {
			require.Equal(t, table.Rows[i].Kind, row.Kind)
			require.Equal(t, table.Rows[i].Carrier, row.Carrier)
			require.Equal(t, table.Rows[i].Party, row.Party)
			if row.Kind == RowSeparator {
				require.Empty(t, row.Cells)
				continue
			}
			require.Len(t, row.Cells, len(matrix.Columns))
			require.True(t, RowSum(row).Equal(row.OverdueSum.Add(row.OnTimeSum)), "row %s/%s", row.Carrier, row.Party)
			require.True(t, row.Total.Equal(table.Rows[i].TotalSum))
			if row.Kind == RowCarrier {
				for c, cell := range row.Cells {
					if cell.Valid {
						colSums[c] = colSums[c].Add(cell.Amount)
					}
				}
			}
		}

		grand := matrix.GrandTotal()
		for c, cell := range grand.Cells {
			require.True(t, cell.Valid)
			require.True(t, colSums[c].Equal(cell.Amount), "column %s", matrix.Columns[c])
		}
	}
}

func TestBuildPivotJSONRendersEmptyCellsAsNull(t *testing.T) {
	engine := newTestEngine(t)
	matrix := engine.BuildPivot([]invoice.Invoice{
		mkInvoice("1", "DHL", "", "10", "2024-03-18", invoice.StatusPending),
		mkInvoice("2", "Garcia", "", "5", "2024-03-21", invoice.StatusPending),
	}, invoice.MustParseDate("2024-03-14"), GroupByCarrier)

	raw, err := json.Marshal(matrix.Rows[0])
	require.NoError(t, err)
	require.Contains(t, string(raw), `"cells":["10",null]`)

	raw, err = json.Marshal(matrix.Columns)
	require.NoError(t, err)
	require.Equal(t, `["2024-03-18","2024-03-21"]`, string(raw))
}
