package aging

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/carrier-billing/faturas/internal/invoice"
)

// BuildPivot lays outstanding (non-paid) amounts out as rows by due-date
// columns. Rows follow the Aggregate ordering for by; the last row holds the
// column-wise grand totals.
func (e *Engine) BuildPivot(invoices []invoice.Invoice, today invoice.Date, by GroupBy) Matrix {
	by = Options{GroupBy: by}.normalized().GroupBy
	cutoff := Cutoff(today)
	f := e.fold(invoices, cutoff, ModePending, by)

	columns := make([]invoice.Date, 0, len(f.grand.byDate))
	for due := range f.grand.byDate {
		columns = append(columns, due)
	}
	sort.Slice(columns, func(i, j int) bool {
		return columns[i].Before(columns[j])
	})

	matrix := Matrix{GroupBy: by, Today: today, Cutoff: cutoff, Columns: columns}
	for _, sec := range e.arrange(f.groups, by) {
		for _, acc := range sec.members {
			matrix.Rows = append(matrix.Rows, pivotRow(RowCarrier, acc, columns))
		}
		if by != GroupByCarrierParty {
			continue
		}
		subtotal := newAccumulator(groupKey{party: sec.party})
		for _, acc := range sec.members {
			subtotal.merge(acc)
		}
		matrix.Rows = append(matrix.Rows,
			pivotRow(RowPartySubtotal, subtotal, columns),
			PivotRow{Kind: RowSeparator},
		)
	}
	matrix.Rows = append(matrix.Rows, pivotRow(RowGrandTotal, f.grand, columns))
	return matrix
}

// pivotRow projects an accumulator onto the column list, leaving cells
// without invoices invalid rather than zero.
func pivotRow(kind RowKind, acc *accumulator, columns []invoice.Date) PivotRow {
	cells := make([]Cell, len(columns))
	for i, due := range columns {
		if amount, ok := acc.byDate[due]; ok {
			cells[i] = Cell{Amount: amount, Valid: true}
		}
	}
	return PivotRow{
		Kind:       kind,
		Carrier:    acc.label,
		Party:      acc.key.party,
		Cells:      cells,
		OverdueSum: acc.overdue,
		OnTimeSum:  acc.onTime,
		Total:      acc.outstanding(),
	}
}

// RowSum adds up the valid cells of a pivot row.
func RowSum(row PivotRow) decimal.Decimal {
	sum := decimal.Zero
	for _, cell := range row.Cells {
		if cell.Valid {
			sum = sum.Add(cell.Amount)
		}
	}
	return sum
}
