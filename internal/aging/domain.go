package aging

import (
	"github.com/shopspring/decimal"

	"github.com/carrier-billing/faturas/internal/invoice"
)

// Bucket is the computed aging classification of an invoice.
type Bucket string

const (
	BucketPaid    Bucket = "PAID"
	BucketOverdue Bucket = "OVERDUE"
	BucketOnTime  Bucket = "ON_TIME"
)

// Mode selects which side of the dashboard toggle is aggregated.
type Mode string

const (
	// ModePending aggregates overdue and on-time invoices.
	ModePending Mode = "pending"
	// ModePaid aggregates paid invoices only.
	ModePaid Mode = "paid"
)

// GroupBy selects the grouping key of result rows.
type GroupBy string

const (
	// GroupByCarrier yields one row per carrier.
	GroupByCarrier GroupBy = "carrier"
	// GroupByCarrierParty nests carriers under their responsible party and
	// emits party subtotals.
	GroupByCarrierParty GroupBy = "carrier+responsible"
)

// ParseGroupBy maps a flag value onto a GroupBy, accepting a few spellings.
func ParseGroupBy(raw string) (GroupBy, bool) {
	switch raw {
	case "", "carrier":
		return GroupByCarrier, true
	case "carrier+responsible", "carrier+party", "responsible", "party":
		return GroupByCarrierParty, true
	}
	return "", false
}

// RowKind tags result rows so presentation layers can style them.
type RowKind string

const (
	RowCarrier       RowKind = "carrier"
	RowPartySubtotal RowKind = "party_subtotal"
	RowSeparator     RowKind = "separator"
	RowGrandTotal    RowKind = "grand_total"
)

// Options parameterise Aggregate.
type Options struct {
	Mode    Mode
	GroupBy GroupBy
}

func (o Options) normalized() Options {
	if o.Mode != ModePaid {
		o.Mode = ModePending
	}
	if o.GroupBy != GroupByCarrierParty {
		o.GroupBy = GroupByCarrier
	}
	return o
}

// GroupRow is one line of the aggregated table.
type GroupRow struct {
	Kind            RowKind                          `json:"kind"`
	Carrier         string                           `json:"carrier,omitempty"`
	Party           string                           `json:"party,omitempty"`
	Count           int                              `json:"count"`
	OverdueSum      decimal.Decimal                  `json:"overdue_sum"`
	OnTimeSum       decimal.Decimal                  `json:"on_time_sum"`
	PaidSum         decimal.Decimal                  `json:"paid_sum"`
	TotalSum        decimal.Decimal                  `json:"total_sum"`
	AmountByDueDate map[invoice.Date]decimal.Decimal `json:"amount_by_due_date,omitempty"`
}

// Table is the output of Aggregate. The grand total is always the last row.
type Table struct {
	Mode    Mode         `json:"mode"`
	GroupBy GroupBy      `json:"group_by"`
	Today   invoice.Date `json:"today"`
	Cutoff  invoice.Date `json:"cutoff"`
	Rows    []GroupRow   `json:"rows"`
}

// GrandTotal returns the trailing grand-total row.
func (t Table) GrandTotal() GroupRow {
	if len(t.Rows) == 0 {
		return GroupRow{Kind: RowGrandTotal}
	}
	return t.Rows[len(t.Rows)-1]
}

// CarrierRows returns only the per-carrier rows.
func (t Table) CarrierRows() []GroupRow {
	out := make([]GroupRow, 0, len(t.Rows))
	for _, row := range t.Rows {
		if row.Kind == RowCarrier {
			out = append(out, row)
		}
	}
	return out
}

// Cell is a pivot cell. Valid=false marks "no invoices due", which is distinct
// from a zero amount.
type Cell struct {
	Amount decimal.Decimal
	Valid  bool
}

// MarshalJSON renders empty cells as null.
func (c Cell) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return c.Amount.MarshalJSON()
}

// PivotRow is one line of the backlog matrix. Separator rows carry no cells.
type PivotRow struct {
	Kind       RowKind         `json:"kind"`
	Carrier    string          `json:"carrier,omitempty"`
	Party      string          `json:"party,omitempty"`
	Cells      []Cell          `json:"cells"`
	OverdueSum decimal.Decimal `json:"overdue_sum"`
	OnTimeSum  decimal.Decimal `json:"on_time_sum"`
	Total      decimal.Decimal `json:"total"`
}

// Matrix is the backlog pivot: outstanding amounts by row and due date. A zero
// column date stands for invoices without a due date and always sorts last.
type Matrix struct {
	GroupBy GroupBy        `json:"group_by"`
	Today   invoice.Date   `json:"today"`
	Cutoff  invoice.Date   `json:"cutoff"`
	Columns []invoice.Date `json:"columns"`
	Rows    []PivotRow     `json:"rows"`
}

// GrandTotal returns the trailing grand-total row.
func (m Matrix) GrandTotal() PivotRow {
	if len(m.Rows) == 0 {
		return PivotRow{Kind: RowGrandTotal}
	}
	return m.Rows[len(m.Rows)-1]
}

// Tally counts invoices and sums their amounts.
type Tally struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

func (t *Tally) add(amount decimal.Decimal) {
	t.Count++
	t.Amount = t.Amount.Add(amount)
}

// Summary feeds the dashboard cards.
type Summary struct {
	Today       invoice.Date `json:"today"`
	Cutoff      invoice.Date `json:"cutoff"`
	Total       Tally        `json:"total"`
	Outstanding Tally        `json:"outstanding"`
	Overdue     Tally        `json:"overdue"`
	OnTime      Tally        `json:"on_time"`
	Paid        Tally        `json:"paid"`
}
