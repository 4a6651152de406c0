package aging

import (
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"github.com/carrier-billing/faturas/internal/invoice"
)

// DefaultUnassignedLabel names the group of invoices without a responsible
// party.
const DefaultUnassignedLabel = "unassigned"

// Config holds the static ordering rules of the engine.
type Config struct {
	// CarrierOrder lists carriers that sort first, in this order. Matching
	// ignores case and surrounding whitespace.
	CarrierOrder    []string
	UnassignedLabel string
	// Locale drives the alphabetical ordering of carriers missing from
	// CarrierOrder.
	Locale language.Tag
}

// Engine aggregates invoice snapshots. It holds no mutable state and is safe
// for concurrent use.
type Engine struct {
	logger     *slog.Logger
	rank       map[string]int
	unassigned string
	locale     language.Tag
}

// NewEngine builds an Engine. A nil logger discards output.
func NewEngine(logger *slog.Logger, cfg Config) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rank := make(map[string]int, len(cfg.CarrierOrder))
	for i, carrier := range cfg.CarrierOrder {
		key := foldCarrier(carrier)
		if key == "" {
			continue
		}
		if _, dup := rank[key]; !dup {
			rank[key] = i
		}
	}
	unassigned := strings.TrimSpace(cfg.UnassignedLabel)
	if unassigned == "" {
		unassigned = DefaultUnassignedLabel
	}
	locale := cfg.Locale
	if locale == language.Und {
		locale = language.BrazilianPortuguese
	}
	return &Engine{logger: logger, rank: rank, unassigned: unassigned, locale: locale}
}

// UnassignedLabel returns the party label used for invoices without one.
func (e *Engine) UnassignedLabel() string {
	return e.unassigned
}

// groupKey identifies a group. carrier is case-folded so spelling variants of
// one carrier share a row.
type groupKey struct {
	carrier string
	party   string
}

// accumulator folds the invoices of one group.
type accumulator struct {
	key     groupKey
	label   string
	count   int
	overdue decimal.Decimal
	onTime  decimal.Decimal
	paid    decimal.Decimal
	byDate  map[invoice.Date]decimal.Decimal
}

func newAccumulator(key groupKey) *accumulator {
	return &accumulator{key: key, byDate: make(map[invoice.Date]decimal.Decimal)}
}

func (a *accumulator) add(bucket Bucket, due invoice.Date, amount decimal.Decimal) {
	a.count++
	switch bucket {
	case BucketPaid:
		a.paid = a.paid.Add(amount)
		return
	case BucketOverdue:
		a.overdue = a.overdue.Add(amount)
	default:
		a.onTime = a.onTime.Add(amount)
	}
	a.byDate[due] = a.byDate[due].Add(amount)
}

func (a *accumulator) merge(other *accumulator) {
	a.count += other.count
	a.overdue = a.overdue.Add(other.overdue)
	a.onTime = a.onTime.Add(other.onTime)
	a.paid = a.paid.Add(other.paid)
	for due, amount := range other.byDate {
		a.byDate[due] = a.byDate[due].Add(amount)
	}
}

func (a *accumulator) outstanding() decimal.Decimal {
	return a.overdue.Add(a.onTime)
}

func (a *accumulator) total(mode Mode) decimal.Decimal {
	if mode == ModePaid {
		return a.paid
	}
	return a.outstanding()
}

// fold is the single pass over invoices shared by Aggregate and BuildPivot.
type fold struct {
	groups map[groupKey]*accumulator
	grand  *accumulator
}

func (e *Engine) fold(invoices []invoice.Invoice, cutoff invoice.Date, mode Mode, by GroupBy) fold {
	f := fold{
		groups: make(map[groupKey]*accumulator),
		grand:  newAccumulator(groupKey{}),
	}
	for _, inv := range invoices {
		bucket := ClassifyAt(inv, cutoff)
		if (mode == ModePaid) != (bucket == BucketPaid) {
			continue
		}
		key := groupKey{carrier: foldCarrier(inv.Carrier)}
		if by == GroupByCarrierParty {
			key.party = e.partyOf(inv)
		}
		acc, ok := f.groups[key]
		if !ok {
			acc = newAccumulator(key)
			// First spelling seen labels the row.
			acc.label = strings.TrimSpace(inv.Carrier)
			f.groups[key] = acc
		}
		amount := e.amountOf(inv)
		acc.add(bucket, inv.DueDate, amount)
		f.grand.add(bucket, inv.DueDate, amount)
	}
	return f
}

func (e *Engine) partyOf(inv invoice.Invoice) string {
	if party := strings.TrimSpace(inv.ResponsibleParty); party != "" {
		return party
	}
	return e.unassigned
}

// amountOf clamps negative amounts to zero. Upstream intake already does this,
// so a negative value here is a caller bug worth logging.
func (e *Engine) amountOf(inv invoice.Invoice) decimal.Decimal {
	if inv.Amount.IsNegative() {
		e.logger.Warn("negative invoice amount treated as zero",
			slog.String("invoice_id", inv.ID),
			slog.String("carrier", inv.Carrier),
			slog.String("amount", inv.Amount.String()),
		)
		return decimal.Zero
	}
	return inv.Amount
}

// Aggregate groups invoices and produces subtotalled rows for one mode. The
// last row is always the grand total.
func (e *Engine) Aggregate(invoices []invoice.Invoice, today invoice.Date, opts Options) Table {
	opts = opts.normalized()
	cutoff := Cutoff(today)
	f := e.fold(invoices, cutoff, opts.Mode, opts.GroupBy)

	table := Table{Mode: opts.Mode, GroupBy: opts.GroupBy, Today: today, Cutoff: cutoff}
	for _, sec := range e.arrange(f.groups, opts.GroupBy) {
		for _, acc := range sec.members {
			table.Rows = append(table.Rows, groupRow(RowCarrier, acc, opts.Mode))
		}
		if opts.GroupBy != GroupByCarrierParty {
			continue
		}
		subtotal := newAccumulator(groupKey{party: sec.party})
		for _, acc := range sec.members {
			subtotal.merge(acc)
		}
		table.Rows = append(table.Rows,
			groupRow(RowPartySubtotal, subtotal, opts.Mode),
			GroupRow{Kind: RowSeparator},
		)
	}
	table.Rows = append(table.Rows, groupRow(RowGrandTotal, f.grand, opts.Mode))
	return table
}

func groupRow(kind RowKind, acc *accumulator, mode Mode) GroupRow {
	row := GroupRow{
		Kind:       kind,
		Carrier:    acc.label,
		Party:      acc.key.party,
		Count:      acc.count,
		OverdueSum: acc.overdue,
		OnTimeSum:  acc.onTime,
		PaidSum:    acc.paid,
		TotalSum:   acc.total(mode),
	}
	if len(acc.byDate) > 0 {
		row.AmountByDueDate = make(map[invoice.Date]decimal.Decimal, len(acc.byDate))
		for due, amount := range acc.byDate {
			row.AmountByDueDate[due] = amount
		}
	}
	return row
}

// Summarize computes the dashboard card totals.
func (e *Engine) Summarize(invoices []invoice.Invoice, today invoice.Date) Summary {
	cutoff := Cutoff(today)
	summary := Summary{Today: today, Cutoff: cutoff}
	for _, inv := range invoices {
		amount := e.amountOf(inv)
		summary.Total.add(amount)
		switch ClassifyAt(inv, cutoff) {
		case BucketPaid:
			summary.Paid.add(amount)
		case BucketOverdue:
			summary.Overdue.add(amount)
			summary.Outstanding.add(amount)
		default:
			summary.OnTime.add(amount)
			summary.Outstanding.add(amount)
		}
	}
	return summary
}
