package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/carrier-billing/faturas/internal/aging"
	"github.com/carrier-billing/faturas/internal/dashboard"
	"github.com/carrier-billing/faturas/internal/invoice"
)

// ReportOptions defines the flags of the report command.
type ReportOptions struct {
	CommonOptions
}

// ReportCommand prints the full dashboard: summary, pending and paid tables
// and the backlog matrix.
func (c *FaturasCLI) ReportCommand(ctx context.Context, opts ReportOptions) int {
	opts.defaults()
	req, err := opts.request()
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "report: %v\n", err)
		return ExitUsage
	}
	src, rejected, err := c.loadSource(opts.CommonOptions)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "report: %v\n", err)
		return ExitUsage
	}
	data, err := c.service(src).Build(ctx, req)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "report: %v\n", err)
		return ExitUsage
	}
	if opts.JSONOutput {
		if err := encodeJSON(opts.Stdout, data); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "report: encode json: %v\n", err)
			return ExitUsage
		}
	} else {
		renderReportHuman(opts.Stdout, data)
	}
	return finish(rejected)
}

// BacklogOptions defines the flags of the backlog command.
type BacklogOptions struct {
	CommonOptions
}

// BacklogCommand prints only the outstanding-by-due-date matrix.
func (c *FaturasCLI) BacklogCommand(ctx context.Context, opts BacklogOptions) int {
	opts.defaults()
	req, err := opts.request()
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "backlog: %v\n", err)
		return ExitUsage
	}
	src, rejected, err := c.loadSource(opts.CommonOptions)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "backlog: %v\n", err)
		return ExitUsage
	}
	matrix, err := c.service(src).Backlog(ctx, req)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "backlog: %v\n", err)
		return ExitUsage
	}
	if opts.JSONOutput {
		if err := encodeJSON(opts.Stdout, matrix); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "backlog: encode json: %v\n", err)
			return ExitUsage
		}
	} else {
		renderMatrixHuman(opts.Stdout, matrix)
	}
	return finish(rejected)
}

func renderReportHuman(out io.Writer, data dashboard.Dashboard) {
	s := data.Summary
	_, _ = fmt.Fprintf(out, "Invoices as of %s (cutoff %s): %d\n", data.Today, data.Cutoff, data.Invoices)
	_, _ = fmt.Fprintf(out, "  overdue  %4d  %s\n", s.Overdue.Count, money(s.Overdue.Amount))
	_, _ = fmt.Fprintf(out, "  on time  %4d  %s\n", s.OnTime.Count, money(s.OnTime.Amount))
	_, _ = fmt.Fprintf(out, "  paid     %4d  %s\n", s.Paid.Count, money(s.Paid.Amount))
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "Pending")
	renderTableHuman(out, data.Pending)
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "Paid")
	renderTableHuman(out, data.Paid)
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "Backlog")
	renderMatrixHuman(out, data.Backlog)
}

func renderTableHuman(out io.Writer, table aging.Table) {
	for _, row := range table.Rows {
		switch row.Kind {
		case aging.RowSeparator:
			_, _ = fmt.Fprintln(out)
		case aging.RowGrandTotal:
			_, _ = fmt.Fprintf(out, "  %-32s %4d  %s\n", "TOTAL", row.Count, sums(table.Mode, row))
		case aging.RowPartySubtotal:
			_, _ = fmt.Fprintf(out, "  %-32s %4d  %s\n", "subtotal "+row.Party, row.Count, sums(table.Mode, row))
		default:
			_, _ = fmt.Fprintf(out, "  %-32s %4d  %s\n", rowLabel(row.Carrier, row.Party), row.Count, sums(table.Mode, row))
		}
	}
}

func sums(mode aging.Mode, row aging.GroupRow) string {
	if mode == aging.ModePaid {
		return "paid " + money(row.PaidSum)
	}
	return fmt.Sprintf("overdue %s  on time %s  total %s", money(row.OverdueSum), money(row.OnTimeSum), money(row.TotalSum))
}

func renderMatrixHuman(out io.Writer, matrix aging.Matrix) {
	header := make([]string, 0, len(matrix.Columns)+2)
	header = append(header, fmt.Sprintf("%-32s", ""))
	for _, col := range matrix.Columns {
		header = append(header, fmt.Sprintf("%12s", columnLabel(col)))
	}
	header = append(header, fmt.Sprintf("%12s", "total"))
	_, _ = fmt.Fprintf(out, "  %s\n", strings.Join(header, " "))
	for _, row := range matrix.Rows {
		if row.Kind == aging.RowSeparator {
			_, _ = fmt.Fprintln(out)
			continue
		}
		label := rowLabel(row.Carrier, row.Party)
		switch row.Kind {
		case aging.RowPartySubtotal:
			label = "subtotal " + row.Party
		case aging.RowGrandTotal:
			label = "TOTAL"
		}
		line := make([]string, 0, len(row.Cells)+2)
		line = append(line, fmt.Sprintf("%-32s", label))
		for _, cell := range row.Cells {
			if !cell.Valid {
				line = append(line, fmt.Sprintf("%12s", "-"))
				continue
			}
			line = append(line, fmt.Sprintf("%12s", money(cell.Amount)))
		}
		line = append(line, fmt.Sprintf("%12s", money(row.Total)))
		_, _ = fmt.Fprintf(out, "  %s\n", strings.Join(line, " "))
	}
}

func rowLabel(carrier, party string) string {
	if party == "" {
		return carrier
	}
	return carrier + " / " + party
}

func columnLabel(d invoice.Date) string {
	if d.IsZero() {
		return "no date"
	}
	return d.String()
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
