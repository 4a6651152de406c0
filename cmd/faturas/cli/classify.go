package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/carrier-billing/faturas/internal/aging"
	"github.com/carrier-billing/faturas/internal/dashboard"
	"github.com/carrier-billing/faturas/internal/invoice"
)

// ClassifyOptions defines the flags of the classify command.
type ClassifyOptions struct {
	CommonOptions
	// OverdueOnly restricts the listing to overdue invoices.
	OverdueOnly bool
}

// ClassifyCommand lists every invoice with its bucket in input order.
func (c *FaturasCLI) ClassifyCommand(ctx context.Context, opts ClassifyOptions) int {
	opts.defaults()
	today, err := parseToday(opts.Today)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "classify: %v\n", err)
		return ExitUsage
	}
	src, rejected, err := c.loadSource(opts.CommonOptions)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "classify: %v\n", err)
		return ExitUsage
	}
	listing, err := c.classified(ctx, src, today, opts.OverdueOnly)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "classify: %v\n", err)
		return ExitUsage
	}
	if opts.JSONOutput {
		if err := encodeJSON(opts.Stdout, listing); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "classify: encode json: %v\n", err)
			return ExitUsage
		}
	} else {
		renderClassifiedHuman(opts.Stdout, today, listing)
	}
	return finish(rejected)
}

// classified lists the snapshot with buckets, or only the overdue invoices.
func (c *FaturasCLI) classified(ctx context.Context, src invoice.Source, today invoice.Date, overdueOnly bool) ([]dashboard.Classified, error) {
	svc := c.service(src)
	if !overdueOnly {
		return svc.Classify(ctx, today)
	}
	overdue, err := svc.Overdue(ctx, today)
	if err != nil {
		return nil, err
	}
	listing := make([]dashboard.Classified, 0, len(overdue))
	for _, inv := range overdue {
		listing = append(listing, dashboard.Classified{Invoice: inv, Bucket: aging.BucketOverdue})
	}
	return listing, nil
}

func renderClassifiedHuman(out io.Writer, today invoice.Date, listing []dashboard.Classified) {
	_, _ = fmt.Fprintf(out, "Cutoff for %s: %s\n", today, aging.Cutoff(today))
	for _, item := range listing {
		due := item.DueDate.String()
		if due == "" {
			due = "-"
		}
		_, _ = fmt.Fprintf(out, "  %-8s %-36s %-20s %-10s %12s\n", item.Bucket, item.ID, item.Carrier, due, money(item.Amount))
	}
}

// CutoffOptions defines the flags of the cutoff command.
type CutoffOptions struct {
	Today      string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// CutoffResult is the JSON shape of the cutoff command.
type CutoffResult struct {
	Today  invoice.Date `json:"today"`
	Cutoff invoice.Date `json:"cutoff"`
}

// CutoffCommand prints the classification cutoff for a reference date.
func CutoffCommand(opts CutoffOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	today, err := parseToday(opts.Today)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "cutoff: %v\n", err)
		return ExitUsage
	}
	result := CutoffResult{Today: today, Cutoff: aging.Cutoff(today)}
	if opts.JSONOutput {
		if err := encodeJSON(opts.Stdout, result); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "cutoff: encode json: %v\n", err)
			return ExitUsage
		}
		return ExitOK
	}
	_, _ = fmt.Fprintf(opts.Stdout, "%s %s\n", result.Cutoff, result.Cutoff.Weekday())
	return ExitOK
}
