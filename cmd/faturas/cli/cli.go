package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/carrier-billing/faturas/internal/aging"
	"github.com/carrier-billing/faturas/internal/dashboard"
	"github.com/carrier-billing/faturas/internal/invoice"
	"github.com/carrier-billing/faturas/internal/observability"
)

// Exit codes shared by every command.
const (
	ExitOK       = 0
	ExitUsage    = 1
	ExitRejected = 2
)

var errInputRequired = errors.New("--input is required (or set INVOICES_FILE)")

// FaturasCLI runs the reporting commands against a JSON records file.
type FaturasCLI struct {
	logger  *slog.Logger
	engine  *aging.Engine
	intake  *invoice.Intake
	metrics *observability.Metrics
	stdin   io.Reader
}

// NewFaturasCLI wires the engine and intake used by every command.
func NewFaturasCLI(logger *slog.Logger, engine *aging.Engine, intake *invoice.Intake) *FaturasCLI {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FaturasCLI{logger: logger, engine: engine, intake: intake, stdin: os.Stdin}
}

// WithMetrics records intake and build metrics on m.
func (c *FaturasCLI) WithMetrics(m *observability.Metrics) *FaturasCLI {
	c.metrics = m
	return c
}

// CommonOptions are the flags shared by the data commands.
type CommonOptions struct {
	Input      string
	Today      string
	GroupBy    string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

func (o *CommonOptions) defaults() {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
}

// request validates today and group-by.
func (o CommonOptions) request() (dashboard.Request, error) {
	today, err := parseToday(o.Today)
	if err != nil {
		return dashboard.Request{}, err
	}
	by, ok := aging.ParseGroupBy(strings.TrimSpace(o.GroupBy))
	if !ok {
		return dashboard.Request{}, fmt.Errorf("invalid --group-by %q (expected carrier or carrier+responsible)", o.GroupBy)
	}
	return dashboard.Request{Today: today, GroupBy: by}, nil
}

func parseToday(raw string) (invoice.Date, error) {
	today, err := invoice.ParseDate(raw)
	if err != nil {
		return invoice.Date{}, fmt.Errorf("invalid --today %q (expected YYYY-MM-DD)", raw)
	}
	if today.IsZero() {
		return invoice.Date{}, errors.New("--today is required")
	}
	return today, nil
}

// loadSource reads and normalises the records file. Intake issues are printed
// to stderr; rejected reports whether any record was dropped.
func (c *FaturasCLI) loadSource(opts CommonOptions) (src *invoice.MemorySource, rejected bool, err error) {
	path := strings.TrimSpace(opts.Input)
	if path == "" {
		return nil, false, errInputRequired
	}
	var r io.Reader
	if path == "-" {
		r = c.stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, false, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	records, err := invoice.DecodeRecords(r)
	if err != nil {
		return nil, false, fmt.Errorf("decode input: %w", err)
	}
	invoices, issues := c.intake.Normalize(records)
	for _, issue := range issues {
		level := "warning"
		if issue.Rejected {
			level = "rejected"
			rejected = true
		}
		_, _ = fmt.Fprintf(opts.Stderr, "intake %s: %s\n", level, issue)
		c.metrics.ObserveIntakeIssue(issue.Field, issue.Rejected)
	}
	c.logger.Debug("input loaded",
		slog.String("path", path),
		slog.Int("records", len(records)),
		slog.Int("invoices", len(invoices)),
		slog.Int("issues", len(issues)),
	)
	return invoice.NewMemorySource(invoices), rejected, nil
}

func (c *FaturasCLI) service(src invoice.Source) *dashboard.Service {
	return dashboard.NewService(c.logger, src, c.engine).WithMetrics(c.metrics)
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func finish(rejected bool) int {
	if rejected {
		return ExitRejected
	}
	return ExitOK
}
