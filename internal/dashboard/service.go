package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carrier-billing/faturas/internal/aging"
	"github.com/carrier-billing/faturas/internal/invoice"
	"github.com/carrier-billing/faturas/internal/observability"
)

// ErrTodayRequired is returned when a request does not carry a reference date.
var ErrTodayRequired = errors.New("dashboard: today is required")

// Request scopes a dashboard build.
type Request struct {
	Today   invoice.Date
	GroupBy aging.GroupBy
}

// Dashboard is everything the billing screen shows for one snapshot.
type Dashboard struct {
	Today    invoice.Date  `json:"today"`
	Cutoff   invoice.Date  `json:"cutoff"`
	Invoices int           `json:"invoices"`
	Summary  aging.Summary `json:"summary"`
	Pending  aging.Table   `json:"pending"`
	Paid     aging.Table   `json:"paid"`
	Backlog  aging.Matrix  `json:"backlog"`
}

// Service assembles dashboards from an invoice source.
type Service struct {
	logger  *slog.Logger
	source  invoice.Source
	engine  *aging.Engine
	metrics *observability.Metrics
}

// NewService wires the source with the aging engine.
func NewService(logger *slog.Logger, source invoice.Source, engine *aging.Engine) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{logger: logger, source: source, engine: engine}
}

// WithMetrics records build metrics on m. A nil m disables recording.
func (s *Service) WithMetrics(m *observability.Metrics) *Service {
	s.metrics = m
	return s
}

// Build loads one snapshot and derives the summary, both mode tables and the
// backlog matrix from it.
func (s *Service) Build(ctx context.Context, req Request) (data Dashboard, err error) {
	if req.Today.IsZero() {
		return Dashboard{}, ErrTodayRequired
	}
	started := time.Now()
	defer func() { s.metrics.ObserveBuild("dashboard", time.Since(started), err) }()

	invoices, err := s.source.ListInvoices(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("dashboard: list invoices: %w", err)
	}

	data = Dashboard{
		Today:    req.Today,
		Cutoff:   aging.Cutoff(req.Today),
		Invoices: len(invoices),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		data.Summary = s.engine.Summarize(invoices, req.Today)
		return nil
	})

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		data.Pending = s.engine.Aggregate(invoices, req.Today, aging.Options{Mode: aging.ModePending, GroupBy: req.GroupBy})
		return nil
	})

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		data.Paid = s.engine.Aggregate(invoices, req.Today, aging.Options{Mode: aging.ModePaid, GroupBy: req.GroupBy})
		return nil
	})

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		data.Backlog = s.engine.BuildPivot(invoices, req.Today, req.GroupBy)
		return nil
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	s.metrics.SetSnapshot(map[string]int{
		string(aging.BucketOverdue): data.Summary.Overdue.Count,
		string(aging.BucketOnTime):  data.Summary.OnTime.Count,
		string(aging.BucketPaid):    data.Summary.Paid.Count,
	})

	s.logger.Debug("dashboard built",
		slog.String("today", req.Today.String()),
		slog.String("cutoff", data.Cutoff.String()),
		slog.Int("invoices", len(invoices)),
		slog.Int("backlog_columns", len(data.Backlog.Columns)),
		slog.Duration("elapsed", time.Since(started)),
	)
	return data, nil
}

// Backlog builds only the pivot matrix.
func (s *Service) Backlog(ctx context.Context, req Request) (_ aging.Matrix, err error) {
	if req.Today.IsZero() {
		return aging.Matrix{}, ErrTodayRequired
	}
	started := time.Now()
	defer func() { s.metrics.ObserveBuild("backlog", time.Since(started), err) }()

	invoices, err := s.source.ListInvoices(ctx)
	if err != nil {
		return aging.Matrix{}, fmt.Errorf("dashboard: list invoices: %w", err)
	}
	return s.engine.BuildPivot(invoices, req.Today, req.GroupBy), nil
}

// Classified pairs an invoice with its computed bucket.
type Classified struct {
	invoice.Invoice
	Bucket aging.Bucket `json:"bucket"`
}

// Classify lists every invoice of the snapshot with its bucket, in source
// order.
func (s *Service) Classify(ctx context.Context, today invoice.Date) ([]Classified, error) {
	if today.IsZero() {
		return nil, ErrTodayRequired
	}
	invoices, err := s.source.ListInvoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard: list invoices: %w", err)
	}
	cutoff := aging.Cutoff(today)
	out := make([]Classified, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, Classified{Invoice: inv, Bucket: aging.ClassifyAt(inv, cutoff)})
	}
	return out, nil
}

// Overdue lists the overdue invoices of the snapshot.
func (s *Service) Overdue(ctx context.Context, today invoice.Date) ([]invoice.Invoice, error) {
	if today.IsZero() {
		return nil, ErrTodayRequired
	}
	invoices, err := s.source.ListInvoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard: list invoices: %w", err)
	}
	return aging.Select(invoices, today, aging.BucketOverdue), nil
}
