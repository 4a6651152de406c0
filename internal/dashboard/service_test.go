package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/carrier-billing/faturas/internal/aging"
	"github.com/carrier-billing/faturas/internal/invoice"
	"github.com/carrier-billing/faturas/internal/observability"
)

type failingSource struct {
	err error
}

func (f failingSource) ListInvoices(ctx context.Context) ([]invoice.Invoice, error) {
	return nil, f.err
}

type countingSource struct {
	inner invoice.Source
	calls int
}

func (c *countingSource) ListInvoices(ctx context.Context) ([]invoice.Invoice, error) {
	c.calls++
	return c.inner.ListInvoices(ctx)
}

func sampleInvoices() []invoice.Invoice {
	return []invoice.Invoice{
		{ID: "A", Carrier: "DHL", ResponsibleParty: "Gabrielly", Amount: decimal.NewFromInt(100), DueDate: invoice.MustParseDate("2024-03-18"), Status: invoice.StatusPending},
		{ID: "B", Carrier: "DHL", ResponsibleParty: "Gabrielly", Amount: decimal.NewFromInt(50), DueDate: invoice.MustParseDate("2024-03-20"), Status: invoice.StatusPending},
		{ID: "C", Carrier: "DHL", ResponsibleParty: "Gabrielly", Amount: decimal.NewFromInt(999), DueDate: invoice.MustParseDate("2024-01-01"), Status: invoice.StatusPaid},
		{ID: "D", Carrier: "Garcia", Amount: decimal.NewFromInt(30), DueDate: invoice.MustParseDate("2024-03-25"), Status: invoice.StatusOverdue},
	}
}

func newTestService(source invoice.Source) *Service {
	engine := aging.NewEngine(nil, aging.Config{CarrierOrder: []string{"DHL", "Transbritto", "Garcia"}})
	return NewService(nil, source, engine)
}

func TestBuildDashboard(t *testing.T) {
	src := &countingSource{inner: invoice.NewMemorySource(sampleInvoices())}
	svc := newTestService(src)
	today := invoice.MustParseDate("2024-03-14")

	data, err := svc.Build(context.Background(), Request{Today: today, GroupBy: aging.GroupByCarrierParty})
	require.NoError(t, err)
	require.Equal(t, 1, src.calls, "one snapshot per build")
	require.Equal(t, 4, data.Invoices)
	require.Equal(t, "2024-03-20", data.Cutoff.String())

	require.Equal(t, 2, data.Summary.Overdue.Count)
	require.True(t, decimal.NewFromInt(130).Equal(data.Summary.Overdue.Amount))
	require.True(t, decimal.NewFromInt(999).Equal(data.Summary.Paid.Amount))

	require.Equal(t, aging.ModePending, data.Pending.Mode)
	require.True(t, decimal.NewFromInt(180).Equal(data.Pending.GrandTotal().TotalSum))
	require.Equal(t, aging.ModePaid, data.Paid.Mode)
	require.True(t, decimal.NewFromInt(999).Equal(data.Paid.GrandTotal().TotalSum))

	require.Len(t, data.Backlog.Columns, 3)
	require.True(t, decimal.NewFromInt(180).Equal(data.Backlog.GrandTotal().Total))
}

func TestBuildRequiresToday(t *testing.T) {
	svc := newTestService(invoice.NewMemorySource(nil))
	_, err := svc.Build(context.Background(), Request{})
	require.ErrorIs(t, err, ErrTodayRequired)
	_, err = svc.Overdue(context.Background(), invoice.Date{})
	require.ErrorIs(t, err, ErrTodayRequired)
	_, err = svc.Backlog(context.Background(), Request{})
	require.ErrorIs(t, err, ErrTodayRequired)
	_, err = svc.Classify(context.Background(), invoice.Date{})
	require.ErrorIs(t, err, ErrTodayRequired)
}

func TestBuildPropagatesSourceError(t *testing.T) {
	boom := errors.New("store offline")
	svc := newTestService(failingSource{err: boom})
	_, err := svc.Build(context.Background(), Request{Today: invoice.MustParseDate("2024-03-14")})
	require.ErrorIs(t, err, boom)
}

func TestBuildCancelledContext(t *testing.T) {
	svc := newTestService(invoice.NewMemorySource(sampleInvoices()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Build(ctx, Request{Today: invoice.MustParseDate("2024-03-14")})
	require.ErrorIs(t, err, context.Canceled)
}

func TestOverdueAndClassify(t *testing.T) {
	svc := newTestService(invoice.NewMemorySource(sampleInvoices()))
	today := invoice.MustParseDate("2024-03-14")

	overdue, err := svc.Overdue(context.Background(), today)
	require.NoError(t, err)
	require.Len(t, overdue, 2)
	require.Equal(t, "A", overdue[0].ID)
	require.Equal(t, "D", overdue[1].ID)

	classified, err := svc.Classify(context.Background(), today)
	require.NoError(t, err)
	require.Len(t, classified, 4)
	require.Equal(t, aging.BucketOverdue, classified[0].Bucket)
	require.Equal(t, aging.BucketOnTime, classified[1].Bucket)
	require.Equal(t, aging.BucketPaid, classified[2].Bucket)
	require.Equal(t, aging.BucketOverdue, classified[3].Bucket)
}

func TestBacklog(t *testing.T) {
	svc := newTestService(invoice.NewMemorySource(sampleInvoices()))
	matrix, err := svc.Backlog(context.Background(), Request{Today: invoice.MustParseDate("2024-03-14")})
	require.NoError(t, err)
	require.Equal(t, aging.GroupByCarrier, matrix.GroupBy)
	require.Len(t, matrix.Rows, 3)
}

func TestBuildRecordsMetrics(t *testing.T) {
	metrics := observability.NewMetrics()
	svc := newTestService(invoice.NewMemorySource(sampleInvoices())).WithMetrics(metrics)

	_, err := svc.Build(context.Background(), Request{Today: invoice.MustParseDate("2024-03-14")})
	require.NoError(t, err)
	_, err = svc.Backlog(context.Background(), Request{Today: invoice.MustParseDate("2024-03-14")})
	require.NoError(t, err)

	builds, err := testutil.GatherAndCount(metrics.Gatherer(), "faturas_report_builds_total")
	require.NoError(t, err)
	require.Equal(t, 2, builds, "one series per report kind")

	buckets, err := testutil.GatherAndCount(metrics.Gatherer(), "faturas_invoices")
	require.NoError(t, err)
	require.Equal(t, 3, buckets)
}
