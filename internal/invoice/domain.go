package invoice

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the workflow status set by the billing team.
type PaymentStatus string

const (
	StatusPending PaymentStatus = "pending"
	StatusOverdue PaymentStatus = "overdue"
	StatusPaid    PaymentStatus = "paid"
)

var statusAliases = map[string]PaymentStatus{
	"pending":    StatusPending,
	"pendente":   StatusPending,
	"programada": StatusPending,
	"scheduled":  StatusPending,
	"overdue":    StatusOverdue,
	"atrasada":   StatusOverdue,
	"atrasado":   StatusOverdue,
	"late":       StatusOverdue,
	"paid":       StatusPaid,
	"paga":       StatusPaid,
	"pago":       StatusPaid,
}

// ParseStatus maps a stored status label onto a PaymentStatus. Unknown labels
// fall back to pending.
func ParseStatus(raw string) PaymentStatus {
	if status, ok := statusAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return status
	}
	return StatusPending
}

// Invoice is a carrier invoice as seen by the aging engine.
type Invoice struct {
	ID               string          `json:"id"`
	Number           string          `json:"number,omitempty"`
	Carrier          string          `json:"carrier"`
	ResponsibleParty string          `json:"responsible_party,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	DueDate          Date            `json:"due_date"`
	Status           PaymentStatus   `json:"status"`
	Note             string          `json:"note,omitempty"`
}

// HasDueDate reports whether the invoice carries a due date.
func (i Invoice) HasDueDate() bool {
	return !i.DueDate.IsZero()
}

// Source supplies invoice snapshots from the owning store.
type Source interface {
	ListInvoices(ctx context.Context) ([]Invoice, error)
}

// MemorySource serves a fixed snapshot.
type MemorySource struct {
	invoices []Invoice
}

// NewMemorySource copies invoices into a new snapshot source.
func NewMemorySource(invoices []Invoice) *MemorySource {
	return &MemorySource{invoices: append([]Invoice(nil), invoices...)}
}

// ListInvoices returns a copy of the snapshot.
func (s *MemorySource) ListInvoices(ctx context.Context) ([]Invoice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]Invoice(nil), s.invoices...), nil
}
