package aging

import (
	"time"

	"github.com/carrier-billing/faturas/internal/invoice"
)

// Cutoff returns the boundary date separating overdue from on-time pending
// invoices: the first Wednesday strictly after today, pushed one more week
// when today is a Monday.
func Cutoff(today invoice.Date) invoice.Date {
	if today.IsZero() {
		return today
	}
	days := (int(time.Wednesday) - int(today.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	if today.Weekday() == time.Monday {
		days += 7
	}
	return today.AddDays(days)
}

// Classify buckets inv relative to today.
func Classify(inv invoice.Invoice, today invoice.Date) Bucket {
	return ClassifyAt(inv, Cutoff(today))
}

// ClassifyAt buckets inv against an already computed cutoff. Explicit paid and
// overdue statuses win over any date comparison.
func ClassifyAt(inv invoice.Invoice, cutoff invoice.Date) Bucket {
	switch invoice.ParseStatus(string(inv.Status)) {
	case invoice.StatusPaid:
		return BucketPaid
	case invoice.StatusOverdue:
		return BucketOverdue
	}
	if !inv.HasDueDate() || cutoff.IsZero() {
		return BucketOnTime
	}
	if inv.DueDate.Before(cutoff) {
		return BucketOverdue
	}
	return BucketOnTime
}

// Select returns the invoices whose bucket is one of buckets, in input order.
func Select(invoices []invoice.Invoice, today invoice.Date, buckets ...Bucket) []invoice.Invoice {
	want := make(map[Bucket]struct{}, len(buckets))
	for _, b := range buckets {
		want[b] = struct{}{}
	}
	cutoff := Cutoff(today)
	out := make([]invoice.Invoice, 0)
	for _, inv := range invoices {
		if _, ok := want[ClassifyAt(inv, cutoff)]; ok {
			out = append(out, inv)
		}
	}
	return out
}
