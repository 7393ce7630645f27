package booking

import (
	"fmt"

	"github.com/pawprint-grooming/service-booking/internal/domain/catalog"
)

// LineItem is one selected service on an appointment, with the catalog values
// captured at booking time. It is never modified after creation.
type LineItem struct {
	ServiceCode     string `json:"service_code"`
	ServiceName     string `json:"service_name"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
	Quantity        int    `json:"quantity"`
}

// NewLineItem snapshots svc with the given quantity.
func NewLineItem(svc *catalog.Service, quantity int) (LineItem, error) {
	if quantity < 1 {
		return LineItem{}, fmt.Errorf("quantity for %s must be at least 1", svc.Code())
	}
	return LineItem{
		ServiceCode:     svc.Code(),
		ServiceName:     svc.Name(),
		DurationMinutes: svc.DurationMinutes(),
		PriceCents:      svc.PriceCents(),
		Quantity:        quantity,
	}, nil
}

// TotalMinutes is duration x quantity.
func (li LineItem) TotalMinutes() int { return li.DurationMinutes * li.Quantity }

// TotalCents is price x quantity.
func (li LineItem) TotalCents() int64 { return li.PriceCents * int64(li.Quantity) }

// Quote sums a set of line items.
type Quote struct {
	DurationMinutes int
	PriceCents      int64
}

// QuoteFor totals the duration and price of items.
func QuoteFor(items []LineItem) Quote {
	var q Quote
	for _, li := range items {
		q.DurationMinutes += li.TotalMinutes()
		q.PriceCents += li.TotalCents()
	}
	return q
}

// ServiceNames returns the display names of items in order.
func ServiceNames(items []LineItem) []string {
	names := make([]string, len(items))
	for i, li := range items {
		names[i] = li.ServiceName
	}
	return names
}
