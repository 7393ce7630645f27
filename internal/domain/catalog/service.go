package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pawprint-grooming/service-booking/internal/domain"
)

// Category groups services on the price list.
type Category string

const (
	CategoryGrooming Category = "grooming"
	CategoryBath     Category = "bath"
	CategoryAddon    Category = "addon"
	CategoryBoarding Category = "boarding"
)

// IsValid returns true if the category is recognized.
func (c Category) IsValid() bool {
	switch c {
	case CategoryGrooming, CategoryBath, CategoryAddon, CategoryBoarding:
		return true
	}
	return false
}

// Service is a bookable catalog entry identified by a stable code.
// The booking path only reads services.
type Service struct {
	code            string
	name            string
	durationMinutes int
	priceCents      int64
	category        Category
	active          bool
	updatedAt       time.Time
}

// NewService validates and creates an active service.
func NewService(code, name string, durationMinutes int, priceCents int64, category Category) (*Service, error) {
	code = strings.TrimSpace(code)
	fields := map[string]string{}
	if code == "" {
		fields["code"] = "code is required"
	}
	if strings.TrimSpace(name) == "" {
		fields["name"] = "name is required"
	}
	if durationMinutes <= 0 {
		fields["duration_minutes"] = "duration_minutes must be greater than 0"
	}
	if priceCents < 0 {
		fields["price_cents"] = "price_cents must be greater than or equal to 0"
	}
	if !category.IsValid() {
		fields["category"] = fmt.Sprintf("category must be one of grooming bath addon boarding, got %q", category)
	}
	if len(fields) > 0 {
		return nil, domain.NewFieldValidationError(fields)
	}
	return &Service{
		code:            code,
		name:            strings.TrimSpace(name),
		durationMinutes: durationMinutes,
		priceCents:      priceCents,
		category:        category,
		active:          true,
		updatedAt:       time.Now().UTC(),
	}, nil
}

// Reconstruct rebuilds a Service from persistence data (no validation).
func Reconstruct(code, name string, durationMinutes int, priceCents int64, category Category, active bool, updatedAt time.Time) *Service {
	return &Service{
		code:            code,
		name:            name,
		durationMinutes: durationMinutes,
		priceCents:      priceCents,
		category:        category,
		active:          active,
		updatedAt:       updatedAt,
	}
}

func (s *Service) Code() string         { return s.code }
func (s *Service) Name() string         { return s.name }
func (s *Service) DurationMinutes() int { return s.durationMinutes }
func (s *Service) PriceCents() int64    { return s.priceCents }
func (s *Service) Category() Category   { return s.category }
func (s *Service) IsActive() bool       { return s.active }
func (s *Service) UpdatedAt() time.Time { return s.updatedAt }

// Retire takes the service off the bookable list. Existing bookings keep their snapshot.
func (s *Service) Retire() {
	s.active = false
	s.updatedAt = time.Now().UTC()
}

// Repository is the read-mostly store of services.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Service, error)
	// FindByCodes returns the services found, keyed by code. Missing codes are absent.
	FindByCodes(ctx context.Context, codes []string) (map[string]*Service, error)
	List(ctx context.Context, includeRetired bool) ([]*Service, error)
	// Upsert inserts or replaces a service by code.
	Upsert(ctx context.Context, s *Service) error
}
