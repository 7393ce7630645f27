package application

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/pawprint-grooming/service-booking/internal/domain"
	"github.com/pawprint-grooming/service-booking/internal/domain/booking"
	"github.com/pawprint-grooming/service-booking/internal/domain/catalog"
	"github.com/pawprint-grooming/service-booking/internal/platform/validation"
)

// ServiceSelection is one requested service. A zero quantity means one.
type ServiceSelection struct {
	Code     string `json:"code" validate:"required,max=64"`
	Quantity int    `json:"quantity" validate:"gte=0,lte=10"`
}

// UpsertServiceRequest creates or replaces a catalog entry.
type UpsertServiceRequest struct {
	Name            string `json:"name" validate:"required,max=100"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,gte=1,lte=720"`
	PriceCents      int64  `json:"price_cents" validate:"gte=0"`
	Category        string `json:"category" validate:"required,oneof=grooming bath addon boarding"`
	Active          *bool  `json:"active"`
}

// CatalogService serves the bookable services and prices selections against them.
type CatalogService struct {
	repo   catalog.Repository
	logger *zap.Logger
}

func NewCatalogService(repo catalog.Repository, logger *zap.Logger) *CatalogService {
	return &CatalogService{repo: repo, logger: logger}
}

// List returns the catalog. Retired services are included only on request.
func (s *CatalogService) List(ctx context.Context, includeRetired bool) ([]ServiceDTO, error) {
	services, err := s.repo.List(ctx, includeRetired)
	if err != nil {
		return nil, err
	}
	dtos := make([]ServiceDTO, len(services))
	for i, svc := range services {
		dtos[i] = toServiceDTO(svc)
	}
	return dtos, nil
}

// Upsert creates or replaces the service identified by code.
func (s *CatalogService) Upsert(ctx context.Context, code string, req UpsertServiceRequest) (*ServiceDTO, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	svc, err := catalog.NewService(strings.TrimSpace(code), req.Name, req.DurationMinutes, req.PriceCents, catalog.Category(req.Category))
	if err != nil {
		return nil, err
	}
	if req.Active != nil && !*req.Active {
		svc.Retire()
	}
	if err := s.repo.Upsert(ctx, svc); err != nil {
		return nil, err
	}

	s.logger.Info("service upserted", zap.String("code", svc.Code()), zap.Bool("active", svc.IsActive()))
	result := toServiceDTO(svc)
	return &result, nil
}

// Retire withdraws a service from new bookings. Existing appointments keep their snapshot.
func (s *CatalogService) Retire(ctx context.Context, code string) (*ServiceDTO, error) {
	svc, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	svc.Retire()
	if err := s.repo.Upsert(ctx, svc); err != nil {
		return nil, err
	}

	s.logger.Info("service retired", zap.String("code", code))
	result := toServiceDTO(svc)
	return &result, nil
}

// Price snapshots each selection into a line item and totals them. Repeated
// codes are merged by summing their quantities, keeping first-seen order.
func (s *CatalogService) Price(ctx context.Context, selections []ServiceSelection) ([]booking.LineItem, booking.Quote, error) {
	order := make([]string, 0, len(selections))
	quantities := make(map[string]int, len(selections))
	for _, sel := range selections {
		code := strings.TrimSpace(sel.Code)
		qty := sel.Quantity
		if qty == 0 {
			qty = 1
		}
		if _, seen := quantities[code]; !seen {
			order = append(order, code)
		}
		quantities[code] += qty
	}

	found, err := s.repo.FindByCodes(ctx, order)
	if err != nil {
		return nil, booking.Quote{}, err
	}

	items := make([]booking.LineItem, 0, len(order))
	for _, code := range order {
		svc, ok := found[code]
		if !ok {
			return nil, booking.Quote{}, domain.NewUnknownServiceError(code)
		}
		if !svc.IsActive() {
			return nil, booking.Quote{}, domain.NewInactiveServiceError(code)
		}
		li, err := booking.NewLineItem(svc, quantities[code])
		if err != nil {
			return nil, booking.Quote{}, domain.NewValidationError(err.Error())
		}
		items = append(items, li)
	}
	return items, booking.QuoteFor(items), nil
}
