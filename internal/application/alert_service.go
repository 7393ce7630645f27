package application

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pawprint-grooming/service-booking/internal/domain"
	"github.com/pawprint-grooming/service-booking/internal/domain/alert"
)

// AlertService records and lists operator alerts.
type AlertService struct {
	repo   alert.Repository
	logger *zap.Logger
}

func NewAlertService(repo alert.Repository, logger *zap.Logger) *AlertService {
	return &AlertService{repo: repo, logger: logger}
}

// Raise stores a new alert. It is called from background paths, so the alert
// is also logged in case the store is down.
func (s *AlertService) Raise(ctx context.Context, kind alert.Kind, bookingCode, message string) error {
	a := alert.New(kind, bookingCode, message)
	s.logger.Warn("operator alert raised",
		zap.String("kind", string(kind)),
		zap.String("booking_code", bookingCode),
		zap.String("message", message),
	)
	if err := s.repo.Save(ctx, a); err != nil {
		s.logger.Error("failed to store operator alert", zap.Error(err))
		return err
	}
	return nil
}

// List returns a page of alerts, newest first.
func (s *AlertService) List(ctx context.Context, unacknowledgedOnly bool, page, limit int) (*domain.PaginatedResult[AlertDTO], error) {
	alerts, total, err := s.repo.List(ctx, unacknowledgedOnly, page, limit)
	if err != nil {
		return nil, err
	}
	dtos := make([]AlertDTO, len(alerts))
	for i, a := range alerts {
		dtos[i] = toAlertDTO(a)
	}
	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

// Acknowledge marks an alert as seen. Acknowledging twice is a no-op.
func (s *AlertService) Acknowledge(ctx context.Context, id uuid.UUID) (*AlertDTO, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.IsAcknowledged() {
		a.Acknowledge()
		if err := s.repo.Update(ctx, a); err != nil {
			return nil, err
		}
	}
	result := toAlertDTO(a)
	return &result, nil
}
