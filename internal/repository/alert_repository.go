package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawprint-grooming/service-booking/internal/domain"
	alertDomain "github.com/pawprint-grooming/service-booking/internal/domain/alert"
)

// AlertModel is the GORM model for the operator_alerts table.
type AlertModel struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Kind           string     `gorm:"size:40;not null;index"`
	BookingCode    string     `gorm:"size:20;index"`
	Message        string     `gorm:"type:text;not null"`
	CreatedAt      time.Time  `gorm:"not null;index"`
	AcknowledgedAt *time.Time `gorm:""`
}

func (AlertModel) TableName() string { return "operator_alerts" }

// GormAlertRepository implements alert.Repository using GORM.
type GormAlertRepository struct {
	db *gorm.DB
}

func NewGormAlertRepository(db *gorm.DB) *GormAlertRepository {
	return &GormAlertRepository{db: db}
}

func (r *GormAlertRepository) Save(ctx context.Context, a *alertDomain.Alert) error {
	if err := r.db.WithContext(ctx).Create(toAlertModel(a)).Error; err != nil {
		return storageErr("save alert", err)
	}
	return nil
}

func (r *GormAlertRepository) FindByID(ctx context.Context, id uuid.UUID) (*alertDomain.Alert, error) {
	var model AlertModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Alert", id.String())
		}
		return nil, storageErr("find alert", err)
	}
	return toAlertDomain(&model), nil
}

func (r *GormAlertRepository) List(ctx context.Context, unacknowledgedOnly bool, page, limit int) ([]*alertDomain.Alert, int64, error) {
	filter := func(db *gorm.DB) *gorm.DB {
		if unacknowledgedOnly {
			return db.Where("acknowledged_at IS NULL")
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&AlertModel{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, storageErr("count alerts", err)
	}

	var models []AlertModel
	if err := r.db.WithContext(ctx).Scopes(filter).
		Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, storageErr("list alerts", err)
	}
	alerts := make([]*alertDomain.Alert, len(models))
	for i := range models {
		alerts[i] = toAlertDomain(&models[i])
	}
	return alerts, total, nil
}

func (r *GormAlertRepository) Update(ctx context.Context, a *alertDomain.Alert) error {
	result := r.db.WithContext(ctx).Model(&AlertModel{}).Where("id = ?", a.ID()).
		Update("acknowledged_at", a.AcknowledgedAt())
	if result.Error != nil {
		return storageErr("update alert", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Alert", a.ID().String())
	}
	return nil
}

func toAlertModel(a *alertDomain.Alert) *AlertModel {
	return &AlertModel{
		ID:             a.ID(),
		Kind:           string(a.Kind()),
		BookingCode:    a.BookingCode(),
		Message:        a.Message(),
		CreatedAt:      a.CreatedAt(),
		AcknowledgedAt: a.AcknowledgedAt(),
	}
}

func toAlertDomain(m *AlertModel) *alertDomain.Alert {
	return alertDomain.Reconstruct(m.ID, alertDomain.Kind(m.Kind), m.BookingCode, m.Message, m.CreatedAt, m.AcknowledgedAt)
}
