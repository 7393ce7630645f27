package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pawprint-grooming/service-booking/internal/domain"
	"github.com/pawprint-grooming/service-booking/internal/domain/catalog"
)

// ServiceModel is the GORM model for the services table.
type ServiceModel struct {
	Code            string    `gorm:"primaryKey;size:50"`
	Name            string    `gorm:"size:120;not null"`
	DurationMinutes int       `gorm:"not null"`
	PriceCents      int64     `gorm:"not null"`
	Category        string    `gorm:"size:20;not null;index"`
	Active          bool      `gorm:"not null;default:true"`
	UpdatedAt       time.Time `gorm:"not null"`
}

func (ServiceModel) TableName() string { return "services" }

// GormCatalogRepository implements catalog.Repository using GORM.
type GormCatalogRepository struct {
	db *gorm.DB
}

func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

func (r *GormCatalogRepository) FindByCode(ctx context.Context, code string) (*catalog.Service, error) {
	var model ServiceModel
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Service", code)
		}
		return nil, storageErr("find service", err)
	}
	return toServiceDomain(&model), nil
}

func (r *GormCatalogRepository) FindByCodes(ctx context.Context, codes []string) (map[string]*catalog.Service, error) {
	out := make(map[string]*catalog.Service, len(codes))
	if len(codes) == 0 {
		return out, nil
	}
	var models []ServiceModel
	if err := r.db.WithContext(ctx).Where("code IN ?", codes).Find(&models).Error; err != nil {
		return nil, storageErr("find services", err)
	}
	for i := range models {
		out[models[i].Code] = toServiceDomain(&models[i])
	}
	return out, nil
}

func (r *GormCatalogRepository) List(ctx context.Context, includeRetired bool) ([]*catalog.Service, error) {
	q := r.db.WithContext(ctx).Order("category ASC, name ASC")
	if !includeRetired {
		q = q.Where("active = ?", true)
	}
	var models []ServiceModel
	if err := q.Find(&models).Error; err != nil {
		return nil, storageErr("list services", err)
	}
	services := make([]*catalog.Service, len(models))
	for i := range models {
		services[i] = toServiceDomain(&models[i])
	}
	return services, nil
}

func (r *GormCatalogRepository) Upsert(ctx context.Context, s *catalog.Service) error {
	model := toServiceModel(s)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "duration_minutes", "price_cents", "category", "active", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		return storageErr("upsert service", err)
	}
	return nil
}

// Seed inserts services that are not yet present. Existing rows are left alone.
func (r *GormCatalogRepository) Seed(ctx context.Context, services []*catalog.Service) error {
	models := make([]ServiceModel, len(services))
	for i, s := range services {
		models[i] = *toServiceModel(s)
	}
	if len(models) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&models).Error; err != nil {
		return storageErr("seed services", err)
	}
	return nil
}

func toServiceModel(s *catalog.Service) *ServiceModel {
	return &ServiceModel{
		Code:            s.Code(),
		Name:            s.Name(),
		DurationMinutes: s.DurationMinutes(),
		PriceCents:      s.PriceCents(),
		Category:        string(s.Category()),
		Active:          s.IsActive(),
		UpdatedAt:       s.UpdatedAt(),
	}
}

func toServiceDomain(m *ServiceModel) *catalog.Service {
	return catalog.Reconstruct(m.Code, m.Name, m.DurationMinutes, m.PriceCents, catalog.Category(m.Category), m.Active, m.UpdatedAt)
}
