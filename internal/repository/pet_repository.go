package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawprint-grooming/service-booking/internal/domain"
	petDomain "github.com/pawprint-grooming/service-booking/internal/domain/pet"
)

// PetModel is the GORM model for the pets table.
type PetModel struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OwnerID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	Name         string     `gorm:"type:varchar(100);not null"`
	Breed        string     `gorm:"type:varchar(100);not null;default:''"`
	Size         string     `gorm:"type:varchar(10);not null;default:'medium'"`
	Notes        string     `gorm:"type:text"`
	Status       string     `gorm:"type:varchar(20);not null;default:'active'"`
	MergedIntoID *uuid.UUID `gorm:"type:uuid"`
	Version      int64      `gorm:"not null;default:1"`
	CreatedAt    time.Time  `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt    time.Time  `gorm:"type:timestamptz;not null;default:now()"`
}

func (PetModel) TableName() string { return "pets" }

// GormPetRepository implements PetRepository using GORM.
type GormPetRepository struct {
	db *gorm.DB
}

func NewGormPetRepository(db *gorm.DB) *GormPetRepository {
	return &GormPetRepository{db: db}
}

func (r *GormPetRepository) FindByID(ctx context.Context, id uuid.UUID) (*petDomain.Pet, error) {
	var model PetModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Pet", id.String())
		}
		return nil, storageErr("find pet", err)
	}
	return toPetDomain(&model), nil
}

func (r *GormPetRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]*petDomain.Pet, error) {
	var models []PetModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, storageErr("list pets", err)
	}
	pets := make([]*petDomain.Pet, len(models))
	for i := range models {
		pets[i] = toPetDomain(&models[i])
	}
	return pets, nil
}

func (r *GormPetRepository) Save(ctx context.Context, pet *petDomain.Pet) error {
	if err := r.db.WithContext(ctx).Create(toPetModel(pet)).Error; err != nil {
		return storageErr("save pet", err)
	}
	return nil
}

func (r *GormPetRepository) Update(ctx context.Context, pet *petDomain.Pet) error {
	model := toPetModel(pet)
	previousVersion := pet.Version() - 1

	result := r.db.WithContext(ctx).
		Model(&PetModel{}).
		Where("id = ? AND version = ?", model.ID, previousVersion).
		Updates(map[string]interface{}{
			"name":           model.Name,
			"breed":          model.Breed,
			"size":           model.Size,
			"notes":          model.Notes,
			"status":         model.Status,
			"merged_into_id": model.MergedIntoID,
			"version":        model.Version,
			"updated_at":     model.UpdatedAt,
		})

	if result.Error != nil {
		return storageErr("update pet", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("pet was modified by another transaction")
	}
	return nil
}

// --- Conversions ---

func toPetModel(p *petDomain.Pet) *PetModel {
	return &PetModel{
		ID:           p.ID(),
		OwnerID:      p.OwnerID(),
		Name:         p.Name(),
		Breed:        p.Breed(),
		Size:         string(p.Size()),
		Notes:        p.Notes(),
		Status:       string(p.Status()),
		MergedIntoID: p.MergedIntoID(),
		Version:      p.Version(),
		CreatedAt:    p.CreatedAt(),
		UpdatedAt:    p.UpdatedAt(),
	}
}

func toPetDomain(m *PetModel) *petDomain.Pet {
	return petDomain.Reconstruct(
		m.ID, m.OwnerID,
		m.Name, m.Breed,
		petDomain.Size(m.Size),
		m.Notes,
		petDomain.PetStatus(m.Status),
		m.MergedIntoID,
		m.Version,
		m.CreatedAt, m.UpdatedAt,
	)
}
