package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawprint-grooming/service-booking/internal/domain"
	customerDomain "github.com/pawprint-grooming/service-booking/internal/domain/customer"
)

// CustomerModel is the GORM model for the customers table.
type CustomerModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Email            string          `gorm:"uniqueIndex:idx_customers_email;not null;size:320"`
	GivenName        string          `gorm:"size:100;not null"`
	FamilyName       string          `gorm:"size:100;not null"`
	Phone            string          `gorm:"size:40"`
	Address          json.RawMessage `gorm:"type:jsonb"`
	EmergencyContact json.RawMessage `gorm:"type:jsonb"`
	MarketingConsent bool            `gorm:"not null;default:false"`
	Version          int64           `gorm:"not null;default:1"`
	CreatedAt        time.Time       `gorm:"not null"`
	UpdatedAt        time.Time       `gorm:"not null"`
}

func (CustomerModel) TableName() string { return "customers" }

// GormCustomerRepository implements customer.Repository using GORM.
type GormCustomerRepository struct {
	db *gorm.DB
}

func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

func (r *GormCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*customerDomain.Customer, error) {
	var model CustomerModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Customer", id.String())
		}
		return nil, storageErr("find customer by id", err)
	}
	return toCustomerDomain(&model)
}

func (r *GormCustomerRepository) FindByEmail(ctx context.Context, email string) (*customerDomain.Customer, error) {
	email = customerDomain.NormalizeEmail(email)
	var model CustomerModel
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Customer", email)
		}
		return nil, storageErr("find customer by email", err)
	}
	return toCustomerDomain(&model)
}

func (r *GormCustomerRepository) Save(ctx context.Context, c *customerDomain.Customer) error {
	model, err := toCustomerModel(c)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if uniqueViolation(err) == constraintCustomerEmail {
			return customerDomain.ErrDuplicateEmail
		}
		return storageErr("save customer", err)
	}
	return nil
}

func (r *GormCustomerRepository) Update(ctx context.Context, c *customerDomain.Customer) error {
	model, err := toCustomerModel(c)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&CustomerModel{}).
		Where("id = ? AND version = ?", model.ID, c.Version()-1).
		Updates(map[string]interface{}{
			"given_name":        model.GivenName,
			"family_name":       model.FamilyName,
			"phone":             model.Phone,
			"address":           model.Address,
			"emergency_contact": model.EmergencyContact,
			"marketing_consent": model.MarketingConsent,
			"version":           model.Version,
			"updated_at":        model.UpdatedAt,
		})
	if result.Error != nil {
		return storageErr("update customer", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("customer was modified by another transaction")
	}
	return nil
}

// --- Conversions ---

func toCustomerModel(c *customerDomain.Customer) (*CustomerModel, error) {
	var addr, ec json.RawMessage
	if c.Address() != nil {
		data, err := json.Marshal(c.Address())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal address: %w", err)
		}
		addr = data
	}
	if c.EmergencyContact() != nil {
		data, err := json.Marshal(c.EmergencyContact())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal emergency contact: %w", err)
		}
		ec = data
	}
	return &CustomerModel{
		ID:               c.ID(),
		Email:            c.Email(),
		GivenName:        c.GivenName(),
		FamilyName:       c.FamilyName(),
		Phone:            c.Phone(),
		Address:          addr,
		EmergencyContact: ec,
		MarketingConsent: c.MarketingConsent(),
		Version:          c.Version(),
		CreatedAt:        c.CreatedAt(),
		UpdatedAt:        c.UpdatedAt(),
	}, nil
}

func toCustomerDomain(m *CustomerModel) (*customerDomain.Customer, error) {
	var addr *customerDomain.Address
	if len(m.Address) > 0 && string(m.Address) != "null" {
		addr = &customerDomain.Address{}
		if err := json.Unmarshal(m.Address, addr); err != nil {
			return nil, fmt.Errorf("failed to unmarshal address: %w", err)
		}
	}
	var ec *customerDomain.EmergencyContact
	if len(m.EmergencyContact) > 0 && string(m.EmergencyContact) != "null" {
		ec = &customerDomain.EmergencyContact{}
		if err := json.Unmarshal(m.EmergencyContact, ec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal emergency contact: %w", err)
		}
	}
	return customerDomain.Reconstruct(
		m.ID, m.Email, m.GivenName, m.FamilyName, m.Phone,
		addr, ec, m.MarketingConsent, m.Version, m.CreatedAt, m.UpdatedAt,
	), nil
}
