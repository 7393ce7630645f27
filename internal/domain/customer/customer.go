package customer

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pawprint-grooming/service-booking/internal/domain"
)

// Address is an optional postal address.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

// EmergencyContact is a person to call when the owner cannot be reached.
type EmergencyContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Customer is the aggregate root for a pet owner. The normalized email is its identity.
type Customer struct {
	id               uuid.UUID
	email            string
	givenName        string
	familyName       string
	phone            string
	address          *Address
	emergencyContact *EmergencyContact
	marketingConsent bool
	version          int64
	createdAt        time.Time
	updatedAt        time.Time
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewCustomer creates a customer. The email is normalized before storage.
func NewCustomer(
	email, givenName, familyName, phone string,
	address *Address,
	emergencyContact *EmergencyContact,
	marketingConsent bool,
) (*Customer, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, domain.NewValidationError("customer email is required")
	}

	now := time.Now().UTC()
	return &Customer{
		id:               uuid.New(),
		email:            email,
		givenName:        strings.TrimSpace(givenName),
		familyName:       strings.TrimSpace(familyName),
		phone:            strings.TrimSpace(phone),
		address:          address,
		emergencyContact: emergencyContact,
		marketingConsent: marketingConsent,
		version:          1,
		createdAt:        now,
		updatedAt:        now,
	}, nil
}

// Reconstruct rebuilds a Customer from persistence data (no validation).
func Reconstruct(
	id uuid.UUID,
	email, givenName, familyName, phone string,
	address *Address,
	emergencyContact *EmergencyContact,
	marketingConsent bool,
	version int64,
	createdAt, updatedAt time.Time,
) *Customer {
	return &Customer{
		id:               id,
		email:            email,
		givenName:        givenName,
		familyName:       familyName,
		phone:            phone,
		address:          address,
		emergencyContact: emergencyContact,
		marketingConsent: marketingConsent,
		version:          version,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

func (c *Customer) ID() uuid.UUID                       { return c.id }
func (c *Customer) Email() string                       { return c.email }
func (c *Customer) GivenName() string                   { return c.givenName }
func (c *Customer) FamilyName() string                  { return c.familyName }
func (c *Customer) Phone() string                       { return c.phone }
func (c *Customer) Address() *Address                   { return c.address }
func (c *Customer) EmergencyContact() *EmergencyContact { return c.emergencyContact }
func (c *Customer) MarketingConsent() bool              { return c.marketingConsent }
func (c *Customer) Version() int64                      { return c.version }
func (c *Customer) CreatedAt() time.Time                { return c.createdAt }
func (c *Customer) UpdatedAt() time.Time                { return c.updatedAt }

// FullName joins given and family names.
func (c *Customer) FullName() string {
	return strings.TrimSpace(c.givenName + " " + c.familyName)
}

// Changes lists the administrative edits to apply. Nil fields are left alone.
type Changes struct {
	GivenName        *string
	FamilyName       *string
	Phone            *string
	Address          *Address
	EmergencyContact *EmergencyContact
	MarketingConsent *bool
}

// Apply applies administrative edits and bumps the version. The email is
// the customer's identity and is never changed here.
func (c *Customer) Apply(ch Changes) {
	if ch.GivenName != nil {
		c.givenName = strings.TrimSpace(*ch.GivenName)
	}
	if ch.FamilyName != nil {
		c.familyName = strings.TrimSpace(*ch.FamilyName)
	}
	if ch.Phone != nil {
		c.phone = strings.TrimSpace(*ch.Phone)
	}
	if ch.Address != nil {
		c.address = ch.Address
	}
	if ch.EmergencyContact != nil {
		c.emergencyContact = ch.EmergencyContact
	}
	if ch.MarketingConsent != nil {
		c.marketingConsent = *ch.MarketingConsent
	}
	c.version++
	c.updatedAt = time.Now().UTC()
}

// Repository defines persistence operations for customers.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	// FindByEmail looks up by normalized email.
	FindByEmail(ctx context.Context, email string) (*Customer, error)
	// Save inserts a new customer. A clash on email returns ErrDuplicateEmail.
	Save(ctx context.Context, c *Customer) error
	Update(ctx context.Context, c *Customer) error
}
