package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pawprint-grooming/service-booking/internal/domain"
	"github.com/pawprint-grooming/service-booking/internal/domain/customer"
	"github.com/pawprint-grooming/service-booking/internal/domain/pet"
	"github.com/pawprint-grooming/service-booking/internal/platform/validation"
)

// maxMergeHops bounds the walk along merged_into links.
const maxMergeHops = 8

// CustomerInput is the owner block of a booking or lead.
type CustomerInput struct {
	Email            string
	GivenName        string
	FamilyName       string
	Phone            string
	Address          *customer.Address
	EmergencyContact *customer.EmergencyContact
	MarketingConsent bool
}

// PetInput identifies a pet within a customer's household.
type PetInput struct {
	CustomerID uuid.UUID
	Name       string
	Breed      string
	Size       string
	Notes      string
}

// UpdateCustomerRequest is an administrative edit. Omitted fields are unchanged.
type UpdateCustomerRequest struct {
	GivenName        *string                    `json:"given_name" validate:"omitempty,max=100"`
	FamilyName       *string                    `json:"family_name" validate:"omitempty,max=100"`
	Phone            *string                    `json:"phone" validate:"omitempty,max=40"`
	Address          *customer.Address          `json:"address"`
	EmergencyContact *customer.EmergencyContact `json:"emergency_contact"`
	MarketingConsent *bool                      `json:"marketing_consent"`
}

// LeadRequest is a contact-form submission that is not yet a booking.
type LeadRequest struct {
	Owner            OwnerRequest `json:"owner"`
	PetName          string       `json:"pet_name" validate:"max=100"`
	Message          string       `json:"message" validate:"required,max=2000"`
	MarketingConsent bool         `json:"marketing_consent"`
}

// LeadDTO acknowledges a lead.
type LeadDTO struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Email      string    `json:"email"`
}

// LeadSubmittedEvent is the payload of lead.submitted.
type LeadSubmittedEvent struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	PetName    string    `json:"pet_name,omitempty"`
	Message    string    `json:"message"`
}

// PartyRegistry resolves customers and pets, creating them on first sight.
type PartyRegistry struct {
	customers customer.Repository
	pets      pet.PetRepository
	notifier  Notifier
	logger    *zap.Logger
}

func NewPartyRegistry(customers customer.Repository, pets pet.PetRepository, notifier Notifier, logger *zap.Logger) *PartyRegistry {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &PartyRegistry{customers: customers, pets: pets, notifier: notifier, logger: logger}
}

// ResolveCustomer returns the customer with in.Email, creating it if absent.
// An existing record is returned untouched even if the other fields differ.
func (r *PartyRegistry) ResolveCustomer(ctx context.Context, in CustomerInput) (*customer.Customer, error) {
	email := customer.NormalizeEmail(in.Email)

	existing, err := r.customers.FindByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !domain.IsNotFound(err) {
		return nil, err
	}

	c, err := customer.NewCustomer(email, in.GivenName, in.FamilyName, in.Phone, in.Address, in.EmergencyContact, in.MarketingConsent)
	if err != nil {
		return nil, err
	}

	if err := r.customers.Save(ctx, c); err != nil {
		if errors.Is(err, customer.ErrDuplicateEmail) {
			// Lost a first-booking race; the winner's row is the customer.
			return r.customers.FindByEmail(ctx, email)
		}
		return nil, err
	}

	r.logger.Info("customer created", zap.String("customer_id", c.ID().String()))
	return c, nil
}

// ResolvePet returns the customer's pet matching (name, breed), creating it if absent.
// A merged match resolves to the pet it was merged into.
func (r *PartyRegistry) ResolvePet(ctx context.Context, in PetInput) (*pet.Pet, error) {
	pets, err := r.pets.FindByOwnerID(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}

	var match *pet.Pet
	for _, p := range pets {
		if !p.Matches(in.Name, in.Breed) {
			continue
		}
		if p.IsActive() {
			return p, nil
		}
		if match == nil {
			match = p
		}
	}
	if match != nil {
		return followMerge(match, pets)
	}

	size, err := pet.ParseSize(in.Size)
	if err != nil {
		return nil, domain.NewFieldValidationError(map[string]string{"pet.size": err.Error()})
	}
	p, err := pet.NewPet(in.CustomerID, in.Name, in.Breed, size, in.Notes)
	if err != nil {
		return nil, err
	}
	if err := r.pets.Save(ctx, p); err != nil {
		return nil, err
	}

	r.logger.Info("pet created",
		zap.String("pet_id", p.ID().String()),
		zap.String("customer_id", in.CustomerID.String()),
	)
	return p, nil
}

func followMerge(p *pet.Pet, household []*pet.Pet) (*pet.Pet, error) {
	byID := make(map[uuid.UUID]*pet.Pet, len(household))
	for _, h := range household {
		byID[h.ID()] = h
	}
	current := p
	for i := 0; i < maxMergeHops && !current.IsActive(); i++ {
		next := current.MergedIntoID()
		if next == nil {
			break
		}
		target, ok := byID[*next]
		if !ok {
			return nil, domain.NewNotFoundError("Pet", next.String())
		}
		current = target
	}
	if !current.IsActive() {
		return nil, fmt.Errorf("pet %s has no active merge target", p.ID())
	}
	return current, nil
}

// GetCustomer returns a customer by id.
func (r *PartyRegistry) GetCustomer(ctx context.Context, id uuid.UUID) (*CustomerDTO, error) {
	c, err := r.customers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result := toCustomerDTO(c)
	return &result, nil
}

// UpdateCustomer is the only path that changes an existing customer.
func (r *PartyRegistry) UpdateCustomer(ctx context.Context, id uuid.UUID, req UpdateCustomerRequest) (*CustomerDTO, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	c, err := r.customers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Apply(customer.Changes{
		GivenName:        req.GivenName,
		FamilyName:       req.FamilyName,
		Phone:            req.Phone,
		Address:          req.Address,
		EmergencyContact: req.EmergencyContact,
		MarketingConsent: req.MarketingConsent,
	})
	if err := r.customers.Update(ctx, c); err != nil {
		return nil, err
	}

	r.logger.Info("customer updated", zap.String("customer_id", id.String()))
	result := toCustomerDTO(c)
	return &result, nil
}

// SubmitLead records the enquirer as a customer and forwards the lead. The
// consent flag only applies when the lead creates the customer.
func (r *PartyRegistry) SubmitLead(ctx context.Context, req LeadRequest) (*LeadDTO, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	c, err := r.ResolveCustomer(ctx, req.Owner.toInput(req.MarketingConsent))
	if err != nil {
		return nil, err
	}

	r.notifier.Enqueue(ctx, Notification{
		Topic: TopicLeadEvents,
		Type:  EventLeadSubmitted,
		Data: LeadSubmittedEvent{
			CustomerID: c.ID(),
			Email:      c.Email(),
			Name:       c.FullName(),
			Phone:      c.Phone(),
			PetName:    req.PetName,
			Message:    req.Message,
		},
	})

	return &LeadDTO{CustomerID: c.ID(), Email: c.Email()}, nil
}
