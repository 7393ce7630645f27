package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/pawprint-grooming/service-booking/internal/domain"
	"github.com/pawprint-grooming/service-booking/internal/domain/customer"
)

// CustomerRepository is a map-backed customer.Repository with a unique email index.
type CustomerRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*customer.Customer
	byEmail map[string]uuid.UUID
}

func NewCustomerRepository() *CustomerRepository {
	return &CustomerRepository{
		byID:    make(map[uuid.UUID]*customer.Customer),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (r *CustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return nil, domain.NewNotFoundError("Customer", id.String())
	}
	return cloneCustomer(c), nil
}

func (r *CustomerRepository) FindByEmail(ctx context.Context, email string) (*customer.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[customer.NormalizeEmail(email)]
	if !ok {
		return nil, domain.NewNotFoundError("Customer", email)
	}
	return cloneCustomer(r.byID[id]), nil
}

func (r *CustomerRepository) Save(ctx context.Context, c *customer.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[c.Email()]; exists {
		return customer.ErrDuplicateEmail
	}
	r.byID[c.ID()] = cloneCustomer(c)
	r.byEmail[c.Email()] = c.ID()
	return nil
}

func (r *CustomerRepository) Update(ctx context.Context, c *customer.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[c.ID()]
	if !ok {
		return domain.NewNotFoundError("Customer", c.ID().String())
	}
	if stored.Version() != c.Version()-1 {
		return domain.NewConflictError("customer was modified by another transaction")
	}
	r.byID[c.ID()] = cloneCustomer(c)
	return nil
}
