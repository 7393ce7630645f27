package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/pawprint-grooming/service-booking/internal/domain"
	"github.com/pawprint-grooming/service-booking/internal/domain/pet"
)

// PetRepository is a map-backed pet.PetRepository.
type PetRepository struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*pet.Pet
}

func NewPetRepository() *PetRepository {
	return &PetRepository{byID: make(map[uuid.UUID]*pet.Pet)}
}

func (r *PetRepository) FindByID(ctx context.Context, id uuid.UUID) (*pet.Pet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return nil, domain.NewNotFoundError("Pet", id.String())
	}
	return clonePet(p), nil
}

func (r *PetRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]*pet.Pet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*pet.Pet, 0)
	for _, p := range r.byID {
		if p.OwnerID() == ownerID {
			out = append(out, clonePet(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().Before(out[j].CreatedAt()) })
	return out, nil
}

func (r *PetRepository) Save(ctx context.Context, p *pet.Pet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[p.ID()]; exists {
		return domain.NewConflictError("pet already exists")
	}
	r.byID[p.ID()] = clonePet(p)
	return nil
}

func (r *PetRepository) Update(ctx context.Context, p *pet.Pet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[p.ID()]
	if !ok {
		return domain.NewNotFoundError("Pet", p.ID().String())
	}
	if stored.Version() != p.Version()-1 {
		return domain.NewConflictError("pet was modified by another transaction")
	}
	r.byID[p.ID()] = clonePet(p)
	return nil
}
