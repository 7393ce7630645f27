package pet

import (
	"context"

	"github.com/google/uuid"
)

// PetRepository defines persistence operations for pets.
type PetRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Pet, error)
	// FindByOwnerID returns every pet of the owner, merged ones included.
	FindByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]*Pet, error)
	Save(ctx context.Context, pet *Pet) error
	Update(ctx context.Context, pet *Pet) error
}
