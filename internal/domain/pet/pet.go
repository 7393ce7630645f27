package pet

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pawprint-grooming/service-booking/internal/domain"
)

// PetStatus represents the lifecycle state of a pet record.
type PetStatus string

const (
	PetStatusActive PetStatus = "active"
	PetStatusMerged PetStatus = "merged"
)

// Size is the grooming size class of a pet.
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// IsValid returns true if the size is a recognized class.
func (s Size) IsValid() bool {
	switch s {
	case SizeSmall, SizeMedium, SizeLarge:
		return true
	}
	return false
}

// ParseSize converts a string to a Size. An empty string yields the medium default.
func ParseSize(s string) (Size, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SizeMedium, nil
	}
	size := Size(s)
	if !size.IsValid() {
		return "", fmt.Errorf("invalid pet size: %s", s)
	}
	return size, nil
}

// Pet belongs to exactly one customer for its whole life. Within that customer
// it is identified by the (name, breed) pair.
type Pet struct {
	id           uuid.UUID
	ownerID      uuid.UUID
	name         string
	breed        string
	size         Size
	notes        string
	status       PetStatus
	mergedIntoID *uuid.UUID
	version      int64
	createdAt    time.Time
	updatedAt    time.Time
}

// NewPet creates a new active pet for the given owner.
func NewPet(ownerID uuid.UUID, name, breed string, size Size, notes string) (*Pet, error) {
	if ownerID == uuid.Nil {
		return nil, domain.NewValidationError("owner ID is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("pet name is required")
	}
	if size == "" {
		size = SizeMedium
	}
	if !size.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid pet size: %s", size))
	}

	now := time.Now().UTC()
	return &Pet{
		id:        uuid.New(),
		ownerID:   ownerID,
		name:      name,
		breed:     strings.TrimSpace(breed),
		size:      size,
		notes:     notes,
		status:    PetStatusActive,
		version:   1,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstruct rebuilds a Pet from persistence data (no validation).
func Reconstruct(
	id, ownerID uuid.UUID,
	name, breed string,
	size Size,
	notes string,
	status PetStatus,
	mergedIntoID *uuid.UUID,
	version int64,
	createdAt, updatedAt time.Time,
) *Pet {
	return &Pet{
		id:           id,
		ownerID:      ownerID,
		name:         name,
		breed:        breed,
		size:         size,
		notes:        notes,
		status:       status,
		mergedIntoID: mergedIntoID,
		version:      version,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

// --- Getters ---

func (p *Pet) ID() uuid.UUID            { return p.id }
func (p *Pet) OwnerID() uuid.UUID       { return p.ownerID }
func (p *Pet) Name() string             { return p.name }
func (p *Pet) Breed() string            { return p.breed }
func (p *Pet) Size() Size               { return p.size }
func (p *Pet) Notes() string            { return p.notes }
func (p *Pet) Status() PetStatus        { return p.status }
func (p *Pet) MergedIntoID() *uuid.UUID { return p.mergedIntoID }
func (p *Pet) Version() int64           { return p.version }
func (p *Pet) CreatedAt() time.Time     { return p.createdAt }
func (p *Pet) UpdatedAt() time.Time     { return p.updatedAt }

// --- Behavior ---

// IsOwnedBy checks if the pet belongs to the given owner.
func (p *Pet) IsOwnedBy(ownerID uuid.UUID) bool {
	return p.ownerID == ownerID
}

// IsActive returns true if the pet has not been merged away.
func (p *Pet) IsActive() bool {
	return p.status == PetStatusActive
}

// Matches reports an exact (name, breed) match after trimming surrounding
// whitespace. The comparison is case-sensitive.
func (p *Pet) Matches(name, breed string) bool {
	return p.name == strings.TrimSpace(name) && p.breed == strings.TrimSpace(breed)
}

// MergeInto retires this pet in favour of target. Both must belong to the
// same owner and target must still be active.
func (p *Pet) MergeInto(target *Pet) error {
	if p.id == target.id {
		return domain.NewValidationError("cannot merge a pet into itself")
	}
	if p.ownerID != target.ownerID {
		return domain.NewForbiddenError("pets belong to different customers")
	}
	if !p.IsActive() {
		return domain.NewInvalidTransitionError(string(p.status), string(PetStatusMerged))
	}
	if !target.IsActive() {
		return domain.NewValidationError("merge target has itself been merged")
	}
	id := target.id
	p.status = PetStatusMerged
	p.mergedIntoID = &id
	p.version++
	p.updatedAt = time.Now().UTC()
	return nil
}
