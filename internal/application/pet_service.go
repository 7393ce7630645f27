package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pawprint-grooming/service-booking/internal/domain"
	petDomain "github.com/pawprint-grooming/service-booking/internal/domain/pet"
)

// MergePetRequest names the pet that survives a merge.
type MergePetRequest struct {
	TargetID string `json:"target_id" validate:"required,uuid"`
}

// PetService implements the operator use cases for pet records.
type PetService struct {
	repo   petDomain.PetRepository
	logger *zap.Logger
}

// NewPetService creates a new PetService.
func NewPetService(repo petDomain.PetRepository, logger *zap.Logger) *PetService {
	return &PetService{repo: repo, logger: logger}
}

// GetPet returns a single pet by ID.
func (s *PetService) GetPet(ctx context.Context, petID uuid.UUID) (*PetDTO, error) {
	pet, err := s.repo.FindByID(ctx, petID)
	if err != nil {
		return nil, err
	}
	result := toPetDTO(pet)
	return &result, nil
}

// ListCustomerPets returns every pet of the customer, merged ones included.
func (s *PetService) ListCustomerPets(ctx context.Context, customerID uuid.UUID) ([]PetDTO, error) {
	pets, err := s.repo.FindByOwnerID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pets: %w", err)
	}
	dtos := make([]PetDTO, len(pets))
	for i, p := range pets {
		dtos[i] = toPetDTO(p)
	}
	return dtos, nil
}

// MergePets folds source into target. Later bookings that match the source's
// (name, breed) resolve to target; existing appointments keep their pet id.
func (s *PetService) MergePets(ctx context.Context, sourceID, targetID uuid.UUID) (*PetDTO, error) {
	if sourceID == targetID {
		return nil, domain.NewValidationError("cannot merge a pet into itself")
	}

	source, err := s.repo.FindByID(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	target, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if err := source.MergeInto(target); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, source); err != nil {
		s.logger.Error("failed to merge pet", zap.Error(err))
		return nil, err
	}

	s.logger.Info("pet merged",
		zap.String("source_id", sourceID.String()),
		zap.String("target_id", targetID.String()),
	)
	result := toPetDTO(source)
	return &result, nil
}
