package service

import (
	"context"

	"github.com/google/uuid"

	"profile-service/internal/events"
	"profile-service/internal/model"
	"profile-service/internal/repository"
)

type UpdateProfileDTO struct {
	Name    *string
	Country *string
	Bio     *string
}

type ProfileService interface {
	GetProfile(ctx context.Context, ownerID uuid.UUID) (*model.Profile, error)
	UpdateProfile(ctx context.Context, ownerID uuid.UUID, dto UpdateProfileDTO) (*model.Profile, error)
}

type profileService struct {
	profiles  repository.ProfileRepository
	publisher events.EventPublisher
}

func NewProfileService(profiles repository.ProfileRepository, publisher events.EventPublisher) ProfileService {
	return &profileService{profiles: profiles, publisher: publisher}
}

func (s *profileService) GetProfile(ctx context.Context, ownerID uuid.UUID) (*model.Profile, error) {
	return s.profiles.FindByOwnerID(ctx, ownerID)
}

func (s *profileService) UpdateProfile(ctx context.Context, ownerID uuid.UUID, dto UpdateProfileDTO) (*model.Profile, error) {
	profile, err := s.profiles.Upsert(ctx, ownerID, repository.ProfilePatch{
		Name:    dto.Name,
		Country: dto.Country,
		Bio:     dto.Bio,
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishProfileUpdated(ownerID)

	return profile, nil
}
