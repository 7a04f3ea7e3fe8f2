package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"profile-service/internal/events"
	"profile-service/internal/model"
	"profile-service/internal/repository"
	"profile-service/internal/storage"
)

var (
	ErrUploadFailed = errors.New("could not upload asset to the object store")
	ErrDeleteFailed = errors.New("could not delete asset from the object store")
	ErrAssetMissing = errors.New("no object exists at the referenced path")
)

const cleanupTimeout = 30 * time.Second

// AssetService orchestrates the image lifecycle: validate, upload, retire
// the previous asset, persist the new reference. One pass per call, no
// retries.
type AssetService interface {
	ReplaceImage(ctx context.Context, ownerID uuid.UUID, kind model.ImageKind, file io.Reader, contentType string, size int64) (*model.Profile, storage.AssetRef, error)
	PromoteImage(ctx context.Context, ownerID uuid.UUID, kind model.ImageKind, assetURL string) (*model.Profile, storage.AssetRef, error)
	DeleteImage(ctx context.Context, ownerID uuid.UUID, kind model.ImageKind, assetURL string) (*model.Profile, error)
}

type assetService struct {
	store     storage.Store
	profiles  repository.ProfileRepository
	validator *ImageValidator
	publisher events.EventPublisher

	// Calls for the same owner and kind are serialized so a replace's
	// cleanup cannot race another replace's fresh upload.
	locks keyedMutex

	// dispatch runs best-effort cleanup decoupled from the request path.
	dispatch func(func())
}

func NewAssetService(store storage.Store, profiles repository.ProfileRepository, validator *ImageValidator, publisher events.EventPublisher) AssetService {
	return &assetService{
		store:     store,
		profiles:  profiles,
		validator: validator,
		publisher: publisher,
		dispatch:  func(f func()) { go f() },
	}
}

// ReplaceImage uploads a new asset and makes it the authoritative image for
// the kind. The previous asset is deleted best-effort: a failed cleanup is
// logged and published, never surfaced to the caller. A failed reference
// write after a successful upload leaves an orphan in the store; no
// compensating delete is attempted.
func (s *assetService) ReplaceImage(ctx context.Context, ownerID uuid.UUID, kind model.ImageKind, file io.Reader, contentType string, size int64) (*model.Profile, storage.AssetRef, error) {
	if err := s.validator.Validate(contentType, size); err != nil {
		return nil, storage.AssetRef{}, err
	}

	unlock := s.locks.Lock(ownerID.String() + "/" + string(kind))
	defer unlock()

	var previousURL *string
	current, err := s.profiles.FindByOwnerID(ctx, ownerID)
	if err != nil && !errors.Is(err, repository.ErrProfileNotFound) {
		return nil, storage.AssetRef{}, fmt.Errorf("read profile: %w", err)
	}
	if current != nil {
		previousURL = current.ImageURL(kind)
	}

	ref, err := s.store.Put(ctx, ownerID, kind, file, size, contentType)
	if err != nil {
		return nil, storage.AssetRef{}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	if previousURL != nil {
		s.retirePrevious(ownerID, kind, *previousURL)
	}

	profile, err := s.profiles.SetImageURL(ctx, ownerID, kind, &ref.URL)
	if err != nil {
		slog.Error("Uploaded asset left orphaned: profile reference write failed",
			"owner_id", ownerID, "kind", kind, "path", ref.Path, "error", err)
		s.publisher.PublishAssetOrphaned(ref.Bucket, ref.Path, "reference write failed")
		return nil, storage.AssetRef{}, fmt.Errorf("persist image reference: %w", err)
	}

	s.publisher.PublishProfileUpdated(ownerID)

	return profile, ref, nil
}

// PromoteImage makes an asset that was uploaded directly to the store, via
// a presigned URL, the authoritative image for the kind. The object already
// exists; it is checked against the same media-type and size limits as a
// proxied upload, then the previous asset is retired and the reference
// persisted, exactly as ReplaceImage does after its upload step.
func (s *assetService) PromoteImage(ctx context.Context, ownerID uuid.UUID, kind model.ImageKind, assetURL string) (*model.Profile, storage.AssetRef, error) {
	ref, err := s.store.RefFromURL(assetURL)
	if err != nil {
		return nil, storage.AssetRef{}, err
	}
	if !strings.HasPrefix(ref.Path, ownerID.String()+"/") {
		return nil, storage.AssetRef{}, storage.ErrInvalidReference
	}

	size, contentType, err := s.store.Stat(ctx, ref.Path)
	if err != nil {
		return nil, storage.AssetRef{}, fmt.Errorf("%w: %v", ErrAssetMissing, err)
	}
	if err := s.validator.Validate(contentType, size); err != nil {
		return nil, storage.AssetRef{}, err
	}

	unlock := s.locks.Lock(ownerID.String() + "/" + string(kind))
	defer unlock()

	current, err := s.profiles.FindByOwnerID(ctx, ownerID)
	if err != nil && !errors.Is(err, repository.ErrProfileNotFound) {
		return nil, storage.AssetRef{}, fmt.Errorf("read profile: %w", err)
	}
	if current != nil {
		if previousURL := current.ImageURL(kind); previousURL != nil && *previousURL != ref.URL {
			s.retirePrevious(ownerID, kind, *previousURL)
		}
	}

	profile, err := s.profiles.SetImageURL(ctx, ownerID, kind, &ref.URL)
	if err != nil {
		slog.Error("Uploaded asset left orphaned: profile reference write failed",
			"owner_id", ownerID, "kind", kind, "path", ref.Path, "error", err)
		s.publisher.PublishAssetOrphaned(ref.Bucket, ref.Path, "reference write failed")
		return nil, storage.AssetRef{}, fmt.Errorf("persist image reference: %w", err)
	}

	s.publisher.PublishProfileUpdated(ownerID)

	return profile, ref, nil
}

// retirePrevious deletes the superseded asset off the request path. The
// outcome is logged on its own; the replace operation has already committed
// to the new asset.
func (s *assetService) retirePrevious(ownerID uuid.UUID, kind model.ImageKind, url string) {
	oldRef, err := s.store.RefFromURL(url)
	if err != nil {
		slog.Warn("Stored image URL does not map to the bucket, skipping cleanup",
			"owner_id", ownerID, "kind", kind, "url", url)
		return
	}

	s.dispatch(func() {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()

		if err := s.store.Delete(ctx, oldRef.Path); err != nil {
			slog.Error("Failed to delete superseded asset",
				"owner_id", ownerID, "kind", kind, "path", oldRef.Path, "error", err)
			s.publisher.PublishAssetOrphaned(oldRef.Bucket, oldRef.Path, "cleanup delete failed")
			return
		}

		slog.Info("Deleted superseded asset", "owner_id", ownerID, "kind", kind, "path", oldRef.Path)
	})
}

// DeleteImage removes the asset and clears the profile reference. The URL
// must reference the image bucket and the caller's own key prefix.
func (s *assetService) DeleteImage(ctx context.Context, ownerID uuid.UUID, kind model.ImageKind, assetURL string) (*model.Profile, error) {
	ref, err := s.store.RefFromURL(assetURL)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(ref.Path, ownerID.String()+"/") {
		return nil, storage.ErrInvalidReference
	}

	unlock := s.locks.Lock(ownerID.String() + "/" + string(kind))
	defer unlock()

	if err := s.store.Delete(ctx, ref.Path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}

	profile, err := s.profiles.SetImageURL(ctx, ownerID, kind, nil)
	if err != nil {
		return nil, fmt.Errorf("clear image reference: %w", err)
	}

	s.publisher.PublishProfileUpdated(ownerID)

	return profile, nil
}
