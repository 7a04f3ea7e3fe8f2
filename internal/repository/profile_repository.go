package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"profile-service/internal/model"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfilePatch carries the user-editable fields. A nil field is left
// untouched by Upsert.
type ProfilePatch struct {
	Email   *string
	Name    *string
	Country *string
	Bio     *string
}

type ProfileRepository interface {
	FindByOwnerID(ctx context.Context, ownerID uuid.UUID) (*model.Profile, error)
	FindByEmail(ctx context.Context, email string) (*model.Profile, error)
	Upsert(ctx context.Context, ownerID uuid.UUID, patch ProfilePatch) (*model.Profile, error)
	SetImageURL(ctx context.Context, ownerID uuid.UUID, kind model.ImageKind, url *string) (*model.Profile, error)
}

type postgresProfileRepository struct {
	db *sqlx.DB
}

func NewPostgresProfileRepository(db *sqlx.DB) ProfileRepository {
	return &postgresProfileRepository{db: db}
}

const profileColumns = `id, owner_id, email, name, country, bio, profile_image_url, banner_image_url, created_at, updated_at`

func (r *postgresProfileRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID) (*model.Profile, error) {
	var profile model.Profile
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE owner_id = $1`
	err := r.db.GetContext(ctx, &profile, query, ownerID)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	return &profile, nil
}

func (r *postgresProfileRepository) FindByEmail(ctx context.Context, email string) (*model.Profile, error) {
	var profile model.Profile
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE email = $1`
	err := r.db.GetContext(ctx, &profile, query, email)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	return &profile, nil
}

// Upsert creates the row on first write and merges non-nil patch fields on
// conflict. The merge relies on the store's native atomic upsert, so
// concurrent writers are last-writer-wins per field.
func (r *postgresProfileRepository) Upsert(ctx context.Context, ownerID uuid.UUID, patch ProfilePatch) (*model.Profile, error) {
	var profile model.Profile
	query := `
		INSERT INTO profiles (owner_id, email, name, country, bio)
		VALUES ($1, COALESCE($2, ''), $3, $4, $5)
		ON CONFLICT (owner_id) DO UPDATE SET
			email = COALESCE($2, profiles.email),
			name = COALESCE($3, profiles.name),
			country = COALESCE($4, profiles.country),
			bio = COALESCE($5, profiles.bio),
			updated_at = now()
		RETURNING ` + profileColumns
	err := r.db.GetContext(ctx, &profile, query, ownerID, patch.Email, patch.Name, patch.Country, patch.Bio)

	if err != nil {
		return nil, err
	}

	return &profile, nil
}

// SetImageURL writes the kind-specific image column. A nil url clears it.
func (r *postgresProfileRepository) SetImageURL(ctx context.Context, ownerID uuid.UUID, kind model.ImageKind, url *string) (*model.Profile, error) {
	column := "profile_image_url"
	if kind == model.KindBanner {
		column = "banner_image_url"
	}

	var profile model.Profile
	query := `
		INSERT INTO profiles (owner_id, email, ` + column + `)
		VALUES ($1, '', $2)
		ON CONFLICT (owner_id) DO UPDATE SET
			` + column + ` = $2,
			updated_at = now()
		RETURNING ` + profileColumns
	err := r.db.GetContext(ctx, &profile, query, ownerID, url)

	if err != nil {
		return nil, err
	}

	return &profile, nil
}
