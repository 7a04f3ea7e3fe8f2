package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ImageKind discriminates the purpose of an uploaded image.
type ImageKind string

const (
	KindProfile ImageKind = "profile"
	KindBanner  ImageKind = "banner"
)

var ErrUnknownImageKind = errors.New("unknown image kind")

func ParseImageKind(s string) (ImageKind, error) {
	switch ImageKind(s) {
	case KindProfile:
		return KindProfile, nil
	case KindBanner:
		return KindBanner, nil
	}
	return "", ErrUnknownImageKind
}

type Profile struct {
	ID              uuid.UUID `db:"id" json:"id"`
	OwnerID         uuid.UUID `db:"owner_id" json:"owner_id"`
	Email           string    `db:"email" json:"email"`
	Name            *string   `db:"name" json:"name,omitempty"`
	Country         *string   `db:"country" json:"country,omitempty"`
	Bio             *string   `db:"bio" json:"bio,omitempty"`
	ProfileImageURL *string   `db:"profile_image_url" json:"profile_image_url,omitempty"`
	BannerImageURL  *string   `db:"banner_image_url" json:"banner_image_url,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// ImageURL returns the stored URL for the given kind, nil when unset.
func (p *Profile) ImageURL(kind ImageKind) *string {
	if kind == KindBanner {
		return p.BannerImageURL
	}
	return p.ProfileImageURL
}
