package service

import "errors"

var (
	ErrInvalidMediaType = errors.New("media type is not an allowed image format")
	ErrTooLarge         = errors.New("file exceeds the maximum allowed size")
)

// DefaultMaxUploadBytes is 5 MiB.
const DefaultMaxUploadBytes int64 = 5 * 1024 * 1024

var defaultAllowedTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/webp"}

// ImageValidator checks a candidate upload's declared media type and size.
// Pure and deterministic, no side effects.
type ImageValidator struct {
	allowed  map[string]struct{}
	maxBytes int64
}

func NewImageValidator(allowedTypes []string, maxBytes int64) *ImageValidator {
	if len(allowedTypes) == 0 {
		allowedTypes = defaultAllowedTypes
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}

	allowed := make(map[string]struct{}, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[t] = struct{}{}
	}

	return &ImageValidator{allowed: allowed, maxBytes: maxBytes}
}

func (v *ImageValidator) Validate(mediaType string, sizeBytes int64) error {
	if _, ok := v.allowed[mediaType]; !ok {
		return ErrInvalidMediaType
	}
	if sizeBytes > v.maxBytes {
		return ErrTooLarge
	}
	return nil
}

func (v *ImageValidator) MaxBytes() int64 {
	return v.maxBytes
}
