// Package storage wraps the external S3-compatible object store holding
// user images.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"profile-service/internal/model"
)

var ErrInvalidReference = errors.New("url does not reference the image bucket")

// AssetRef identifies an object in the store. Callers persist URL and can
// recover Path from it, but new code should carry the full ref instead of
// re-parsing URLs.
type AssetRef struct {
	Bucket string `json:"bucket"`
	Path   string `json:"path"`
	URL    string `json:"url"`
}

type Store interface {
	// Put streams an object under a fresh {ownerID}/{kind}-{timestamp}.{ext}
	// key. Keys are unique per call, so concurrent uploads never collide.
	Put(ctx context.Context, ownerID uuid.UUID, kind model.ImageKind, r io.Reader, size int64, contentType string) (AssetRef, error)
	// Delete removes an object. Deleting an absent key is a success.
	Delete(ctx context.Context, path string) error
	// Stat reports the stored object's size and content type.
	Stat(ctx context.Context, path string) (size int64, contentType string, err error)
	// PublicURL derives the browser-accessible URL for a key. No network call.
	PublicURL(path string) string
	// RefFromURL recovers the structured ref from a stored URL. Returns
	// ErrInvalidReference when the URL does not contain the bucket marker.
	RefFromURL(url string) (AssetRef, error)
}

// refFromURL locates "/{bucket}/" in the URL and takes everything after it
// as the object key.
func refFromURL(rawURL, bucket, endpoint string) (AssetRef, error) {
	marker := "/" + bucket + "/"
	idx := strings.Index(rawURL, marker)
	if idx < 0 {
		return AssetRef{}, ErrInvalidReference
	}

	path := rawURL[idx+len(marker):]
	if path == "" {
		return AssetRef{}, ErrInvalidReference
	}

	return AssetRef{
		Bucket: bucket,
		Path:   path,
		URL:    fmt.Sprintf("%s/%s/%s", endpoint, bucket, path),
	}, nil
}

// ExtensionFor maps an allowed media type to the object-key extension.
func ExtensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	default:
		return "jpg"
	}
}
