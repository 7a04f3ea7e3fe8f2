package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRefFromURL_Valid(t *testing.T) {
	ref, err := refFromURL("http://minio:9000/user-images/u1/profile-1000.png", "user-images", "http://minio:9000")
	require.NoError(t, err)
	require.Equal(t, "user-images", ref.Bucket)
	require.Equal(t, "u1/profile-1000.png", ref.Path)
	require.Equal(t, "http://minio:9000/user-images/u1/profile-1000.png", ref.URL)
}

func TestRefFromURL_MissingBucketMarker(t *testing.T) {
	_, err := refFromURL("http://example.com/somewhere/else.png", "user-images", "http://minio:9000")
	require.ErrorIs(t, err, ErrInvalidReference)
}

func TestRefFromURL_EmptyPath(t *testing.T) {
	_, err := refFromURL("http://minio:9000/user-images/", "user-images", "http://minio:9000")
	require.ErrorIs(t, err, ErrInvalidReference)
}

func TestExtensionFor(t *testing.T) {
	require.Equal(t, "png", ExtensionFor("image/png"))
	require.Equal(t, "webp", ExtensionFor("image/webp"))
	require.Equal(t, "jpg", ExtensionFor("image/jpeg"))
	require.Equal(t, "jpg", ExtensionFor("image/jpg"))
}
