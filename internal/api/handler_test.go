package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"profile-service/internal/api"
	"profile-service/internal/jwt"
	"profile-service/internal/model"
	"profile-service/internal/repository"
	"profile-service/internal/service"
	"profile-service/internal/storage"
)

type stubProfileService struct {
	profile  *model.Profile
	err      error
	getCalls int
}

func (s *stubProfileService) GetProfile(ctx context.Context, ownerID uuid.UUID) (*model.Profile, error) {
	s.getCalls++
	return s.profile, s.err
}

func (s *stubProfileService) UpdateProfile(ctx context.Context, ownerID uuid.UUID, dto service.UpdateProfileDTO) (*model.Profile, error) {
	return s.profile, s.err
}

type stubAssetService struct {
	profile *model.Profile
	ref     storage.AssetRef
	err     error
}

func (s *stubAssetService) ReplaceImage(ctx context.Context, ownerID uuid.UUID, kind model.ImageKind, file io.Reader, contentType string, size int64) (*model.Profile, storage.AssetRef, error) {
	return s.profile, s.ref, s.err
}

func (s *stubAssetService) PromoteImage(ctx context.Context, ownerID uuid.UUID, kind model.ImageKind, assetURL string) (*model.Profile, storage.AssetRef, error) {
	return s.profile, s.ref, s.err
}

func (s *stubAssetService) DeleteImage(ctx context.Context, ownerID uuid.UUID, kind model.ImageKind, assetURL string) (*model.Profile, error) {
	return s.profile, s.err
}

type stubPresigner struct{}

func (stubPresigner) PresignedUploadURL(ctx context.Context, path string) (string, error) {
	return "http://minio:9000/presigned/" + path, nil
}

func (stubPresigner) PublicURL(path string) string {
	return "http://minio:9000/user-images/" + path
}

func newTestApp(profileSvc service.ProfileService, assetSvc service.AssetService) *fiber.App {
	h := api.NewProfileHandler(profileSvc, assetSvc, stubPresigner{})

	app := fiber.New()
	protected := app.Group("/api", api.AuthMiddleware())
	protected.Get("/profile/:ownerId", h.GetProfile)
	protected.Put("/profile/:ownerId", h.UpdateProfile)
	protected.Post("/upload/image", h.UploadImage)
	protected.Post("/upload/presign", h.GetUploadURL)
	protected.Post("/upload/confirm", h.ConfirmUpload)
	protected.Delete("/delete/image", h.DeleteImage)

	return app
}

func sessionFor(t *testing.T, ownerID uuid.UUID) string {
	t.Helper()
	token, err := jwt.GenerateSessionToken(ownerID, "a@b.com", time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestGetProfile_MissingSession(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := newTestApp(&stubProfileService{}, &stubAssetService{})

	req := httptest.NewRequest(http.MethodGet, "/api/profile/"+uuid.NewString(), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetProfile_ForeignOwnerForbidden(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	profiles := &stubProfileService{profile: &model.Profile{OwnerID: uuid.New()}}
	app := newTestApp(profiles, &stubAssetService{})

	req := httptest.NewRequest(http.MethodGet, "/api/profile/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", sessionFor(t, uuid.New()))

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	// the profile is never even read
	require.Zero(t, profiles.getCalls)
}

func TestGetProfile_NotFound(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	ownerID := uuid.New()
	app := newTestApp(&stubProfileService{err: repository.ErrProfileNotFound}, &stubAssetService{})

	req := httptest.NewRequest(http.MethodGet, "/api/profile/"+ownerID.String(), nil)
	req.Header.Set("Authorization", sessionFor(t, ownerID))

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetProfile_Success(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	ownerID := uuid.New()
	name := "Alice"
	app := newTestApp(&stubProfileService{profile: &model.Profile{OwnerID: ownerID, Name: &name}}, &stubAssetService{})

	req := httptest.NewRequest(http.MethodGet, "/api/profile/"+ownerID.String(), nil)
	req.Header.Set("Authorization", sessionFor(t, ownerID))

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body model.Profile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, ownerID, body.OwnerID)
	require.Equal(t, "Alice", *body.Name)
}

func TestUpdateProfile_BioTooLong(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	ownerID := uuid.New()
	app := newTestApp(&stubProfileService{}, &stubAssetService{})

	longBio := bytes.Repeat([]byte("a"), 501)
	payload, _ := json.Marshal(map[string]string{"bio": string(longBio)})

	req := httptest.NewRequest(http.MethodPut, "/api/profile/"+ownerID.String(), bytes.NewReader(payload))
	req.Header.Set("Authorization", sessionFor(t, ownerID))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// A single-character name is valid; only length ceilings apply.
func TestUpdateProfile_SingleCharacterName(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	ownerID := uuid.New()
	name := "V"
	app := newTestApp(&stubProfileService{profile: &model.Profile{OwnerID: ownerID, Name: &name}}, &stubAssetService{})

	payload, _ := json.Marshal(map[string]string{"name": "V"})

	req := httptest.NewRequest(http.MethodPut, "/api/profile/"+ownerID.String(), bytes.NewReader(payload))
	req.Header.Set("Authorization", sessionFor(t, ownerID))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func multipartUpload(t *testing.T, kindField string, withFile bool) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	require.NoError(t, w.WriteField("type", kindField))
	if withFile {
		part, err := w.CreateFormFile("file", "pic.png")
		require.NoError(t, err)
		_, err = part.Write([]byte("not-really-a-png"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func TestUploadImage_UnknownKind(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := newTestApp(&stubProfileService{}, &stubAssetService{})

	body, contentType := multipartUpload(t, "avatar", true)
	req := httptest.NewRequest(http.MethodPost, "/api/upload/image", body)
	req.Header.Set("Authorization", sessionFor(t, uuid.New()))
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadImage_MissingFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := newTestApp(&stubProfileService{}, &stubAssetService{})

	body, contentType := multipartUpload(t, "profile", false)
	req := httptest.NewRequest(http.MethodPost, "/api/upload/image", body)
	req.Header.Set("Authorization", sessionFor(t, uuid.New()))
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadImage_OversizeRejected(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := newTestApp(&stubProfileService{}, &stubAssetService{err: service.ErrTooLarge})

	body, contentType := multipartUpload(t, "profile", true)
	req := httptest.NewRequest(http.MethodPost, "/api/upload/image", body)
	req.Header.Set("Authorization", sessionFor(t, uuid.New()))
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadImage_Success(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	ownerID := uuid.New()
	url := "http://minio:9000/user-images/" + ownerID.String() + "/profile-1000.png"
	stub := &stubAssetService{
		profile: &model.Profile{OwnerID: ownerID, ProfileImageURL: &url},
		ref:     storage.AssetRef{Bucket: "user-images", Path: ownerID.String() + "/profile-1000.png", URL: url},
	}
	app := newTestApp(&stubProfileService{}, stub)

	body, contentType := multipartUpload(t, "profile", true)
	req := httptest.NewRequest(http.MethodPost, "/api/upload/image", body)
	req.Header.Set("Authorization", sessionFor(t, ownerID))
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	require.Equal(t, url, decoded["url"])
	require.NotNil(t, decoded["profile"])
}

func TestGetUploadURL_Success(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	ownerID := uuid.New()
	app := newTestApp(&stubProfileService{}, &stubAssetService{})

	req := httptest.NewRequest(http.MethodPost, "/api/upload/presign?type=banner", nil)
	req.Header.Set("Authorization", sessionFor(t, ownerID))

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	require.Contains(t, decoded["upload_url"], ownerID.String()+"/banner-")
	require.Contains(t, decoded["final_image_url"], "/user-images/"+ownerID.String()+"/banner-")
}

func TestGetUploadURL_KeyExtensionFollowsContentType(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	ownerID := uuid.New()
	app := newTestApp(&stubProfileService{}, &stubAssetService{})

	req := httptest.NewRequest(http.MethodPost, "/api/upload/presign?type=profile&content_type=image/png", nil)
	req.Header.Set("Authorization", sessionFor(t, ownerID))

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	require.True(t, strings.HasSuffix(decoded["upload_url"], ".png"))
	require.True(t, strings.HasSuffix(decoded["final_image_url"], ".png"))
}

func TestConfirmUpload_Success(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	ownerID := uuid.New()
	url := "http://minio:9000/user-images/" + ownerID.String() + "/profile-2000.png"
	stub := &stubAssetService{
		profile: &model.Profile{OwnerID: ownerID, ProfileImageURL: &url},
		ref:     storage.AssetRef{Bucket: "user-images", Path: ownerID.String() + "/profile-2000.png", URL: url},
	}
	app := newTestApp(&stubProfileService{}, stub)

	payload, _ := json.Marshal(map[string]string{"type": "profile", "url": url})
	req := httptest.NewRequest(http.MethodPost, "/api/upload/confirm", bytes.NewReader(payload))
	req.Header.Set("Authorization", sessionFor(t, ownerID))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	require.Equal(t, url, decoded["url"])
	require.NotNil(t, decoded["profile"])
}

func TestConfirmUpload_InvalidReference(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := newTestApp(&stubProfileService{}, &stubAssetService{err: storage.ErrInvalidReference})

	payload, _ := json.Marshal(map[string]string{"type": "profile", "url": "http://example.com/not-the-bucket/x.png"})
	req := httptest.NewRequest(http.MethodPost, "/api/upload/confirm", bytes.NewReader(payload))
	req.Header.Set("Authorization", sessionFor(t, uuid.New()))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConfirmUpload_MissingObject(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := newTestApp(&stubProfileService{}, &stubAssetService{err: service.ErrAssetMissing})

	payload, _ := json.Marshal(map[string]string{"type": "banner", "url": "http://minio:9000/user-images/x/banner-1.png"})
	req := httptest.NewRequest(http.MethodPost, "/api/upload/confirm", bytes.NewReader(payload))
	req.Header.Set("Authorization", sessionFor(t, uuid.New()))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteImage_InvalidReference(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := newTestApp(&stubProfileService{}, &stubAssetService{err: storage.ErrInvalidReference})

	req := httptest.NewRequest(http.MethodDelete, "/api/delete/image?type=banner&url=http://example.com/x.png", nil)
	req.Header.Set("Authorization", sessionFor(t, uuid.New()))

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteImage_MissingParams(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := newTestApp(&stubProfileService{}, &stubAssetService{})

	req := httptest.NewRequest(http.MethodDelete, "/api/delete/image?type=banner", nil)
	req.Header.Set("Authorization", sessionFor(t, uuid.New()))

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteImage_Success(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	ownerID := uuid.New()
	app := newTestApp(&stubProfileService{}, &stubAssetService{profile: &model.Profile{OwnerID: ownerID}})

	req := httptest.NewRequest(http.MethodDelete, "/api/delete/image?type=banner&url=http://minio:9000/user-images/"+ownerID.String()+"/banner-1.png", nil)
	req.Header.Set("Authorization", sessionFor(t, ownerID))

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	require.Equal(t, true, decoded["success"])
}
