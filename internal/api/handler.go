package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"profile-service/internal/model"
	"profile-service/internal/repository"
	"profile-service/internal/service"
	"profile-service/internal/storage"
)

// UploadPresigner issues direct-to-store upload URLs for clients that
// bypass the API body limit.
type UploadPresigner interface {
	PresignedUploadURL(ctx context.Context, path string) (string, error)
	PublicURL(path string) string
}

type ProfileHandler struct {
	profileService service.ProfileService
	assetService   service.AssetService
	presigner      UploadPresigner
	validate       *validator.Validate
}

func NewProfileHandler(profileService service.ProfileService, assetService service.AssetService, presigner UploadPresigner) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		assetService:   assetService,
		presigner:      presigner,
		validate:       validator.New(),
	}
}

type UpdateProfileRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Country *string `json:"country,omitempty" validate:"omitempty,max=100"`
	Bio     *string `json:"bio,omitempty" validate:"omitempty,max=500"`
}

// requireOwner parses the path owner id and rejects callers reading or
// writing someone else's profile.
func (h *ProfileHandler) requireOwner(c *fiber.Ctx) (uuid.UUID, error) {
	ownerID, err := uuid.Parse(c.Params("ownerId"))
	if err != nil {
		return uuid.Nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid owner ID format"})
	}

	caller, err := GetOwnerIDFromContext(c)
	if err != nil {
		return uuid.Nil, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing session"})
	}

	if caller != ownerID {
		return uuid.Nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Profile belongs to another user"})
	}

	return ownerID, nil
}

func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	ownerID, err := h.requireOwner(c)
	if err != nil || ownerID == uuid.Nil {
		return err
	}

	profile, err := h.profileService.GetProfile(c.Context(), ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
		}
		slog.ErrorContext(c.Context(), "Failed to fetch profile", "owner_id", ownerID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch profile"})
	}

	return c.Status(fiber.StatusOK).JSON(profile)
}

func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	ownerID, err := h.requireOwner(c)
	if err != nil || ownerID == uuid.Nil {
		return err
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	if err := h.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input", "details": err.Error()})
	}

	profile, err := h.profileService.UpdateProfile(c.Context(), ownerID, service.UpdateProfileDTO{
		Name:    req.Name,
		Country: req.Country,
		Bio:     req.Bio,
	})
	if err != nil {
		slog.ErrorContext(c.Context(), "Failed to update profile", "owner_id", ownerID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not update profile"})
	}

	return c.Status(fiber.StatusOK).JSON(profile)
}

func (h *ProfileHandler) UploadImage(c *fiber.Ctx) error {
	ownerID, err := GetOwnerIDFromContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing session"})
	}

	kind, err := model.ParseImageKind(c.FormValue("type"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid image type, expected 'profile' or 'banner'"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing file"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot read file"})
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")

	profile, ref, err := h.assetService.ReplaceImage(c.Context(), ownerID, kind, file, contentType, fileHeader.Size)
	if err != nil {
		if errors.Is(err, service.ErrInvalidMediaType) || errors.Is(err, service.ErrTooLarge) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		slog.ErrorContext(c.Context(), "Failed to replace image", "owner_id", ownerID, "kind", kind, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not upload image"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"url":     ref.URL,
		"path":    ref.Path,
		"profile": profile,
	})
}

// GetUploadURL hands out a short-lived presigned PUT URL. The client
// uploads straight to the store, then saves the returned final URL.
func (h *ProfileHandler) GetUploadURL(c *fiber.Ctx) error {
	ownerID, err := GetOwnerIDFromContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing session"})
	}

	kind, err := model.ParseImageKind(c.Query("type"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid image type, expected 'profile' or 'banner'"})
	}

	contentType := c.Query("content_type", "image/jpeg")
	objectKey := fmt.Sprintf("%s/%s-%d.%s", ownerID, kind, time.Now().UnixMilli(), storage.ExtensionFor(contentType))

	uploadURL, err := h.presigner.PresignedUploadURL(c.Context(), objectKey)
	if err != nil {
		slog.ErrorContext(c.Context(), "Failed to presign upload URL", "owner_id", ownerID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not generate upload URL"})
	}

	return c.JSON(fiber.Map{
		"upload_url":      uploadURL,
		"final_image_url": h.presigner.PublicURL(objectKey),
	})
}

type ConfirmUploadRequest struct {
	Type string `json:"type" validate:"required"`
	URL  string `json:"url" validate:"required,url"`
}

// ConfirmUpload finalizes a presigned upload: the stored object is checked
// against the image limits, made the profile's image for the kind, and the
// previous asset retired.
func (h *ProfileHandler) ConfirmUpload(c *fiber.Ctx) error {
	ownerID, err := GetOwnerIDFromContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing session"})
	}

	var req ConfirmUploadRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	if err := h.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input", "details": err.Error()})
	}

	kind, err := model.ParseImageKind(req.Type)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid image type, expected 'profile' or 'banner'"})
	}

	profile, ref, err := h.assetService.PromoteImage(c.Context(), ownerID, kind, req.URL)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidReference):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "URL does not reference a stored image"})
		case errors.Is(err, service.ErrAssetMissing):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No uploaded object found at the given URL"})
		case errors.Is(err, service.ErrInvalidMediaType) || errors.Is(err, service.ErrTooLarge):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		slog.ErrorContext(c.Context(), "Failed to confirm upload", "owner_id", ownerID, "kind", kind, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not confirm upload"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"url":     ref.URL,
		"path":    ref.Path,
		"profile": profile,
	})
}

func (h *ProfileHandler) DeleteImage(c *fiber.Ctx) error {
	ownerID, err := GetOwnerIDFromContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing session"})
	}

	kind, err := model.ParseImageKind(c.Query("type"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid image type, expected 'profile' or 'banner'"})
	}

	assetURL := c.Query("url")
	if assetURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing url parameter"})
	}

	profile, err := h.assetService.DeleteImage(c.Context(), ownerID, kind, assetURL)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidReference) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "URL does not reference a stored image"})
		}
		slog.ErrorContext(c.Context(), "Failed to delete image", "owner_id", ownerID, "kind", kind, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not delete image"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"profile": profile,
	})
}
