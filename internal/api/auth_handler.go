package api

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"profile-service/internal/service"
)

type AuthHandler struct {
	authService service.AuthService
	validate    *validator.Validate
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

type LoginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RequestLoginLink always answers 202 on a well-formed email so the
// endpoint does not reveal which addresses have accounts.
func (h *AuthHandler) RequestLoginLink(c *fiber.Ctx) error {
	var req LoginRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	if err := h.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input", "details": err.Error()})
	}

	if err := h.authService.RequestLoginLink(c.Context(), req.Email); err != nil {
		slog.ErrorContext(c.Context(), "Failed to issue login link", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not send sign-in link"})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"message": "Sign-in link sent if the address is valid"})
}

func (h *AuthHandler) VerifyLoginToken(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing token parameter"})
	}

	sessionToken, profile, err := h.authService.VerifyLoginToken(c.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrLoginTokenInvalid) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Sign-in link is invalid or expired"})
		}
		slog.ErrorContext(c.Context(), "Failed to verify login token", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not complete sign-in"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"access_token": sessionToken,
		"profile":      profile,
	})
}
