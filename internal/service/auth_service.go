package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"profile-service/internal/events"
	"profile-service/internal/jwt"
	"profile-service/internal/model"
	"profile-service/internal/repository"
)

var ErrLoginTokenInvalid = repository.ErrLoginTokenInvalid

// AuthService implements passwordless sign-in: a one-time emailed link
// exchanged for a session token. The first successful verification creates
// the owner's profile.
type AuthService interface {
	RequestLoginLink(ctx context.Context, email string) error
	VerifyLoginToken(ctx context.Context, token string) (sessionToken string, profile *model.Profile, err error)
}

type authService struct {
	profiles  repository.ProfileRepository
	tokens    repository.LoginTokenStore
	publisher events.EventPublisher

	siteURL         string
	loginTokenTTL   time.Duration
	sessionTokenTTL time.Duration
}

func NewAuthService(profiles repository.ProfileRepository, tokens repository.LoginTokenStore, publisher events.EventPublisher, siteURL string, loginTokenTTL, sessionTokenTTL time.Duration) AuthService {
	return &authService{
		profiles:        profiles,
		tokens:          tokens,
		publisher:       publisher,
		siteURL:         siteURL,
		loginTokenTTL:   loginTokenTTL,
		sessionTokenTTL: sessionTokenTTL,
	}
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// RequestLoginLink stores the token hash and hands the link off to the
// mailer through the event bus. Only the hash is persisted.
func (s *authService) RequestLoginLink(ctx context.Context, email string) error {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return err
	}
	token := hex.EncodeToString(raw)

	expiresAt := time.Now().Add(s.loginTokenTTL)
	if err := s.tokens.Save(ctx, hashToken(token), email, s.loginTokenTTL); err != nil {
		return fmt.Errorf("store login token: %w", err)
	}

	link := fmt.Sprintf("%s/auth/verify?token=%s", s.siteURL, token)

	return s.publisher.PublishLoginLinkRequested(email, link, expiresAt)
}

// VerifyLoginToken consumes the one-time token, upserts the profile for the
// subject and issues the session JWT. A returning user keeps their owner id;
// a first-time user gets a fresh one.
func (s *authService) VerifyLoginToken(ctx context.Context, token string) (string, *model.Profile, error) {
	email, err := s.tokens.Consume(ctx, hashToken(token))
	if err != nil {
		return "", nil, err
	}

	ownerID := uuid.New()
	existing, err := s.profiles.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrProfileNotFound) {
		return "", nil, err
	}
	if existing != nil {
		ownerID = existing.OwnerID
	}

	profile, err := s.profiles.Upsert(ctx, ownerID, repository.ProfilePatch{Email: &email})
	if err != nil {
		return "", nil, err
	}

	sessionToken, err := jwt.GenerateSessionToken(ownerID, email, s.sessionTokenTTL)
	if err != nil {
		return "", nil, err
	}

	return sessionToken, profile, nil
}
