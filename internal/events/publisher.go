package events

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

type EventPublisher interface {
	PublishLoginLinkRequested(email, link string, expiresAt time.Time) error
	PublishProfileUpdated(ownerID uuid.UUID) error
	PublishAssetOrphaned(bucket, path, reason string) error
}

type NatsPublisher struct {
	conn *nats.Conn
}

func NewNatsPublisher(natsURL string) (EventPublisher, error) {
	nc, err := nats.Connect(natsURL)

	if err != nil {
		return nil, err
	}

	return &NatsPublisher{conn: nc}, nil
}

// LoginLinkRequestedEvent is consumed by the mailer worker, which renders
// and sends the sign-in email.
type LoginLinkRequestedEvent struct {
	EventType string    `json:"event_type"`
	Email     string    `json:"email"`
	Link      string    `json:"link"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ProfileUpdatedEvent struct {
	EventType string    `json:"event_type"`
	OwnerID   uuid.UUID `json:"owner_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AssetOrphanedEvent records an object left in the store without a profile
// reference, so a janitor job can reap it later.
type AssetOrphanedEvent struct {
	EventType string `json:"event_type"`
	Bucket    string `json:"bucket"`
	Path      string `json:"path"`
	Reason    string `json:"reason"`
}

func (p *NatsPublisher) PublishLoginLinkRequested(email, link string, expiresAt time.Time) error {
	event := LoginLinkRequestedEvent{
		EventType: "login.link.requested",
		Email:     email,
		Link:      link,
		ExpiresAt: expiresAt,
	}

	return p.publish("login.link.requested", event)
}

func (p *NatsPublisher) PublishProfileUpdated(ownerID uuid.UUID) error {
	event := ProfileUpdatedEvent{
		EventType: "profile.updated",
		OwnerID:   ownerID,
		UpdatedAt: time.Now(),
	}

	return p.publish("profile.updated", event)
}

func (p *NatsPublisher) PublishAssetOrphaned(bucket, path, reason string) error {
	event := AssetOrphanedEvent{
		EventType: "asset.orphaned",
		Bucket:    bucket,
		Path:      path,
		Reason:    reason,
	}

	return p.publish("asset.orphaned", event)
}

func (p *NatsPublisher) publish(subject string, event any) error {
	eventJSON, err := json.Marshal(event)

	if err != nil {
		slog.Error("Error marshalling event JSON", "subject", subject, "error", err)
		return err
	}

	if err := p.conn.Publish(subject, eventJSON); err != nil {
		slog.Error("Error publishing to NATS", "subject", subject, "error", err)
		return err
	}

	slog.Info("Published event to NATS", "subject", subject)

	return nil
}
