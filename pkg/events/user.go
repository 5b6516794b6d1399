package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Topic names used across gan-forms services.
const (
	TopicUserEvents = "user.events"
)

// Event type attribute values.
const (
	TypeUserDeleted = "user.deleted"
)

// UserDeleted is emitted when an identity is removed from the identity provider,
// whatever path removed it.
type UserDeleted struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email,omitempty"`
	DeletedAt time.Time `json:"deletedAt"`
}

// Handler reacts to a single identity deletion. A non-nil error asks the stream to redeliver.
type Handler func(ctx context.Context, evt UserDeleted) error

// Subscriber delivers identity-deletion events until ctx is cancelled.
type Subscriber interface {
	Subscribe(ctx context.Context, handle Handler) error
}

// ErrMalformedEvent reports a payload that can never be processed.
var ErrMalformedEvent = errors.New("malformed user event")

// DecodeUserDeleted parses a UserDeleted payload. Both the native shape and the
// Firebase Auth user record shape ({"uid": ..., "email": ...}) are accepted.
func DecodeUserDeleted(data []byte) (UserDeleted, error) {
	var raw struct {
		UserID    string    `json:"userId"`
		UID       string    `json:"uid"`
		Email     string    `json:"email"`
		DeletedAt time.Time `json:"deletedAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return UserDeleted{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	id := strings.TrimSpace(raw.UserID)
	if id == "" {
		id = strings.TrimSpace(raw.UID)
	}
	if id == "" {
		return UserDeleted{}, fmt.Errorf("%w: missing user id", ErrMalformedEvent)
	}

	return UserDeleted{UserID: id, Email: raw.Email, DeletedAt: raw.DeletedAt}, nil
}
