package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeUserRegistered        = "user.registered"
	EventTypeConfirmationRequested = "user.confirmation_requested"
	EventTypeUserConfirmed         = "user.confirmed"
	EventTypeRoleAssigned          = "user.role_assigned"
)

// ConfirmationEvent carries a freshly issued confirmation token to whoever
// delivers it. Data never includes the token.
type ConfirmationEvent struct {
	BaseEvent
	UserID   int64  `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Token    string `json:"-"`
}

func NewUserRegisteredEvent(userID int64, email, username, token string) *ConfirmationEvent {
	return newConfirmationEvent(EventTypeUserRegistered, userID, email, username, token)
}

func NewConfirmationRequestedEvent(userID int64, email, username, token string) *ConfirmationEvent {
	return newConfirmationEvent(EventTypeConfirmationRequested, userID, email, username, token)
}

func newConfirmationEvent(eventType string, userID int64, email, username, token string) *ConfirmationEvent {
	return &ConfirmationEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now().UTC(),
			Data: map[string]interface{}{
				"user_id":  userID,
				"username": username,
			},
		},
		UserID:   userID,
		Email:    email,
		Username: username,
		Token:    token,
	}
}

type UserConfirmedEvent struct {
	BaseEvent
	UserID int64 `json:"user_id"`
}

func NewUserConfirmedEvent(userID int64) *UserConfirmedEvent {
	return &UserConfirmedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeUserConfirmed,
			Timestamp: time.Now().UTC(),
			Data: map[string]interface{}{
				"user_id": userID,
			},
		},
		UserID: userID,
	}
}

type RoleAssignedEvent struct {
	BaseEvent
	UserID   int64  `json:"user_id"`
	RoleName string `json:"role_name"`
}

func NewRoleAssignedEvent(userID int64, roleName string) *RoleAssignedEvent {
	return &RoleAssignedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeRoleAssigned,
			Timestamp: time.Now().UTC(),
			Data: map[string]interface{}{
				"user_id":   userID,
				"role_name": roleName,
			},
		},
		UserID:   userID,
		RoleName: roleName,
	}
}
