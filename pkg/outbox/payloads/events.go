package payloads

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
)

// NotificationRequestedEvent asks the delivery service to notify every user
// holding one of Roles. Data carries event-specific fields for templating.
type NotificationRequestedEvent struct {
	Type        enums.NotificationEventType `json:"type"`
	Roles       []enums.Role                `json:"roles"`
	AggregateID uuid.UUID                   `json:"aggregate_id"`
	Title       string                      `json:"title"`
	Message     string                      `json:"message"`
	Data        map[string]any              `json:"data,omitempty"`
	RequestedAt time.Time                   `json:"requested_at"`
}

// ExpiryAlertSummary is one line in an EXPIRY_ALERTS_RAISED notification.
type ExpiryAlertSummary struct {
	AlertID         uuid.UUID `json:"alert_id"`
	ItemType        string    `json:"item_type"`
	ItemID          uuid.UUID `json:"item_id"`
	BatchNumber     *string   `json:"batch_number,omitempty"`
	ExpiryDate      string    `json:"expiry_date"`
	DaysUntilExpiry int       `json:"days_until_expiry"`
	Quantity        int       `json:"quantity"`
}

// Validate rejects requests the delivery service could never route.
func (e *NotificationRequestedEvent) Validate() error {
	switch {
	case e.Type == "":
		return errors.New("notification type is required")
	case len(e.Roles) == 0:
		return errors.New("notification has no recipient roles")
	case e.AggregateID == uuid.Nil:
		return errors.New("notification aggregate_id is required")
	}
	return nil
}
