package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmacore-backend/pkg/errors"
	"github.com/angelmondragon/pharmacore-backend/pkg/logger"
	"github.com/angelmondragon/pharmacore-backend/pkg/outbox"
	"github.com/angelmondragon/pharmacore-backend/pkg/outbox/payloads"
)

// Notification is a role-addressed message handed to the delivery service.
type Notification struct {
	Type          enums.NotificationEventType
	Roles         []enums.Role
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Title         string
	Message       string
	Data          map[string]any
	Actor         *outbox.ActorRef
}

// Gateway informs the notification service. When tx is nil the gateway
// opens its own transaction.
type Gateway interface {
	Notify(ctx context.Context, tx *gorm.DB, n Notification) error
}

type emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OutboxGateway queues notification_requested events on the transactional outbox.
type OutboxGateway struct {
	outbox emitter
	tx     txRunner
	logg   *logger.Logger
	now    func() time.Time
}

// NewOutboxGateway wires the outbox-backed gateway.
func NewOutboxGateway(out emitter, tx txRunner, logg *logger.Logger) (*OutboxGateway, error) {
	if out == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &OutboxGateway{
		outbox: out,
		tx:     tx,
		logg:   logg,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Notify validates n and queues it. Notifications without recipients are dropped.
func (g *OutboxGateway) Notify(ctx context.Context, tx *gorm.DB, n Notification) error {
	if !n.AggregateType.IsValid() || n.AggregateID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification aggregate required")
	}
	roles := dedupeRoles(n.Roles)
	if len(roles) == 0 {
		g.logg.Warn(g.logg.WithFields(ctx, map[string]any{
			"notification_type": n.Type,
			"aggregate_id":      n.AggregateID.String(),
		}), "notification has no recipient roles; skipped")
		return nil
	}

	now := g.now()
	event := outbox.DomainEvent{
		EventType:     enums.EventNotificationRequested,
		AggregateType: n.AggregateType,
		AggregateID:   n.AggregateID,
		Actor:         n.Actor,
		OccurredAt:    now,
		Data: payloads.NotificationRequestedEvent{
			Type:        n.Type,
			Roles:       roles,
			AggregateID: n.AggregateID,
			Title:       n.Title,
			Message:     n.Message,
			Data:        n.Data,
			RequestedAt: now,
		},
	}

	emit := func(tx *gorm.DB) error {
		if err := g.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue notification")
		}
		return nil
	}
	if tx != nil {
		return emit(tx)
	}
	return g.tx.WithTx(ctx, emit)
}

func dedupeRoles(in []enums.Role) []enums.Role {
	seen := make(map[enums.Role]struct{}, len(in))
	out := make([]enums.Role, 0, len(in))
	for _, role := range in {
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out
}
