package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/pharmacore-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
	"github.com/angelmondragon/pharmacore-backend/pkg/outbox"
	"github.com/angelmondragon/pharmacore-backend/pkg/outbox/payloads"
)

// EventDescriptor says where an event type is routed, which aggregates may
// emit it, and how its data decodes.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateTypes []enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is an outbox row that passed every publish-time check.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NewEventRegistry routes every notification to notificationTopic, which is
// a Pub/Sub topic or a JetStream subject depending on the sink.
func NewEventRegistry(notificationTopic string) (*EventRegistry, error) {
	notificationTopic = strings.TrimSpace(notificationTopic)
	if notificationTopic == "" {
		return nil, errors.New("notification topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	reg.register(EventDescriptor{
		EventType: enums.EventNotificationRequested,
		AggregateTypes: []enums.OutboxAggregateType{
			enums.AggregateExpiryCheckRun,
			enums.AggregateExpiryAlert,
			enums.AggregateQuarantineCase,
		},
		Topic:          notificationTopic,
		PayloadFactory: func() any { return &payloads.NotificationRequestedEvent{} },
	})
	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		panic(fmt.Sprintf("registry: %s has no payload factory", desc.EventType))
	}
	r.entries[desc.EventType] = desc
}

// Resolve checks routing, decodes the envelope and typed payload, and runs the
// payload's own Validate when it has one. Every failure is non-retryable.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, reject("unsupported event type %s", event.EventType)
	case !slices.Contains(desc.AggregateTypes, event.AggregateType):
		return nil, reject("aggregate %s not allowed for %s", event.AggregateType, event.EventType)
	case event.AggregateID == uuid.Nil:
		return nil, reject("missing aggregate_id")
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, reject("%s: %w", event.EventType, err)
	}
	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, reject("decode %s payload: %w", event.EventType, err)
	}
	if v, ok := payload.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return nil, reject("invalid %s payload: %w", event.EventType, err)
		}
	}

	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}

func reject(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}
