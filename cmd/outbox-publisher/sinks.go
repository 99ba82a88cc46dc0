package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/pharmacore-backend/pkg/outbox/registry"
)

// outboundMessage is the transport-neutral form of one outbox row.
type outboundMessage struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// sink delivers notification messages to the downstream notification service.
type sink interface {
	Name() string
	Ping(context.Context) error
	Send(ctx context.Context, destination string, msg outboundMessage) error
}

type pubSubPublisher interface {
	Ping(context.Context) error
	Publish(ctx context.Context, topic string, data []byte, attributes map[string]string) (string, error)
}

type pubSubSink struct {
	client pubSubPublisher
}

func newPubSubSink(client pubSubPublisher) (sink, error) {
	if client == nil {
		return nil, errors.New("pubsub client is required")
	}
	return &pubSubSink{client: client}, nil
}

func (s *pubSubSink) Name() string { return "pubsub" }

func (s *pubSubSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *pubSubSink) Send(ctx context.Context, topic string, msg outboundMessage) error {
	if topic == "" {
		return registry.NewNonRetryableError(errors.New("pubsub topic not configured"))
	}
	if _, err := s.client.Publish(ctx, topic, msg.Data, msg.Attributes); err != nil {
		return fmt.Errorf("pubsub publish %s: %w", topic, err)
	}
	return nil
}

type jetStreamPublisher interface {
	Ping(context.Context) error
	Publish(ctx context.Context, subject, msgID string, data []byte, headers map[string]string) error
}

type jetStreamSink struct {
	publisher jetStreamPublisher
}

func newJetStreamSink(publisher jetStreamPublisher) (sink, error) {
	if publisher == nil {
		return nil, errors.New("jetstream publisher is required")
	}
	return &jetStreamSink{publisher: publisher}, nil
}

func (s *jetStreamSink) Name() string { return "jetstream" }

func (s *jetStreamSink) Ping(ctx context.Context) error {
	return s.publisher.Ping(ctx)
}

// Send uses the envelope event id as Nats-Msg-Id for stream-side dedup.
func (s *jetStreamSink) Send(ctx context.Context, subject string, msg outboundMessage) error {
	return s.publisher.Publish(ctx, subject, msg.ID, msg.Data, msg.Attributes)
}
