package jetstream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/angelmondragon/pharmacore-backend/pkg/config"
	"github.com/angelmondragon/pharmacore-backend/pkg/logger"
)

const notificationStreamMaxAge = 7 * 24 * time.Hour

// MsgIDHeader lets JetStream drop duplicate publishes of the same outbox event.
const MsgIDHeader = "Nats-Msg-Id"

// Publisher writes notification messages into a JetStream stream.
type Publisher struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	stream  string
	subject string
}

// NewPublisher connects to NATS and ensures the notification stream exists.
func NewPublisher(ctx context.Context, cfg config.NATSConfig, logg *logger.Logger) (*Publisher, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("nats url is required")
	}
	if strings.TrimSpace(cfg.Stream) == "" || strings.TrimSpace(cfg.Subject) == "" {
		return nil, errors.New("nats stream and subject are required")
	}
	nc, err := nats.Connect(cfg.URL, nats.Name("pharmacore-outbox-publisher"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}
	if err := ensureStream(js, cfg.Stream, cfg.Subject); err != nil {
		nc.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"stream": cfg.Stream, "subject": cfg.Subject}), "jetstream publisher initialized")
	}
	return &Publisher{nc: nc, js: js, stream: cfg.Stream, subject: cfg.Subject}, nil
}

func ensureStream(js nats.JetStreamContext, streamName, subject string) error {
	if _, err := js.StreamInfo(streamName); err == nil {
		return nil
	} else if !errors.Is(err, nats.ErrStreamNotFound) && !strings.Contains(strings.ToLower(err.Error()), "stream not found") {
		return fmt.Errorf("stream info %q: %w", streamName, err)
	}

	_, err := js.AddStream(&nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subject},
		Retention: nats.LimitsPolicy,
		Storage:   nats.FileStorage,
		MaxAge:    notificationStreamMaxAge,
	})
	if err != nil {
		return fmt.Errorf("create stream %q: %w", streamName, err)
	}
	return nil
}

// Subject returns the default subject messages are published to.
func (p *Publisher) Subject() string {
	return p.subject
}

// Publish sends data to subject. A non-empty msgID is used for server-side dedup.
func (p *Publisher) Publish(ctx context.Context, subject, msgID string, data []byte, headers map[string]string) error {
	if p == nil || p.js == nil {
		return errors.New("jetstream publisher not initialized")
	}
	if strings.TrimSpace(subject) == "" {
		subject = p.subject
	}
	msg := nats.NewMsg(subject)
	msg.Data = data
	for k, v := range headers {
		msg.Header.Set(k, v)
	}
	if id := strings.TrimSpace(msgID); id != "" {
		msg.Header.Set(MsgIDHeader, id)
	}
	if _, err := p.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Ping reports whether the connection is usable and the stream is reachable.
func (p *Publisher) Ping(ctx context.Context) error {
	if p == nil || p.nc == nil {
		return errors.New("jetstream publisher not initialized")
	}
	if !p.nc.IsConnected() {
		return fmt.Errorf("nats connection status %s", p.nc.Status())
	}
	if _, err := p.js.StreamInfo(p.stream, nats.Context(ctx)); err != nil {
		return fmt.Errorf("stream info %q: %w", p.stream, err)
	}
	return nil
}

// Close drains pending publishes and closes the connection.
func (p *Publisher) Close() error {
	if p == nil || p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}
