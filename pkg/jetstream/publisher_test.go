package jetstream

import (
	"context"
	"testing"

	"github.com/angelmondragon/pharmacore-backend/pkg/config"
)

func TestNewPublisherValidatesConfig(t *testing.T) {
	if _, err := NewPublisher(context.Background(), config.NATSConfig{}, nil); err == nil {
		t.Fatalf("expected missing url error")
	}
	if _, err := NewPublisher(context.Background(), config.NATSConfig{URL: "nats://127.0.0.1:4222"}, nil); err == nil {
		t.Fatalf("expected missing stream error")
	}
}

func TestUninitializedPublisher(t *testing.T) {
	var p *Publisher
	if err := p.Publish(context.Background(), "s", "id", nil, nil); err == nil {
		t.Fatalf("expected error publishing on nil publisher")
	}
	if err := p.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping error")
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
