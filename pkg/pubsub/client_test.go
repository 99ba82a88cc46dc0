package pubsub

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/pharmacore-backend/pkg/config"
)

func TestTopicPath(t *testing.T) {
	cases := []struct {
		project, topic, want string
	}{
		{"pharma-prod", "pharmacore-notifications", "projects/pharma-prod/topics/pharmacore-notifications"},
		{"pharma-prod", "  spaced  ", "projects/pharma-prod/topics/spaced"},
		{"pharma-prod", "projects/other/topics/pharmacore-notification", "projects/other/topics/pharmacore-notification"},
		{"pharma-prod", "", ""},
		{"", "orphan", ""},
	}
	for _, tc := range cases {
		if got := topicPath(tc.project, tc.topic); got != tc.want {
			t.Errorf("topicPath(%q, %q) = %q, want %q", tc.project, tc.topic, got, tc.want)
		}
	}
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{ProjectID: "  "}, config.PubSubConfig{NotificationTopic: "t"}, nil)
	if !errors.Is(err, errProjectIDRequired) {
		t.Fatalf("expected project id error, got %v", err)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Publisher("topic") != nil {
		t.Fatal("expected nil publisher")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Ping(context.Background()); !errors.Is(err, errNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
	if _, err := c.Publish(context.Background(), "topic", nil, nil); err == nil {
		t.Fatal("expected publish on nil client to fail")
	}
}
