package db

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/angelmondragon/pharmacore-backend/pkg/logger"
)

func TestQueryLoggerReportsSlowStatements(t *testing.T) {
	var buf bytes.Buffer
	q := newQueryLogger(logger.New(logger.Options{ServiceName: "test", Output: &buf, Level: zerolog.DebugLevel}))
	stmt := func() (string, int64) { return "SELECT 1", 1 }

	q.Trace(context.Background(), time.Now(), stmt, gorm.ErrRecordNotFound)
	if buf.Len() != 0 {
		t.Fatalf("fast not-found lookups should be silent, got %s", buf.String())
	}

	q.Trace(context.Background(), time.Now().Add(-time.Second), stmt, nil)
	if !strings.Contains(buf.String(), "db.query.slow") || !strings.Contains(buf.String(), "SELECT 1") {
		t.Fatalf("expected slow query log, got %s", buf.String())
	}

	buf.Reset()
	q.Trace(context.Background(), time.Now(), stmt, errors.New("syntax error"))
	if !strings.Contains(buf.String(), "db.query.failed") {
		t.Fatalf("expected failed query log, got %s", buf.String())
	}
}

func TestNewQueryLoggerWithoutLogger(t *testing.T) {
	if newQueryLogger(nil) == nil {
		t.Fatal("expected a discarding logger")
	}
}
