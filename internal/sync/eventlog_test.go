package syncx

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mind-engage/mindengage-progress/internal/db"
)

func newRepo(t *testing.T) *EventRepo {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "events.db")
	conn, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewEventRepo(conn)
}

func TestEventRepo_Lifecycle(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)

	if err := r.Append(ctx, Event{Type: TypeAnalyticsStale, Key: "7"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := r.Append(ctx, Event{Type: TypeProgressStale, Key: "12", DataJSON: `{"userId":1}`}); err != nil {
		t.Fatalf("append: %v", err)
	}

	evs, err := r.Pending(ctx, 10, 3)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(evs) != 2 || evs[0].Type != TypeAnalyticsStale || evs[1].Key != "12" {
		t.Fatalf("pending=%+v", evs)
	}
	if evs[0].SiteID != "local" || evs[0].DataJSON != "{}" {
		t.Fatalf("defaults not applied: %+v", evs[0])
	}

	if err := r.MarkDone(ctx, evs[0].Seq); err != nil {
		t.Fatalf("done: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := r.MarkFailed(ctx, evs[1].Seq, errors.New("store down")); err != nil {
			t.Fatalf("failed: %v", err)
		}
	}

	evs, err = r.Pending(ctx, 10, 3)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(evs) != 0 {
		t.Fatalf("expected nothing pending, got %+v", evs)
	}
	evs, _ = r.Pending(ctx, 10, 4)
	if len(evs) != 1 || evs[0].Retries != 3 || evs[0].LastError != "store down" {
		t.Fatalf("retry bookkeeping: %+v", evs)
	}
}
