package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/stratadmin/internal/app/store/audit"
	"github.com/dalemusser/stratadmin/internal/app/store/storeutil"
	"github.com/dalemusser/stratadmin/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Log_AutoFillsIDAndTimestamp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	before := time.Now().Add(-time.Second)
	err := store.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		ActorName: "Ann Admin",
		IP:        "192.168.1.1",
		Success:   true,
	})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.GetRecent(ctx, 10)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID.IsZero() {
		t.Error("expected ID to be auto-generated")
	}
	if events[0].Timestamp.Before(before) {
		t.Errorf("expected timestamp to be set, got %v", events[0].Timestamp)
	}
	if events[0].ActorNameCI != "ann admin" {
		t.Errorf("expected folded actor name, got %q", events[0].ActorNameCI)
	}
}

func TestStore_Query(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}

	actor := primitive.NewObjectID()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	seed := []audit.Event{
		{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, ActorID: &actor, ActorName: "Bea", Timestamp: base},
		{Category: audit.CategoryAdmin, EventType: audit.EventAccountCreated, ActorID: &actor, ActorName: "Bea", Timestamp: base.Add(time.Hour)},
		{Category: audit.CategoryAdmin, EventType: audit.EventCompanyCreated, ActorName: "Carl", Timestamp: base.Add(48 * time.Hour)},
	}
	for _, e := range seed {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	day := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		filter audit.QueryFilter
		want   int64
	}{
		{"all", audit.QueryFilter{}, 3},
		{"category", audit.QueryFilter{Category: audit.CategoryAdmin}, 2},
		{"event type", audit.QueryFilter{EventType: audit.EventCompanyCreated}, 1},
		{"actor", audit.QueryFilter{ActorID: &actor}, 2},
		{"search", audit.QueryFilter{Search: "car"}, 1},
		{"single day", audit.QueryFilter{StartTime: &day, EndTime: &day}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := store.CountByFilter(ctx, tt.filter)
			if err != nil {
				t.Fatalf("CountByFilter failed: %v", err)
			}
			if n != tt.want {
				t.Errorf("expected %d events, got %d", tt.want, n)
			}
		})
	}

	page, err := store.Query(ctx, audit.QueryFilter{}, storeutil.Page{Offset: 0, Limit: 2, Desc: true})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(page) != 2 || page[0].EventType != audit.EventCompanyCreated {
		t.Errorf("expected newest first, got %+v", page)
	}
}
