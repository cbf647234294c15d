package audit

import (
	"context"
	"testing"
	"time"

	"github.com/nerrad567/taller-core/internal/infrastructure/database/dbtest"
	"github.com/nerrad567/taller-core/internal/tenant"
)

func ws(id int64) *int64 { return &id }

func TestCreateAndList(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	entries := []*AuditLog{
		{WorkshopID: ws(2), Action: ActionCreate, EntityType: "customer", EntityID: "1", UserID: "5", Source: "api", CreatedAt: base},
		{WorkshopID: ws(2), Action: ActionUpdate, EntityType: "customer", EntityID: "1", UserID: "5", Source: "api",
			Details: map[string]any{"fields": []any{"phone"}}, CreatedAt: base.Add(time.Minute)},
		{WorkshopID: ws(3), Action: ActionCreate, EntityType: "job", EntityID: "9", Source: "api", CreatedAt: base.Add(2 * time.Minute)},
		{Action: ActionLogin, EntityType: "user", EntityID: "5", Source: "api", CreatedAt: base.Add(3 * time.Minute)},
	}
	for _, e := range entries {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if e.ID == "" {
			t.Error("Create() should generate an ID")
		}
	}

	all, err := repo.List(ctx, tenant.Global(), Filter{})
	if err != nil {
		t.Fatalf("List(global) error = %v", err)
	}
	if all.Total != 4 || len(all.Logs) != 4 {
		t.Fatalf("List(global) total = %d, len = %d, want 4", all.Total, len(all.Logs))
	}
	if all.Logs[0].Action != ActionLogin {
		t.Errorf("first log = %q, want most recent first", all.Logs[0].Action)
	}
	if all.Limit != 50 {
		t.Errorf("Limit = %d, want default 50", all.Limit)
	}

	north, err := repo.List(ctx, tenant.Workshop(2), Filter{})
	if err != nil {
		t.Fatalf("List(north) error = %v", err)
	}
	if north.Total != 2 {
		t.Errorf("List(north) total = %d, want 2", north.Total)
	}
	for _, l := range north.Logs {
		if l.WorkshopID == nil || *l.WorkshopID != 2 {
			t.Errorf("List(north) leaked %+v", l)
		}
	}
	if north.Logs[0].Details["fields"] == nil {
		t.Errorf("details not round-tripped: %+v", north.Logs[0].Details)
	}

	updates, err := repo.List(ctx, tenant.Global(), Filter{Action: ActionUpdate, Limit: 500})
	if err != nil {
		t.Fatalf("List(filter) error = %v", err)
	}
	if updates.Total != 1 || updates.Limit != 200 {
		t.Errorf("List(update) total = %d limit = %d, want 1 and clamped 200", updates.Total, updates.Limit)
	}
}
