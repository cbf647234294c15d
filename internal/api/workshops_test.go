package api

import (
	"net/http"
	"testing"

	"github.com/nerrad567/taller-core/internal/auth"
	"github.com/nerrad567/taller-core/internal/events"
	"github.com/nerrad567/taller-core/internal/workshop"
)

func TestCreateWorkshop_OncePerManager(t *testing.T) {
	env := newTestEnv(t)
	rec := env.recordEvents()
	token, wsID := env.owner("owner@example.com", "Taller Norte")

	ev := rec.next(t)
	if ev.Type != events.WorkshopCreated || ev.WorkshopID != wsID {
		t.Errorf("event = %s/%d, want workshop.created/%d", ev.Type, ev.WorkshopID, wsID)
	}

	var me auth.User
	decode(t, env.do(http.MethodGet, "/api/v1/me", token, nil), &me)
	if me.WorkshopID != wsID {
		t.Errorf("owner workshop = %d, want %d", me.WorkshopID, wsID)
	}

	w := env.do(http.MethodPost, "/api/v1/workshops", token, map[string]string{"name": "Second"})
	expectError(t, w, http.StatusBadRequest, ErrCodeBadRequest)
}

func TestCreateWorkshop_Validation(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup("invalid@example.com")

	w := env.do(http.MethodPost, "/api/v1/workshops", token, map[string]string{"name": "X", "opening_hours": "9am"})
	expectError(t, w, http.StatusBadRequest, ErrCodeValidation)

	// A rejected create leaves the caller free to try again.
	w = env.do(http.MethodPost, "/api/v1/workshops", token, map[string]string{"name": "Valid", "opening_hours": "09:00"})
	if w.Code != http.StatusCreated {
		t.Errorf("retry status = %d: %s", w.Code, w.Body.String())
	}
}

func TestMyWorkshop(t *testing.T) {
	env := newTestEnv(t)

	unassigned := env.signup("pending@example.com")
	w := env.do(http.MethodGet, "/api/v1/workshops/me", unassigned, nil)
	expectError(t, w, http.StatusBadRequest, ErrCodeBadRequest)

	token, wsID := env.owner("mine@example.com", "Mine")
	w = env.do(http.MethodPatch, "/api/v1/workshops/me", token, map[string]string{"address": "Calle 1"})
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d: %s", w.Code, w.Body.String())
	}
	var ws workshop.Workshop
	decode(t, w, &ws)
	if ws.ID != wsID || ws.Address != "Calle 1" || ws.Name != "Mine" {
		t.Errorf("after patch = %+v", ws)
	}

	w = env.do(http.MethodGet, "/api/v1/me/workshop", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("/me/workshop status = %d: %s", w.Code, w.Body.String())
	}
	var mine workshop.Workshop
	decode(t, w, &mine)
	if mine.ID != wsID {
		t.Errorf("/me/workshop id = %d, want %d", mine.ID, wsID)
	}
}

func TestWorkshopAdminRoutes(t *testing.T) {
	env := newTestEnv(t)
	admin := env.admin()
	manager, wsID := env.owner("m@example.com", "Managed")

	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/workshops"},
		{http.MethodGet, "/api/v1/workshops/" + itoa(wsID)},
		{http.MethodDelete, "/api/v1/workshops/" + itoa(wsID)},
	}
	for _, p := range paths {
		w := env.do(p.method, p.path, manager, nil)
		expectError(t, w, http.StatusForbidden, ErrCodeForbidden)
	}

	var list listResponse[workshop.Workshop]
	decode(t, env.do(http.MethodGet, "/api/v1/workshops", admin, nil), &list)
	if list.Count < 2 {
		t.Errorf("admin sees %d workshops, want the placeholder and %d", list.Count, wsID)
	}

	// Admin-created workshops have no owner.
	var created workshop.Workshop
	env.create("/api/v1/workshops", admin, map[string]string{"name": "HQ"}, &created)
	w := env.do(http.MethodDelete, "/api/v1/workshops/"+itoa(created.ID), admin, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete empty workshop status = %d: %s", w.Code, w.Body.String())
	}

	// The owner's workshop still holds the owner.
	w = env.do(http.MethodDelete, "/api/v1/workshops/"+itoa(wsID), admin, nil)
	expectError(t, w, http.StatusBadRequest, ErrCodeBadRequest)

	w = env.do(http.MethodDelete, "/api/v1/workshops/1", admin, nil)
	expectError(t, w, http.StatusBadRequest, ErrCodeBadRequest)

	w = env.do(http.MethodGet, "/api/v1/workshops/99999", admin, nil)
	expectError(t, w, http.StatusNotFound, ErrCodeNotFound)
}
