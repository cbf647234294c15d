package api

import (
	"net/http"

	"github.com/nerrad567/taller-core/internal/audit"
	"github.com/nerrad567/taller-core/internal/auth"
	"github.com/nerrad567/taller-core/internal/events"
	"github.com/nerrad567/taller-core/internal/workshop"
)

const entityWorkshop = "workshop"

// handleCreateWorkshop creates a workshop. A non-admin becomes its owner
// and can do this exactly once; admins create unowned workshops.
func (s *Server) handleCreateWorkshop(w http.ResponseWriter, r *http.Request) {
	var ws workshop.Workshop
	if err := decodeJSON(r, &ws); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := workshop.Validate(&ws); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	id := identityFrom(r)
	var err error
	if id.IsAdmin() {
		err = s.workshops.Create(r.Context(), &ws)
	} else {
		err = s.workshops.CreateForOwner(r.Context(), id.UserID, &ws)
	}
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionCreate, entityWorkshop, ws.ID, ws.ID, map[string]any{"name": ws.Name})
	s.publish(r, events.New(events.WorkshopCreated, ws.ID, ws))
	writeJSON(w, http.StatusCreated, ws)
}

// handleListWorkshops lists every workshop. Admin only.
func (s *Server) handleListWorkshops(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	list, err := s.workshops.List(r.Context(), page)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(list, page))
}

// handleGetWorkshop returns one workshop. Admin only.
func (s *Server) handleGetWorkshop(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "workshopID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	ws, err := s.workshops.Get(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

// handleGetMyWorkshop returns the caller's own workshop.
func (s *Server) handleGetMyWorkshop(w http.ResponseWriter, r *http.Request) {
	wsID, err := auth.RequireWorkshop(identityFrom(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	ws, err := s.workshops.Get(r.Context(), wsID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

// handleUpdateWorkshop patches any workshop. Admin only.
func (s *Server) handleUpdateWorkshop(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "workshopID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.updateWorkshop(w, r, id)
}

// handleUpdateMyWorkshop patches the caller's own workshop.
func (s *Server) handleUpdateMyWorkshop(w http.ResponseWriter, r *http.Request) {
	id, err := auth.RequireWorkshop(identityFrom(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.updateWorkshop(w, r, id)
}

func (s *Server) updateWorkshop(w http.ResponseWriter, r *http.Request, id int64) {
	var patch workshop.Patch
	if err := decodeJSON(r, &patch); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := workshop.ValidatePatch(&patch); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	ws, err := s.workshops.Update(r.Context(), id, patch)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionUpdate, entityWorkshop, id, id, nil)
	s.publish(r, events.New(events.WorkshopUpdated, id, ws))
	writeJSON(w, http.StatusOK, ws)
}

// handleDeleteWorkshop removes an empty workshop. Admin only.
func (s *Server) handleDeleteWorkshop(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "workshopID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.workshops.Delete(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionDelete, entityWorkshop, id, 0, nil)
	s.publish(r, events.New(events.WorkshopDeleted, id, map[string]int64{"workshop_id": id}))
	w.WriteHeader(http.StatusNoContent)
}
