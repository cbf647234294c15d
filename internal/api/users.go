package api

import (
	"net/http"

	"github.com/nerrad567/taller-core/internal/audit"
	"github.com/nerrad567/taller-core/internal/auth"
	"github.com/nerrad567/taller-core/internal/tenant"
)

// ─── Request/Response Types ────────────────────────────────────────

type resetPasswordRequest struct {
	NewPassword string `json:"new_password"`
}

const entityUser = "user"

// ─── Handlers ──────────────────────────────────────────────────────
// Every handler here sits behind adminOnly.

// handleListUsers returns user accounts, optionally for one ?workshop_id.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	scope, err := readScope(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	page, err := pageFrom(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	users, err := s.users.List(r.Context(), scope, page)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(users, page))
}

// handleCreateUser creates an account with any role and workshop.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req auth.NewUser
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.checkWorkshop(r, req.WorkshopID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	user, err := s.auth.CreateUser(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionCreate, entityUser, user.ID, 0, map[string]any{"role": user.Role, "workshop_id": user.WorkshopID})
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleUpdateUser patches any field, including role and workshop. The
// change applies to the user's very next request.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var patch auth.UserPatch
	if err := decodeJSON(r, &patch); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if patch.WorkshopID != nil {
		if err := s.checkWorkshop(r, *patch.WorkshopID); err != nil {
			s.writeDomainError(w, r, err)
			return
		}
	}

	user, err := s.auth.UpdateUser(r.Context(), id, patch)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	// Open sockets were authorised for the old role or workshop.
	if patch.Role != nil || patch.WorkshopID != nil {
		s.hub.DropUser(id)
	}
	s.auditLog(r, audit.ActionUpdate, entityUser, id, 0, nil)
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.auth.DeleteUser(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.hub.DropUser(id)
	s.auditLog(r, audit.ActionDelete, entityUser, id, 0, nil)
	w.WriteHeader(http.StatusNoContent)
}

// handleResetPassword sets a user's password without the old one and
// revokes their tokens.
func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	if err := s.auth.ResetPassword(r.Context(), id, req.NewPassword); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.hub.DropUser(id)
	s.auditLog(r, audit.ActionUpdate, entityUser, id, 0, map[string]any{"password_reset": true})
	w.WriteHeader(http.StatusNoContent)
}

// handleRevokeUserSessions revokes every token of a user.
func (s *Server) handleRevokeUserSessions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.auth.LogoutEverywhere(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.hub.DropUser(id)
	s.auditLog(r, audit.ActionUpdate, entityUser, id, 0, map[string]any{"sessions_revoked": true})
	w.WriteHeader(http.StatusNoContent)
}

// checkWorkshop rejects a user assignment to a workshop that does not
// exist. Zero and the unassigned workshop are always accepted.
func (s *Server) checkWorkshop(r *http.Request, workshopID int64) error {
	if !tenant.IsAssigned(workshopID) {
		if workshopID < 0 {
			return tenant.ErrUnknownWorkshop
		}
		return nil
	}
	exists, err := s.workshops.Exists(r.Context(), workshopID)
	if err != nil {
		return err
	}
	if !exists {
		return tenant.ErrUnknownWorkshop
	}
	return nil
}
