package api

import (
	"net/http"

	"github.com/nerrad567/taller-core/internal/audit"
	"github.com/nerrad567/taller-core/internal/auth"
)

// passwordChangeRequest is the body for POST /me/password.
type passwordChangeRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

const passwordChangedMessage = "Password updated successfully"

// handleGetMe returns the caller's current user row.
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetByID(r.Context(), identityFrom(r).UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleUpdateMe edits the caller's own profile. Role and workshop are
// admin-managed and rejected here.
func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		auth.UserPatch
		WorkshopID workshopField `json:"workshop_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	patch := req.UserPatch
	if patch.Role != nil || req.WorkshopID.Set {
		s.writeDomainError(w, r, errRoleImmutable)
		return
	}

	id := identityFrom(r)
	user, err := s.auth.UpdateUser(r.Context(), id.UserID, patch)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.auditLog(r, audit.ActionUpdate, "user", id.UserID, 0, nil)
	writeJSON(w, http.StatusOK, user)
}

// handleDeleteMe removes the caller's own account.
func (s *Server) handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	if err := s.auth.DeleteUser(r.Context(), id.UserID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.hub.DropUser(id.UserID)
	s.auditLog(r, audit.ActionDelete, "user", id.UserID, 0, nil)
	w.WriteHeader(http.StatusNoContent)
}

// handleChangePassword verifies the old password, stores the new one and
// returns a fresh token. Every earlier token stops working.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	id := identityFrom(r)
	token, err := s.auth.ChangePassword(r.Context(), id.UserID, req.OldPassword, req.NewPassword)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.hub.DropUser(id.UserID)
	s.auditLog(r, audit.ActionUpdate, "user", id.UserID, 0, map[string]any{"password_changed": true})
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   tokenTypeBearer,
		Message:     passwordChangedMessage,
	})
}

// handleLogoutAll revokes every token the caller holds, including the one
// used for this request.
func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	if err := s.auth.LogoutEverywhere(r.Context(), id.UserID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.hub.DropUser(id.UserID)
	w.WriteHeader(http.StatusNoContent)
}
