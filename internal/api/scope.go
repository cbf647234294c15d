package api

import (
	"net/http"

	"github.com/nerrad567/taller-core/internal/auth"
	"github.com/nerrad567/taller-core/internal/tenant"
)

// targetWorkshop decides which workshop a new record belongs to. Admins
// must name an existing workshop; everyone else gets their own and may not
// send the key, not even as null.
func (s *Server) targetWorkshop(r *http.Request, requested workshopField) (int64, error) {
	id := identityFrom(r)
	if requested.Set && !id.IsAdmin() {
		return 0, auth.ErrForbidden
	}
	workshopID, err := auth.ResolveWorkshop(id, requested.Value)
	if err != nil {
		return 0, err
	}
	if !id.IsAdmin() {
		return workshopID, nil
	}

	exists, err := s.workshops.Exists(r.Context(), workshopID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, tenant.ErrUnknownWorkshop
	}
	return workshopID, nil
}

// rejectWorkshopChange refuses a patch that tries to move a record to
// another workshop.
func rejectWorkshopChange(r *http.Request, requested workshopField) error {
	if !requested.Set {
		return nil
	}
	if !identityFrom(r).IsAdmin() {
		return auth.ErrForbidden
	}
	return errWorkshopImmutable
}

// writeScope is the scope for lookups, updates and deletes by id.
func writeScope(r *http.Request) tenant.Scope {
	return auth.WriteScope(identityFrom(r))
}
