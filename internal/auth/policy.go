package auth

import (
	"github.com/nerrad567/taller-core/internal/tenant"
)

// RequireAdmin fails with ErrForbidden unless the caller is an admin.
func RequireAdmin(id Identity) error {
	if !id.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// ScopeFor returns the read scope for a request.
//
// Admins see everything, or one workshop when they name it. Non-admins are
// bound to their own workshop, and naming any workshop is forbidden even
// when it is their own.
func ScopeFor(id Identity, requested *int64) (tenant.Scope, error) {
	if id.IsAdmin() {
		if requested != nil {
			return tenant.Workshop(*requested), nil
		}
		return tenant.Global(), nil
	}
	if requested != nil {
		return tenant.Scope{}, ErrForbidden
	}
	return tenant.Workshop(id.WorkshopID), nil
}

// ResolveWorkshop returns the workshop a new tenant-owned record is stamped
// with.
//
// Admins must name a real workshop. Non-admins get their own workshop and
// may not name one. A non-admin still on the unassigned placeholder
// cannot own records yet.
func ResolveWorkshop(id Identity, requested *int64) (int64, error) {
	if id.IsAdmin() {
		if requested == nil || !tenant.IsAssigned(*requested) {
			return 0, ErrWorkshopRequired
		}
		return *requested, nil
	}
	if requested != nil {
		return 0, ErrForbidden
	}
	return RequireWorkshop(id)
}

// RequireWorkshop returns the caller's own workshop, or ErrNoWorkshop when
// they have not been assigned one.
func RequireWorkshop(id Identity) (int64, error) {
	if !id.HasWorkshop() {
		return 0, ErrNoWorkshop
	}
	return id.WorkshopID, nil
}

// WriteScope is the scope for updates and deletes. It matches ScopeFor
// but never accepts a client-supplied workshop.
func WriteScope(id Identity) tenant.Scope {
	if id.IsAdmin() {
		return tenant.Global()
	}
	return tenant.Workshop(id.WorkshopID)
}
