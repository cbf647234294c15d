// Package tenant holds the workshop scoping primitives shared by every
// tenant-owned repository.
//
// A Scope is either global (admins) or bound to one workshop. Repositories
// add the scope's predicate to every read and write, so a row owned by
// another workshop is indistinguishable from a missing row.
package tenant

import (
	"errors"
	"strings"
)

// ErrUnknownWorkshop is returned when a write names a workshop that does
// not exist.
var ErrUnknownWorkshop = errors.New("workshop does not exist")

// UnassignedWorkshopID is the placeholder workshop a user belongs to until
// they create or are assigned a real one.
const UnassignedWorkshopID int64 = 1

// IsAssigned reports whether workshopID names a real workshop.
func IsAssigned(workshopID int64) bool {
	return workshopID > 0 && workshopID != UnassignedWorkshopID
}

// Scope restricts queries to one workshop, or to none for admins.
type Scope struct {
	workshopID int64
	global     bool
}

// Global returns a scope that sees every workshop.
func Global() Scope {
	return Scope{global: true}
}

// Workshop returns a scope bound to a single workshop.
func Workshop(id int64) Scope {
	return Scope{workshopID: id}
}

// IsGlobal reports whether the scope is unrestricted.
func (s Scope) IsGlobal() bool {
	return s.global
}

// WorkshopID returns the bound workshop. ok is false for global scopes.
func (s Scope) WorkshopID() (id int64, ok bool) {
	if s.global {
		return 0, false
	}
	return s.workshopID, true
}

// Allows reports whether a row owned by workshopID is visible in this scope.
func (s Scope) Allows(workshopID int64) bool {
	return s.global || s.workshopID == workshopID
}

// Query accumulates AND-ed predicates with ? placeholders.
type Query struct {
	conds []string
	args  []any
}

// Add appends a predicate and its arguments.
func (q *Query) Add(cond string, args ...any) *Query {
	q.conds = append(q.conds, cond)
	q.args = append(q.args, args...)
	return q
}

// Scope appends the workshop predicate on column unless the scope is global.
func (q *Query) Scope(s Scope, column string) *Query {
	if id, ok := s.WorkshopID(); ok {
		q.Add(column+" = ?", id)
	}
	return q
}

// Where renders the predicates as a WHERE clause ("" when empty) and
// returns the accumulated arguments.
func (q *Query) Where() (string, []any) {
	if len(q.conds) == 0 {
		return "", q.args
	}
	return "WHERE " + strings.Join(q.conds, " AND "), q.args
}
