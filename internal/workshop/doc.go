// Package workshop manages the tenant boundary itself.
//
// Every customer, worker, job and inventory row belongs to exactly one
// workshop. Row 1 is a reserved placeholder ("Unassigned") that new
// accounts sit on until they create a workshop with CreateForOwner or an
// admin assigns them one. The placeholder can be neither edited nor
// deleted.
package workshop
