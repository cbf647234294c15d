// Package customer stores a workshop's customers and the vehicles they
// bring in.
//
// Customers are tenant-owned. A vehicle inherits its tenant from the
// customer that owns it, so every vehicle query joins through customers
// and applies the caller's tenant.Scope there. A row outside the scope is
// reported exactly like a missing one.
package customer
