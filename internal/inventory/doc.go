// Package inventory tracks each workshop's stock of catalog parts.
//
// A stock row is keyed by (workshop, part) and carries the quantity on
// hand with purchase and sale prices in cents. Jobs draw stock through
// Consume and return it through Restock inside their own transaction, so
// the quantity can never go negative.
package inventory
