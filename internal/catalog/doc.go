// Package catalog holds the global car-model and part catalogs shared by
// every workshop, and the table recording which parts fit which models.
package catalog
