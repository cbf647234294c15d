package inventory

import (
	"fmt"
	"time"
)

// Item is one part stocked by one workshop. Prices are in cents.
type Item struct {
	WorkshopID    int64     `db:"workshop_id" json:"workshop_id"`
	PartID        int64     `db:"part_id" json:"part_id"`
	Quantity      int       `db:"quantity" json:"quantity"`
	PurchasePrice int64     `db:"purchase_price" json:"purchase_price"`
	SalePrice     int64     `db:"sale_price" json:"sale_price"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`

	PartName  string `db:"part_name" json:"part_name"`
	PartBrand string `db:"part_brand" json:"part_brand"`
}

// Patch carries a partial update. Nil fields are left untouched.
type Patch struct {
	Quantity      *int   `json:"quantity"`
	PurchasePrice *int64 `json:"purchase_price"`
	SalePrice     *int64 `json:"sale_price"`
}

// Filter narrows inventory listings.
type Filter struct {
	LowStock int // when > 0, only items with quantity below this
}

// Validate checks an item before insert.
func Validate(it *Item) error {
	if it.PartID <= 0 {
		return fmt.Errorf("%w: part_id is required", ErrInvalidItem)
	}
	return validateAmounts(&it.Quantity, &it.PurchasePrice, &it.SalePrice)
}

// ValidatePatch checks the fields present in p.
func ValidatePatch(p *Patch) error {
	return validateAmounts(p.Quantity, p.PurchasePrice, p.SalePrice)
}

func validateAmounts(quantity *int, purchase, sale *int64) error {
	if quantity != nil && *quantity < 0 {
		return fmt.Errorf("%w: quantity cannot be negative", ErrInvalidItem)
	}
	if purchase != nil && *purchase < 0 {
		return fmt.Errorf("%w: purchase_price cannot be negative", ErrInvalidItem)
	}
	if sale != nil && *sale < 0 {
		return fmt.Errorf("%w: sale_price cannot be negative", ErrInvalidItem)
	}
	return nil
}
