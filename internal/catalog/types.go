package catalog

// Car is a catalog car model.
type Car struct {
	ID    int64  `db:"id" json:"car_id"`
	Brand string `db:"brand" json:"brand"`
	Model string `db:"model" json:"model"`
	Year  int    `db:"year" json:"year"`
}

// CarPatch carries a partial car update.
type CarPatch struct {
	Brand *string `json:"brand"`
	Model *string `json:"model"`
	Year  *int    `json:"year"`
}

// CarFilter narrows car listings. Zero values match everything.
type CarFilter struct {
	Brand string
	Model string
	Year  int
}

// Part is a catalog part.
type Part struct {
	ID          int64  `db:"id" json:"part_id"`
	Name        string `db:"name" json:"name"`
	Brand       string `db:"brand" json:"brand"`
	Description string `db:"description" json:"description"`
	Category    string `db:"category" json:"category"`
}

// PartPatch carries a partial part update.
type PartPatch struct {
	Name        *string `json:"name"`
	Brand       *string `json:"brand"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
}

// PartFilter narrows part listings. Zero values match everything.
type PartFilter struct {
	Category string
	Search   string // case-insensitive substring of name or brand
	CarID    int64  // only parts compatible with this car model
}
