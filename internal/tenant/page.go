package tenant

// Pagination bounds.
const (
	DefaultLimit = 100
	MaxLimit     = 500
)

// Page is a skip/limit window over a list.
type Page struct {
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}
