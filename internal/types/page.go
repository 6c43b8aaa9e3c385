// README: Skip/limit pagination shared by list operations.
package types

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Page struct {
	Skip  int
	Limit int
}

// Clamp returns a page with skip >= 0 and limit within [1, MaxLimit].
func (p Page) Clamp() Page {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit < 1 {
		p.Limit = 1
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Apply slices items according to the page. The page must already be clamped.
func Apply[T any](items []T, p Page) []T {
	if p.Skip >= len(items) {
		return []T{}
	}
	end := p.Skip + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[p.Skip:end]
}
