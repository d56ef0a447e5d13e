package domain

// SortKey selects the ranking order.
type SortKey string

// Available sort keys.
const (
	SortComposite      SortKey = "composite"
	SortQuality        SortKey = "quality"
	SortDifficulty     SortKey = "difficulty"
	SortWouldTakeAgain SortKey = "would_take_again"
	SortRatingCount    SortKey = "rating_count"
	SortName           SortKey = "name"
)

// SortKeys lists every valid key.
func SortKeys() []SortKey {
	return []SortKey{SortComposite, SortQuality, SortDifficulty, SortWouldTakeAgain, SortRatingCount, SortName}
}

// IsValid returns true if the sort key is recognised.
func (k SortKey) IsValid() bool {
	for _, v := range SortKeys() {
		if k == v {
			return true
		}
	}
	return false
}

// DefaultAscending reports the natural direction for the key.
// Difficulty and name read best ascending; everything else descending.
func (k SortKey) DefaultAscending() bool {
	return k == SortDifficulty || k == SortName
}

// SortOrder overrides a key's natural direction.
type SortOrder string

// Sort orders. The empty order means the key's default.
const (
	OrderDefault SortOrder = ""
	OrderAsc     SortOrder = "asc"
	OrderDesc    SortOrder = "desc"
)

// Ascending resolves the order against a key.
func (o SortOrder) Ascending(k SortKey) bool {
	switch o {
	case OrderAsc:
		return true
	case OrderDesc:
		return false
	default:
		return k.DefaultAscending()
	}
}
