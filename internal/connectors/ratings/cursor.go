package ratings

import (
	"strconv"
	"strings"
)

// Cursor locates a page: which search term is being walked and the
// source's opaque cursor within that term's results.
type Cursor struct {
	// Term is the index into the configured search terms.
	Term int

	// After is the source cursor. Empty means the term's first page.
	After string
}

// Encode serialises the cursor as "term:after".
func (c Cursor) Encode() string {
	return strconv.Itoa(c.Term) + ":" + c.After
}

// DecodeCursor parses a cursor. The empty string is the start of iteration.
func DecodeCursor(s string) (Cursor, error) {
	if s == "" {
		return Cursor{}, nil
	}

	idx, after, ok := strings.Cut(s, ":")
	if !ok {
		return Cursor{}, ErrInvalidCursor
	}

	term, err := strconv.Atoi(idx)
	if err != nil || term < 0 {
		return Cursor{}, ErrInvalidCursor
	}

	return Cursor{Term: term, After: after}, nil
}
