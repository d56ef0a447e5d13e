package driven

import (
	"context"

	"github.com/custodia-labs/profrank/internal/core/domain"
)

// SourceAdapter fetches instructor records from the review source one page
// at a time. Iteration is lazy and restartable: the empty cursor starts from
// the beginning and a page's NextCursor resumes after it.
//
// Implementations do not retry. Any failure to obtain a page is returned as
// an error wrapping domain.ErrTransport, never as an empty page. A cursor the
// adapter cannot decode wraps domain.ErrInvalidInput instead.
type SourceAdapter interface {
	// FetchPage returns the page at cursor.
	FetchPage(ctx context.Context, cursor string) (*domain.RawPage, error)
}
