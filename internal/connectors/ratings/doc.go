// Package ratings implements the review source adapter over the ratings
// site's GraphQL search API.
//
// The site caps results per query, so an institution is enumerated by
// walking a list of search terms ("a".."z" by default) and paging each to
// exhaustion. A cursor records the term index and the site's own cursor
// within it. Instructors matching several terms appear on several pages;
// callers deduplicate by ID.
//
// Requests are spaced by a token bucket and guarded by a circuit breaker.
// The adapter never retries. Every failure wraps domain.ErrTransport.
package ratings
