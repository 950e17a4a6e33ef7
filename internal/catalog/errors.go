package catalog

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by every upstream-facing package. Callers branch
// on these with errors.Is / errors.As, never on message text.
var (
	// ErrUpstreamUnavailable signals a transport-level failure (timeout,
	// 5xx, malformed payload) that persisted after retries. Retryable.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrScrapeUnavailable signals that a web page could not be retrieved.
	// It only ever affects the fields that depended on that page.
	ErrScrapeUnavailable = errors.New("scrape unavailable")

	// ErrNotFound signals that an ID-addressed entity does not exist
	// upstream. Distinct from an empty search result, which is not an error.
	ErrNotFound = errors.New("not found")
)

// UpstreamRejectedError reports a well-formed error payload from the graph
// service (invalid variable, unknown ID). Never retried: resending a
// malformed request cannot succeed.
type UpstreamRejectedError struct {
	Reason string
}

func (e *UpstreamRejectedError) Error() string {
	return fmt.Sprintf("upstream rejected request: %s", e.Reason)
}

// IsRetryable reports whether the error is worth retrying at a higher level.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable)
}
