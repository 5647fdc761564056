package extract

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures so callers can branch on the failure
// mode itself instead of sniffing error message text.
type Kind int

const (
	// KindUnsupportedSite means no scraper strategy is registered for the
	// URL's domain. Expected; triggers the fallback pipeline.
	KindUnsupportedSite Kind = iota
	// KindExtractionFailed means a strategy matched the site but scraping
	// failed. Terminal; no fallback is attempted.
	KindExtractionFailed
	// KindNoRecipeFound means the heuristic extractor found nothing usable.
	// Triggers the LLM fallback.
	KindNoRecipeFound
	// KindNetworkError means fetching the page itself failed.
	KindNetworkError
	// KindUpstreamUnavailable means the language-model call failed.
	KindUpstreamUnavailable
	// KindTimedOut means the language-model call did not finish in time.
	KindTimedOut
	// KindMalformedOutput means the model output was neither valid JSON nor
	// recoverable by the free-text parser.
	KindMalformedOutput
)

func (k Kind) String() string {
	switch k {
	case KindUnsupportedSite:
		return "unsupported site"
	case KindExtractionFailed:
		return "extraction failed"
	case KindNoRecipeFound:
		return "no recipe found"
	case KindNetworkError:
		return "network error"
	case KindUpstreamUnavailable:
		return "upstream unavailable"
	case KindTimedOut:
		return "timed out"
	case KindMalformedOutput:
		return "malformed output"
	}
	return "unknown"
}

// Error is a pipeline failure tagged with its Kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// errKind constructs a tagged error.
func errKind(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the Kind from an error chain. The second return is false
// when the error carries no pipeline kind.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
