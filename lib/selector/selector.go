// Package selector resolves logical UI targets through ordered fallback
// chains. Production markup drifts between releases, so every logical
// element ("username field", "results table") is described by several
// candidate locators tried in priority order.
package selector

import (
	"context"
	"log/slog"
	"time"

	"appointments-backend/lib/browser"
)

// Probe tries one candidate and reports whether it resolved. A false
// return is a recoverable signal to advance, never an error.
type Probe[T any] func() (T, bool)

// First runs probes in declared order and returns the first hit.
// Probes past the hit are never invoked.
func First[T any](probes ...Probe[T]) (T, bool) {
	for _, probe := range probes {
		out, ok := probe()
		if ok {
			return out, true
		}
	}
	var zero T
	return zero, false
}

// Resolve tries each candidate locator against the page, bounding every
// attempt by perTry. It returns the handle of the first candidate that
// resolves, or false once all candidates are exhausted. Callers must
// treat false as a recoverable condition and pick a fallback behavior.
func Resolve(ctx context.Context, page browser.Page, candidates []string, perTry time.Duration) (browser.Element, bool) {
	probes := make([]Probe[browser.Element], len(candidates))
	for i, candidate := range candidates {
		candidate := candidate
		probes[i] = func() (browser.Element, bool) {
			el, err := page.WaitForSelector(candidate, perTry)
			if err != nil {
				slog.DebugContext(ctx, "candidate did not resolve", "selector", candidate)
				return nil, false
			}
			return el, true
		}
	}
	return First(probes...)
}
