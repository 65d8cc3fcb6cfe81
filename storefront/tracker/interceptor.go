package tracker

import (
	"context"
	"regexp"
	"sync"
)

// cartMutationRe matches the storefront cart-mutation endpoints the
// interceptor watches for when no explicit binding fired.
var cartMutationRe = regexp.MustCompile(`(?i)/cart/(add|update|change)(\.js)?(\?|$)`)

// Interceptor is the network-level add-to-cart fallback. The host invokes
// Observe for every outgoing storefront request; a cart mutation that no
// explicit binding caught becomes a fallback add-to-cart event, at most
// once per (test, case) for the session.
type Interceptor struct {
	tracker *Tracker

	mu      sync.Mutex
	removed bool
}

// Interceptor registers the network fallback for this tracker
func (t *Tracker) Interceptor() *Interceptor {
	return &Interceptor{tracker: t}
}

// Observe inspects one outgoing request. Returns true when a fallback
// event was sent.
func (i *Interceptor) Observe(ctx context.Context, method, requestURL string) bool {
	i.mu.Lock()
	if i.removed {
		i.mu.Unlock()
		return false
	}
	i.mu.Unlock()

	if method != "POST" || !cartMutationRe.MatchString(requestURL) {
		return false
	}

	t := i.tracker
	assignment := t.assignment()
	if assignment == nil || !assignment.Active {
		return false
	}

	// Hard dedup: one fallback add-to-cart per (test, case) per session,
	// persisted so reloads of the same page view cannot resend it.
	key := "kaleido_atc_" + assignment.TestID + "_" + assignment.Case
	if _, ok := t.flags.Get(key); ok {
		return false
	}

	if !t.send(ctx, eventAddToCart, nil, nil, true) {
		return false
	}
	t.flags.Set(key, "1")
	return true
}

// Remove deregisters the interceptor permanently
func (i *Interceptor) Remove() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.removed = true
}

// Removed reports whether Remove has been called
func (i *Interceptor) Removed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.removed
}
