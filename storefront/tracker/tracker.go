// Package tracker reports funnel events for an assigned page view. Explicit
// add-to-cart bindings and the network interceptor fallback both funnel into
// a single send path; delivery prefers fire-and-forget beacons and falls
// back to a keep-alive request.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/shopmorph/Kaleido/storefront/client"
	"github.com/shopmorph/Kaleido/storefront/session"
	"github.com/shopmorph/Kaleido/utils"
)

// Event types accepted by the ingestion endpoint
const (
	eventImpression = "impression"
	eventAddToCart  = "add_to_cart"
	eventPurchase   = "purchase"
)

// BeaconFunc is the host's fire-and-forget transport. Returning false hands
// the payload to the keep-alive fallback.
type BeaconFunc func(endpoint string, payload []byte) bool

// AssignmentSource yields the page's current assignment, nil when none
type AssignmentSource func() *client.Assignment

type eventPayload struct {
	TestID    string   `json:"test_id"`
	SessionID string   `json:"session_id"`
	EventType string   `json:"event_type"`
	ProductID string   `json:"product_id"`
	Case      string   `json:"case"`
	VariantID *string  `json:"variant_id,omitempty"`
	Revenue   *float64 `json:"revenue,omitempty"`
	Fallback  bool     `json:"fallback,omitempty"`
}

// Tracker reports events for one page view
type Tracker struct {
	endpoint   string
	sessionID  string
	productID  string
	assignment AssignmentSource
	flags      session.Store
	beacon     BeaconFunc
	httpClient *http.Client
	now        func() time.Time
	throttle   time.Duration

	mu             sync.Mutex
	lastAddToCart  time.Time
	impressionSent bool
}

// Options configures optional tracker collaborators
type Options struct {
	// Beacon is tried first for every send; nil means always fall back
	Beacon BeaconFunc
	// HTTPClient serves the keep-alive fallback
	HTTPClient *http.Client
	// Flags persists interceptor dedup markers across page views within
	// the session. Defaults to an in-memory store.
	Flags session.Store
}

func New(baseURL, sessionID, productID string, assignment AssignmentSource, opts Options) *Tracker {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	flags := opts.Flags
	if flags == nil {
		flags = session.NewMemoryStore()
	}
	return &Tracker{
		endpoint:   baseURL + "/api/v1/events",
		sessionID:  sessionID,
		productID:  productID,
		assignment: assignment,
		flags:      flags,
		beacon:     opts.Beacon,
		httpClient: httpClient,
		now:        time.Now,
		throttle:   utils.AddToCartThrottle,
	}
}

// TrackImpression reports the page view, once per tracker
func (t *Tracker) TrackImpression(ctx context.Context) bool {
	t.mu.Lock()
	if t.impressionSent {
		t.mu.Unlock()
		return false
	}
	t.impressionSent = true
	t.mu.Unlock()

	return t.send(ctx, eventImpression, nil, nil, false)
}

// TrackAddToCart reports an explicit add-to-cart interaction. Repeat
// triggers inside the throttle window are dropped.
func (t *Tracker) TrackAddToCart(ctx context.Context, variantID *string) bool {
	t.mu.Lock()
	now := t.now()
	if !t.lastAddToCart.IsZero() && now.Sub(t.lastAddToCart) < t.throttle {
		t.mu.Unlock()
		return false
	}
	t.lastAddToCart = now
	t.mu.Unlock()

	return t.send(ctx, eventAddToCart, variantID, nil, false)
}

// LineItem is one purchased line of a completed checkout
type LineItem struct {
	ProductID string
	VariantID string
	Price     float64
	Quantity  int
}

// TrackPurchase reports the completed checkout's line items matching the
// tracked product, once per (checkout, line item).
func (t *Tracker) TrackPurchase(ctx context.Context, checkoutID string, items []LineItem) int {
	sent := 0
	for i, item := range items {
		if item.ProductID != t.productID {
			continue
		}
		key := "kaleido_purchase_" + checkoutID + "_" + strconv.Itoa(i)
		if _, ok := t.flags.Get(key); ok {
			continue
		}

		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		revenue := item.Price * float64(qty)
		variant := item.VariantID
		var variantPtr *string
		if variant != "" {
			variantPtr = &variant
		}
		if t.send(ctx, eventPurchase, variantPtr, &revenue, false) {
			t.flags.Set(key, "1")
			sent++
		}
	}
	return sent
}

// send is the single delivery path for every event source
func (t *Tracker) send(ctx context.Context, eventType string, variantID *string, revenue *float64, fallback bool) bool {
	assignment := t.assignment()
	if assignment == nil || !assignment.Active {
		return false
	}

	payload, err := json.Marshal(eventPayload{
		TestID:    assignment.TestID,
		SessionID: t.sessionID,
		EventType: eventType,
		ProductID: t.productID,
		Case:      assignment.Case,
		VariantID: variantID,
		Revenue:   revenue,
		Fallback:  fallback,
	})
	if err != nil {
		return false
	}

	if t.beacon != nil && t.beacon(t.endpoint, payload) {
		return true
	}
	return t.postKeepAlive(ctx, payload)
}

func (t *Tracker) postKeepAlive(ctx context.Context, payload []byte) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode < 400
}
