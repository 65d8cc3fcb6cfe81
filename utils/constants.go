package utils

import (
	"time"
)

// ContextKey is the type used for values stored on request contexts
type ContextKey string

// Context keys set by handlers and read by flows for audit logging
const (
	RequestIDKey  ContextKey = "request_id"
	UserAgentKey  ContextKey = "user_agent"
	IPAddressKey  ContextKey = "ip_address"
	EndpointKey   ContextKey = "endpoint"
	TimeoutKey    ContextKey = "timeout"
	CancelFuncKey ContextKey = "cancel_func"
)

// Session and assignment constants
const (
	// SessionTTL is the time-to-live for shopper sessions (12 hours)
	SessionTTL = 12 * time.Hour

	// SessionStorageKey is the fixed key the session envelope is stored under
	SessionStorageKey = "kaleido_session"

	// AssignmentMaxAttempts is the number of assignment fetch attempts before giving up
	AssignmentMaxAttempts = 3

	// AssignmentBackoffStep is the linear backoff increment between assignment retries
	AssignmentBackoffStep = 300 * time.Millisecond
)

// Gallery detection constants
const (
	// MinProductImageSize is the minimum rendered dimension (px) for an image
	// to qualify as a product image rather than an icon or swatch
	MinProductImageSize = 150

	// AncestorCoverageThreshold is the share of qualified product images an
	// ancestor must contain for common-ancestor inference to accept it
	AncestorCoverageThreshold = 0.8
)

// Mutation re-apply constants
const (
	// MutationDebounce is the settle delay after a DOM mutation before re-applying
	MutationDebounce = 150 * time.Millisecond

	// MutationMaxLifetime bounds how long a mutation subscription stays alive
	MutationMaxLifetime = 15 * time.Second

	// MutationMaxTriggers bounds how many times a subscription may fire
	MutationMaxTriggers = 10
)

// Conversion tracking constants
const (
	// AddToCartThrottle is the minimum interval between explicit-listener sends
	AddToCartThrottle = 2 * time.Second
)

const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)
