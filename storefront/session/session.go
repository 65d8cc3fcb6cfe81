// Package session manages the visitor session token that keeps case
// assignment sticky across page views.
package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopmorph/Kaleido/utils"
)

// Store is the key-value backing for session envelopes. The production
// embedding persists through browser localStorage; MemoryStore serves
// server-side rendering and tests.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// MemoryStore is a goroutine-safe in-memory Store
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok
}

func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}

// envelope is the persisted session record
type envelope struct {
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

// Manager hands out the current session token, regenerating it when the
// stored envelope is absent, corrupt, or older than the TTL.
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewManager(store Store, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = utils.SessionTTL
	}
	return &Manager{
		store: store,
		ttl:   ttl,
		now:   utils.UTCNow,
	}
}

// Current returns the active session token, minting a fresh one if needed
func (m *Manager) Current() string {
	raw, ok := m.store.Get(utils.SessionStorageKey)
	if ok {
		var env envelope
		if err := json.Unmarshal([]byte(raw), &env); err == nil && env.Token != "" {
			if m.now().Sub(env.CreatedAt) < m.ttl {
				return env.Token
			}
		}
		// Corrupt or expired envelopes are replaced, never reused
		m.store.Delete(utils.SessionStorageKey)
	}

	return m.create()
}

// Expire drops the stored session so the next Current() mints a new token
func (m *Manager) Expire() {
	m.store.Delete(utils.SessionStorageKey)
}

func (m *Manager) create() string {
	env := envelope{
		Token:     uuid.New().String(),
		CreatedAt: m.now(),
	}
	raw, err := json.Marshal(env)
	if err != nil {
		// Marshal of a plain struct cannot fail; keep the token usable anyway
		return env.Token
	}
	m.store.Set(utils.SessionStorageKey, string(raw))
	return env.Token
}
