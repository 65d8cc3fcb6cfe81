package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmorph/Kaleido/utils"
)

func TestCurrent_MintsAndReuses(t *testing.T) {
	m := NewManager(NewMemoryStore(), 12*time.Hour)

	first := m.Current()
	require.NotEmpty(t, first)

	second := m.Current()
	assert.Equal(t, first, second)
}

func TestCurrent_ExpiredEnvelopeRegenerates(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, 12*time.Hour)

	first := m.Current()

	// Age the stored envelope past the TTL
	env := envelope{Token: first, CreatedAt: utils.UTCNow().Add(-13 * time.Hour)}
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	store.Set(utils.SessionStorageKey, string(raw))

	second := m.Current()
	assert.NotEqual(t, first, second)
}

func TestCurrent_CorruptEnvelopeRegenerates(t *testing.T) {
	store := NewMemoryStore()
	store.Set(utils.SessionStorageKey, "{not json")

	m := NewManager(store, 12*time.Hour)
	token := m.Current()
	assert.NotEmpty(t, token)

	// The corrupt record was replaced with a valid one
	raw, ok := store.Get(utils.SessionStorageKey)
	require.True(t, ok)
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	assert.Equal(t, token, env.Token)
}

func TestExpire(t *testing.T) {
	m := NewManager(NewMemoryStore(), time.Hour)

	first := m.Current()
	m.Expire()
	second := m.Current()

	assert.NotEqual(t, first, second)
}
