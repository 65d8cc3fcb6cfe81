package applier

import (
	"sync"
	"time"

	"github.com/shopmorph/Kaleido/utils"
)

// MutationSubscription coalesces DOM-change notifications into reapply
// calls. Notifications inside the debounce window collapse into one
// invocation; the subscription retires itself after a maximum lifetime or
// trigger count so a pathologically chatty page cannot keep it alive
// forever.
type MutationSubscription struct {
	mu       sync.Mutex
	reapply  func()
	timer    *time.Timer
	deadline time.Time
	triggers int
	disposed bool

	debounce    time.Duration
	maxTriggers int
}

// Subscribe starts watching for mutations on behalf of this applier.
// reapply runs on the subscription's timer goroutine.
func (a *Applier) Subscribe(reapply func()) *MutationSubscription {
	return newSubscription(reapply, utils.MutationDebounce, utils.MutationMaxLifetime, utils.MutationMaxTriggers)
}

func newSubscription(reapply func(), debounce, lifetime time.Duration, maxTriggers int) *MutationSubscription {
	return &MutationSubscription{
		reapply:     reapply,
		deadline:    time.Now().Add(lifetime),
		debounce:    debounce,
		maxTriggers: maxTriggers,
	}
}

// Notify records one observed mutation. The reapply fires once the
// debounce window closes without further notifications.
func (s *MutationSubscription) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	if time.Now().After(s.deadline) {
		s.disposeLocked()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.fire)
}

func (s *MutationSubscription) fire() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.triggers++
	if s.triggers > s.maxTriggers || time.Now().After(s.deadline) {
		s.disposeLocked()
		s.mu.Unlock()
		return
	}
	reapply := s.reapply
	s.mu.Unlock()

	reapply()
}

// Disposed reports whether the subscription has retired
func (s *MutationSubscription) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// Dispose stops the subscription permanently
func (s *MutationSubscription) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposeLocked()
}

func (s *MutationSubscription) disposeLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.disposed = true
}
