// Package reveal implements the synchronized winner reveal: a fixed
// 5-to-0 countdown over a cycling photo carousel that every device runs
// independently yet finishes on the same candidate at the same moment.
// Nothing here is random; the drama is a deterministic function of time.
package reveal

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/abarreto/stagevote/internal/models"
)

const (
	// CountdownFrom is the starting count of the reveal
	CountdownFrom = 5
	// DramaticPause separates the lock-in from the full reveal display
	DramaticPause = 3 * time.Second
)

// Phase is the sequencer's presentation state
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseCountdown Phase = "countdown"
	PhaseLocked    Phase = "locked"
	PhaseRevealed  Phase = "revealed"
)

// CarouselInterval returns the cycle speed for a given remaining count:
// fast at the start, slowing as the count approaches zero.
func CarouselInterval(remaining int) time.Duration {
	if remaining > CountdownFrom {
		remaining = CountdownFrom
	}
	if remaining < 0 {
		remaining = 0
	}
	return 75*time.Millisecond + time.Duration(CountdownFrom-remaining)*55*time.Millisecond
}

// CarouselIndex is the pure timing function behind the carousel: which
// pool index is showing after elapsed time at the given count. Driven by
// an interval timer, never by chance, so it is unit-testable without
// timers and identical on every device.
func CarouselIndex(elapsed time.Duration, remaining, poolSize int) int {
	if poolSize <= 0 {
		return 0
	}
	interval := CarouselInterval(remaining)
	return int(elapsed/interval) % poolSize
}

// WinnerIndex locates the winner in the candidate pool. A winner id that
// is not in the pool maps to index 0 so a stale pool still renders
// something sensible.
func WinnerIndex(pool []models.Candidate, winnerID int) int {
	for i, c := range pool {
		if c.ID == winnerID {
			return i
		}
	}
	return 0
}

// Hooks are the presentation callbacks. All are optional.
type Hooks struct {
	OnCount    func(remaining int)
	OnCycle    func(index int)
	OnLock     func(c models.Candidate)
	OnRevealed func(c models.Candidate)
}

// Sequencer runs one reveal. Given the same winner id and pool, two
// independent runs converge on the same candidate at count zero; the
// clock is injected so tests drive it deterministically.
type Sequencer struct {
	clock    clockwork.Clock
	pool     []models.Candidate
	winnerID int
	replay   bool
	hooks    Hooks

	mu    sync.RWMutex
	phase Phase
	index int
}

// NewSequencer creates a sequencer. replay marks a winner that was
// already revealed (page reload): Run then skips the countdown entirely,
// because the countdown presents a transition, not a recoverable state.
func NewSequencer(clock clockwork.Clock, pool []models.Candidate, winnerID int, replay bool, hooks Hooks) *Sequencer {
	return &Sequencer{
		clock:    clock,
		pool:     pool,
		winnerID: winnerID,
		replay:   replay,
		hooks:    hooks,
		phase:    PhaseIdle,
	}
}

// Phase returns the current presentation phase
func (s *Sequencer) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Index returns the carousel position currently showing
func (s *Sequencer) Index() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

func (s *Sequencer) set(phase Phase, index int) {
	s.mu.Lock()
	s.phase = phase
	s.index = index
	s.mu.Unlock()
}

// Run drives the reveal to completion. It returns ctx.Err() if the
// surrounding state machine cancels mid-animation; the sequencer itself
// never aborts on event data changes.
func (s *Sequencer) Run(ctx context.Context) error {
	winnerIdx := WinnerIndex(s.pool, s.winnerID)

	if s.replay {
		s.set(PhaseRevealed, winnerIdx)
		s.revealed(winnerIdx)
		return nil
	}

	s.set(PhaseCountdown, 0)
	start := s.clock.Now()

	for remaining := CountdownFrom; remaining > 0; remaining-- {
		if s.hooks.OnCount != nil {
			s.hooks.OnCount(remaining)
		}
		if err := s.cycleFor(ctx, start, remaining); err != nil {
			return err
		}
	}
	if s.hooks.OnCount != nil {
		s.hooks.OnCount(0)
	}

	// Count zero: the carousel stops exactly on the winner
	s.set(PhaseLocked, winnerIdx)
	if s.hooks.OnLock != nil && len(s.pool) > 0 {
		s.hooks.OnLock(s.pool[winnerIdx])
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(DramaticPause):
	}

	s.set(PhaseRevealed, winnerIdx)
	s.revealed(winnerIdx)
	return nil
}

func (s *Sequencer) revealed(winnerIdx int) {
	if s.hooks.OnRevealed != nil && len(s.pool) > 0 {
		s.hooks.OnRevealed(s.pool[winnerIdx])
	}
}

// cycleFor spins the carousel for one second of countdown at the speed
// belonging to the remaining count
func (s *Sequencer) cycleFor(ctx context.Context, start time.Time, remaining int) error {
	ticker := s.clock.NewTicker(CarouselInterval(remaining))
	defer ticker.Stop()
	second := s.clock.After(time.Second)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-second:
			return nil
		case <-ticker.Chan():
			index := CarouselIndex(s.clock.Since(start), remaining, len(s.pool))
			s.mu.Lock()
			s.index = index
			s.mu.Unlock()
			if s.hooks.OnCycle != nil {
				s.hooks.OnCycle(index)
			}
		}
	}
}
