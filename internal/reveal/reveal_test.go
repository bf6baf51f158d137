package reveal_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/abarreto/stagevote/internal/models"
	"github.com/abarreto/stagevote/internal/reveal"
)

var pool = []models.Candidate{
	{ID: 10, Name: "Alice"},
	{ID: 20, Name: "Bruno"},
	{ID: 30, Name: "Carla"},
}

func TestCarouselInterval_SlowsTowardZero(t *testing.T) {
	cases := map[int]time.Duration{
		5: 75 * time.Millisecond,
		4: 130 * time.Millisecond,
		1: 295 * time.Millisecond,
		0: 350 * time.Millisecond,
	}
	for remaining, want := range cases {
		if got := reveal.CarouselInterval(remaining); got != want {
			t.Errorf("remaining %d: expected %v, got %v", remaining, want, got)
		}
	}

	// Out-of-range counts clamp instead of misbehaving
	if reveal.CarouselInterval(99) != reveal.CarouselInterval(5) {
		t.Error("counts above the start must clamp")
	}
	if reveal.CarouselInterval(-1) != reveal.CarouselInterval(0) {
		t.Error("negative counts must clamp")
	}
}

func TestCarouselIndex_Deterministic(t *testing.T) {
	// Two independent computations with the same inputs agree; this is
	// what keeps separate devices visually in step
	a := reveal.CarouselIndex(400*time.Millisecond, 5, 3)
	b := reveal.CarouselIndex(400*time.Millisecond, 5, 3)
	if a != b {
		t.Errorf("same inputs gave %d and %d", a, b)
	}

	// 400ms at a 75ms interval is 5 full cycles: index 5 % 3 == 2
	if a != 2 {
		t.Errorf("expected index 2, got %d", a)
	}

	if reveal.CarouselIndex(time.Second, 5, 0) != 0 {
		t.Error("empty pool must map to index 0")
	}
}

func TestWinnerIndex(t *testing.T) {
	if idx := reveal.WinnerIndex(pool, 20); idx != 1 {
		t.Errorf("expected index 1, got %d", idx)
	}
	// Winner missing from the pool falls back to the first slot
	if idx := reveal.WinnerIndex(pool, 999); idx != 0 {
		t.Errorf("expected fallback index 0, got %d", idx)
	}
}

// runToCompletion drives a sequencer on a fake clock until Run returns
func runToCompletion(t *testing.T, clock *clockwork.FakeClock, seq *reveal.Sequencer) {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- seq.Run(context.Background())
	}()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			return
		case <-deadline:
			t.Fatal("sequencer did not finish")
		default:
			// A bounded wait keeps the driver re-entering the select:
			// once Run consumes its last timer the waiter count stays
			// zero and an unbounded BlockUntil would hang forever.
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			err := clock.BlockUntilContext(ctx, 1)
			cancel()
			if err == nil {
				clock.Advance(100 * time.Millisecond)
			}
		}
	}
}

func TestRun_CountdownEndsOnWinner(t *testing.T) {
	clock := clockwork.NewFakeClock()

	var mu sync.Mutex
	var counts []int
	var locked, revealed *models.Candidate

	seq := reveal.NewSequencer(clock, pool, 30, false, reveal.Hooks{
		OnCount: func(remaining int) {
			mu.Lock()
			counts = append(counts, remaining)
			mu.Unlock()
		},
		OnLock: func(c models.Candidate) {
			mu.Lock()
			locked = &c
			mu.Unlock()
		},
		OnRevealed: func(c models.Candidate) {
			mu.Lock()
			revealed = &c
			mu.Unlock()
		},
	})

	runToCompletion(t, clock, seq)

	mu.Lock()
	defer mu.Unlock()

	want := []int{5, 4, 3, 2, 1, 0}
	if len(counts) != len(want) {
		t.Fatalf("expected counts %v, got %v", want, counts)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Fatalf("expected counts %v, got %v", want, counts)
		}
	}

	if locked == nil || locked.ID != 30 {
		t.Errorf("expected lock on winner 30, got %+v", locked)
	}
	if revealed == nil || revealed.ID != 30 {
		t.Errorf("expected reveal of winner 30, got %+v", revealed)
	}
	if seq.Phase() != reveal.PhaseRevealed {
		t.Errorf("expected revealed phase, got %s", seq.Phase())
	}
	if seq.Index() != 2 {
		t.Errorf("carousel must stop on the winner's slot, got index %d", seq.Index())
	}
}

func TestRun_ReplaySkipsCountdown(t *testing.T) {
	clock := clockwork.NewFakeClock()

	var counted bool
	var revealed *models.Candidate
	seq := reveal.NewSequencer(clock, pool, 10, true, reveal.Hooks{
		OnCount:    func(int) { counted = true },
		OnRevealed: func(c models.Candidate) { revealed = &c },
	})

	// Replay completes without any clock movement
	if err := seq.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if counted {
		t.Error("replay must not run the countdown")
	}
	if revealed == nil || revealed.ID != 10 {
		t.Errorf("expected revealed winner 10, got %+v", revealed)
	}
	if seq.Phase() != reveal.PhaseRevealed {
		t.Errorf("expected revealed phase, got %s", seq.Phase())
	}
}

func TestRun_UnknownWinnerLocksFirstSlot(t *testing.T) {
	clock := clockwork.NewFakeClock()

	var locked *models.Candidate
	seq := reveal.NewSequencer(clock, pool, 999, false, reveal.Hooks{
		OnLock: func(c models.Candidate) { locked = &c },
	})

	runToCompletion(t, clock, seq)

	if locked == nil || locked.ID != pool[0].ID {
		t.Errorf("expected fallback lock on first candidate, got %+v", locked)
	}
}

func TestRun_CancelAborts(t *testing.T) {
	clock := clockwork.NewFakeClock()
	seq := reveal.NewSequencer(clock, pool, 10, false, reveal.Hooks{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- seq.Run(ctx)
	}()

	clock.BlockUntil(1)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
