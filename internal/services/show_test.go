package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/abarreto/stagevote/internal/logger"
	"github.com/abarreto/stagevote/internal/models"
	"github.com/abarreto/stagevote/internal/notify"
	"github.com/abarreto/stagevote/internal/repository"
	"github.com/abarreto/stagevote/internal/services"
	"github.com/abarreto/stagevote/internal/testutil"
)

// setupShowService creates a ShowService with a fake clock so timing
// assertions are exact
func setupShowService(t *testing.T) (*services.ShowService, *clockwork.FakeClock, *repository.Repository) {
	t.Helper()
	repo := testutil.NewTestRepository(t)
	log := logger.New()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 6, 13, 20, 0, 0, 0, time.UTC))
	svc := services.NewShowService(log, repo, clock, notify.Noop{})
	return svc, clock, repo
}

// seedCandidate inserts a candidate and returns its id
func seedCandidate(t *testing.T, repo *repository.Repository, name string, category models.Category, finalist bool) int {
	t.Helper()
	id, err := repo.CreateCandidate(context.Background(), name, category, "", finalist)
	if err != nil {
		t.Fatalf("CreateCandidate failed: %v", err)
	}
	return int(id)
}

func TestCreateEvent_RequiresSession(t *testing.T) {
	svc, _, _ := setupShowService(t)

	_, err := svc.CreateEvent(context.Background(), "", models.EventSemifinal, nil)
	if !errors.Is(err, services.ErrSessionRequired) {
		t.Errorf("expected ErrSessionRequired, got %v", err)
	}
}

func TestCreateEvent_RejectsUnknownType(t *testing.T) {
	svc, _, _ := setupShowService(t)

	_, err := svc.CreateEvent(context.Background(), "june-gala", models.EventType("quarterfinal"), nil)
	if !errors.Is(err, services.ErrInvalidEventType) {
		t.Errorf("expected ErrInvalidEventType, got %v", err)
	}
}

func TestCreateEvent_StartsPending(t *testing.T) {
	svc, _, _ := setupShowService(t)

	event, err := svc.CreateEvent(context.Background(), "june-gala", models.EventSemifinal, nil)
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	if event.Status != models.EventPending {
		t.Errorf("expected status pending, got %s", event.Status)
	}
	if event.IsVotingOpen {
		t.Error("new event must not have voting open")
	}
	if event.WinnerCandidateID != nil {
		t.Error("new event must not have a winner")
	}
}

func TestCreateEvent_SeedsExplicitLineup(t *testing.T) {
	svc, _, repo := setupShowService(t)
	ctx := context.Background()

	a := seedCandidate(t, repo, "Alice", models.CategoryAdult, false)
	b := seedCandidate(t, repo, "Bruno", models.CategoryTeen, false)

	event, err := svc.CreateEvent(ctx, "june-gala", models.EventSemifinal, []int{b, a})
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	lineup, err := svc.Lineup(ctx, event.ID)
	if err != nil {
		t.Fatalf("Lineup failed: %v", err)
	}
	if len(lineup) != 2 {
		t.Fatalf("expected 2 lineup items, got %d", len(lineup))
	}
	if lineup[0].CandidateID != b || lineup[1].CandidateID != a {
		t.Errorf("lineup order not preserved: got %d, %d", lineup[0].CandidateID, lineup[1].CandidateID)
	}
	if lineup[0].Status != models.LineupPending {
		t.Errorf("expected pending slot, got %s", lineup[0].Status)
	}
}

func TestCreateEvent_FinaleAutoLineupFromFinalists(t *testing.T) {
	svc, _, repo := setupShowService(t)
	ctx := context.Background()

	// Finalists across age groups, plus one non-finalist noise row
	adult := seedCandidate(t, repo, "Ana", models.CategoryAdult, true)
	child := seedCandidate(t, repo, "Zoe", models.CategoryChild, true)
	teen := seedCandidate(t, repo, "Marco", models.CategoryTeen, true)
	seedCandidate(t, repo, "Benched", models.CategoryAdult, false)

	event, err := svc.CreateEvent(ctx, "june-gala", models.EventFinal, nil)
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	lineup, err := svc.Lineup(ctx, event.ID)
	if err != nil {
		t.Fatalf("Lineup failed: %v", err)
	}
	if len(lineup) != 3 {
		t.Fatalf("expected 3 finalists in lineup, got %d", len(lineup))
	}

	// Stage order: child, teen, adult
	want := []int{child, teen, adult}
	for i, item := range lineup {
		if item.CandidateID != want[i] {
			t.Errorf("position %d: expected candidate %d, got %d", i+1, want[i], item.CandidateID)
		}
	}
}

func TestCallToStage_GoesLiveWithFreshTiming(t *testing.T) {
	svc, clock, repo := setupShowService(t)
	ctx := context.Background()

	c := seedCandidate(t, repo, "Alice", models.CategoryTeen, false)
	event, _ := svc.CreateEvent(ctx, "june-gala", models.EventSemifinal, []int{c})
	lineup, _ := svc.Lineup(ctx, event.ID)

	if err := svc.CallToStage(ctx, event.ID, c, lineup[0].ID); err != nil {
		t.Fatalf("CallToStage failed: %v", err)
	}

	got, _ := svc.GetEvent(ctx, event.ID)
	if got.Status != models.EventLive {
		t.Errorf("expected live status, got %s", got.Status)
	}
	if got.CurrentCandidateID == nil || *got.CurrentCandidateID != c {
		t.Errorf("expected current candidate %d, got %v", c, got.CurrentCandidateID)
	}
	if got.CurrentCategory == nil || *got.CurrentCategory != models.CategoryTeen {
		t.Errorf("expected current category teen, got %v", got.CurrentCategory)
	}
	if got.IsVotingOpen {
		t.Error("calling to stage must not open voting")
	}

	item, _ := repo.GetLineupItem(ctx, lineup[0].ID)
	if item.Status != models.LineupPerforming {
		t.Errorf("expected performing slot, got %s", item.Status)
	}
	if item.StartedAt == nil || !item.StartedAt.Equal(clock.Now()) {
		t.Errorf("expected started_at %v, got %v", clock.Now(), item.StartedAt)
	}
	if item.EndedAt != nil || item.VoteOpenedAt != nil || item.VoteClosedAt != nil {
		t.Error("later timing fields must be cleared on a fresh call to stage")
	}
}

func TestCallToStage_RecallResetsTiming(t *testing.T) {
	svc, clock, repo := setupShowService(t)
	ctx := context.Background()

	c := seedCandidate(t, repo, "Alice", models.CategoryAdult, false)
	event, _ := svc.CreateEvent(ctx, "june-gala", models.EventSemifinal, []int{c})
	lineup, _ := svc.Lineup(ctx, event.ID)

	if err := svc.CallToStage(ctx, event.ID, c, lineup[0].ID); err != nil {
		t.Fatalf("first CallToStage failed: %v", err)
	}
	if err := svc.ToggleVoting(ctx, event.ID, true); err != nil {
		t.Fatalf("ToggleVoting failed: %v", err)
	}

	// Technical issue, restart the performance
	clock.Advance(2 * time.Minute)
	if err := svc.CallToStage(ctx, event.ID, c, lineup[0].ID); err != nil {
		t.Fatalf("second CallToStage failed: %v", err)
	}

	item, _ := repo.GetLineupItem(ctx, lineup[0].ID)
	if item.StartedAt == nil || !item.StartedAt.Equal(clock.Now()) {
		t.Errorf("expected restarted started_at %v, got %v", clock.Now(), item.StartedAt)
	}
	if item.EndedAt != nil || item.VoteOpenedAt != nil {
		t.Error("restart must clear ended_at and vote_opened_at")
	}
}

func TestCallToStage_LeavesPreviousPerformerUntouched(t *testing.T) {
	svc, clock, repo := setupShowService(t)
	ctx := context.Background()

	a := seedCandidate(t, repo, "Alice", models.CategoryAdult, false)
	b := seedCandidate(t, repo, "Bruno", models.CategoryAdult, false)
	event, _ := svc.CreateEvent(ctx, "june-gala", models.EventSemifinal, []int{a, b})
	lineup, _ := svc.Lineup(ctx, event.ID)

	if err := svc.CallToStage(ctx, event.ID, a, lineup[0].ID); err != nil {
		t.Fatalf("CallToStage(a) failed: %v", err)
	}

	// Operator skips EndPerformance and calls the next act directly
	clock.Advance(3 * time.Minute)
	if err := svc.CallToStage(ctx, event.ID, b, lineup[1].ID); err != nil {
		t.Fatalf("CallToStage(b) failed: %v", err)
	}

	got, _ := svc.GetEvent(ctx, event.ID)
	if got.CurrentCandidateID == nil || *got.CurrentCandidateID != b {
		t.Errorf("expected current candidate %d, got %v", b, got.CurrentCandidateID)
	}

	first, _ := repo.GetLineupItem(ctx, lineup[0].ID)
	if first.Status != models.LineupPerforming {
		t.Errorf("first slot must keep status performing, got %s", first.Status)
	}
	if first.EndedAt != nil {
		t.Errorf("first slot must not be auto-closed, got ended_at %v", first.EndedAt)
	}
}

func TestCallToStage_RejectsForeignLineupSlot(t *testing.T) {
	svc, _, repo := setupShowService(t)
	ctx := context.Background()

	c1 := seedCandidate(t, repo, "Alice", models.CategoryAdult, false)
	c2 := seedCandidate(t, repo, "Bruno", models.CategoryAdult, false)
	event, _ := svc.CreateEvent(ctx, "june-gala", models.EventSemifinal, []int{c1})
	other, _ := svc.CreateEvent(ctx, "june-gala", models.EventSemifinal, []int{c2})
	otherLineup, _ := svc.Lineup(ctx, other.ID)

	err := svc.CallToStage(ctx, event.ID, c2, otherLineup[0].ID)
	var mismatch *services.LineupMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected LineupMismatchError, got %v", err)
	}
	if mismatch.LineupID != otherLineup[0].ID {
		t.Errorf("expected lineup id %d in error, got %d", otherLineup[0].ID, mismatch.LineupID)
	}
}

func TestToggleVoting_OpenFreezesPerformance(t *testing.T) {
	svc, clock, repo := setupShowService(t)
	ctx := context.Background()

	c := seedCandidate(t, repo, "Alice", models.CategoryAdult, false)
	event, _ := svc.CreateEvent(ctx, "june-gala", models.EventSemifinal, []int{c})
	lineup, _ := svc.Lineup(ctx, event.ID)
	svc.CallToStage(ctx, event.ID, c, lineup[0].ID)

	clock.Advance(3 * time.Minute)
	openTime := clock.Now()
	if err := svc.ToggleVoting(ctx, event.ID, true); err != nil {
		t.Fatalf("ToggleVoting failed: %v", err)
	}

	got, _ := svc.GetEvent(ctx, event.ID)
	if !got.IsVotingOpen {
		t.Error("expected voting open")
	}

	item, _ := repo.GetLineupItem(ctx, lineup[0].ID)
	if item.EndedAt == nil || !item.EndedAt.Equal(openTime) {
		t.Errorf("expected ended_at %v, got %v", openTime, item.EndedAt)
	}
	if item.VoteOpenedAt == nil || !item.VoteOpenedAt.Equal(openTime) {
		t.Errorf("expected vote_opened_at %v, got %v", openTime, item.VoteOpenedAt)
	}
}

func TestToggleVoting_ReopenKeepsEndedAt(t *testing.T) {
	svc, clock, repo := setupShowService(t)
	ctx := context.Background()

	c := seedCandidate(t, repo, "Alice", models.CategoryAdult, false)
	event, _ := svc.CreateEvent(ctx, "june-gala", models.EventSemifinal, []int{c})
	lineup, _ := svc.Lineup(ctx, event.ID)
	svc.CallToStage(ctx, event.ID, c, lineup[0].ID)

	firstOpen := clock.Now()
	svc.ToggleVoting(ctx, event.ID, true)
	clock.Advance(time.Minute)
	svc.ToggleVoting(ctx, event.ID, false)
	clock.Advance(time.Minute)
	reopen := clock.Now()
	svc.ToggleVoting(ctx, event.ID, true)

	item, _ := repo.GetLineupItem(ctx, lineup[0].ID)
	if item.EndedAt == nil || !item.EndedAt.Equal(firstOpen) {
		t.Errorf("ended_at must keep its first value %v, got %v", firstOpen, item.EndedAt)
	}
	if item.VoteOpenedAt == nil || !item.VoteOpenedAt.Equal(reopen) {
		t.Errorf("vote_opened_at must move to the latest open %v, got %v", reopen, item.VoteOpenedAt)
	}
}

func TestToggleVoting_ToleratesNoPerformer(t *testing.T) {
	svc, _, _ := setupShowService(t)
	ctx := context.Background()

	event, _ := svc.CreateEvent(ctx, "june-gala", models.EventSemifinal, nil)

	if err := svc.ToggleVoting(ctx, event.ID, true); err != nil {
		t.Fatalf("ToggleVoting without a performer failed: %v", err)
	}
	got, _ := svc.GetEvent(ctx, event.ID)
	if !got.IsVotingOpen {
		t.Error("expected voting open even with no one performing")
	}
}

func TestEndPerformance_BackfillsTimingAndClearsStage(t *testing.T) {
	svc, clock, repo := setupShowService(t)
	ctx := context.Background()

	c := seedCandidate(t, repo, "Alice", models.CategoryAdult, false)
	event, _ := svc.CreateEvent(ctx, "june-gala", models.EventSemifinal, []int{c})
	lineup, _ := svc.Lineup(ctx, event.ID)
	svc.CallToStage(ctx, event.ID, c, lineup[0].ID)

	// Operator never opened voting; EndPerformance still completes the slot
	clock.Advance(4 * time.Minute)
	endTime := clock.Now()
	if err := svc.EndPerformance(ctx, event.ID, lineup[0].ID); err != nil {
		t.Fatalf("EndPerformance failed: %v", err)
	}

	item, _ := repo.GetLineupItem(ctx, lineup[0].ID)
	if item.Status != models.LineupCompleted {
		t.Errorf("expected completed slot, got %s", item.Status)
	}
	if item.EndedAt == nil || !item.EndedAt.Equal(endTime) {
		t.Errorf("expected backfilled ended_at %v, got %v", endTime, item.EndedAt)
	}
	if item.VoteOpenedAt == nil || item.VoteClosedAt == nil {
		t.Error("completed slot must have non-null vote window timing")
	}

	got, _ := svc.GetEvent(ctx, event.ID)
	if got.CurrentCandidateID != nil {
		t.Error("stage must be cleared after the performance ends")
	}
	if got.IsVotingOpen {
		t.Error("voting must be forced closed after the performance ends")
	}
}

func TestRevealWinner_OnlyOnce(t *testing.T) {
	svc, clock, repo := setupShowService(t)
	ctx := context.Background()

	c1 := seedCandidate(t, repo, "Alice", models.CategoryAdult, true)
	c2 := seedCandidate(t, repo, "Bruno", models.CategoryAdult, true)
	event, _ := svc.CreateEvent(ctx, "june-gala", models.EventFinal, nil)

	if err := svc.RevealWinner(ctx, event.ID, c1); err != nil {
		t.Fatalf("RevealWinner failed: %v", err)
	}

	got, _ := svc.GetEvent(ctx, event.ID)
	if got.WinnerCandidateID == nil || *got.WinnerCandidateID != c1 {
		t.Errorf("expected winner %d, got %v", c1, got.WinnerCandidateID)
	}
	if got.WinnerRevealedAt == nil || !got.WinnerRevealedAt.Equal(clock.Now()) {
		t.Errorf("expected reveal time %v, got %v", clock.Now(), got.WinnerRevealedAt)
	}

	// A second reveal, even for the same candidate, is a conflict
	if err := svc.RevealWinner(ctx, event.ID, c2); !errors.Is(err, services.ErrWinnerRevealed) {
		t.Errorf("expected ErrWinnerRevealed, got %v", err)
	}
	got, _ = svc.GetEvent(ctx, event.ID)
	if *got.WinnerCandidateID != c1 {
		t.Errorf("winner must not change, got %d", *got.WinnerCandidateID)
	}
}

func TestSetShowStatus_ValidatesStatus(t *testing.T) {
	svc, _, _ := setupShowService(t)
	ctx := context.Background()

	event, _ := svc.CreateEvent(ctx, "june-gala", models.EventSemifinal, nil)

	if err := svc.SetShowStatus(ctx, event.ID, models.EventStatus("intermission")); !errors.Is(err, services.ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}

	if err := svc.SetShowStatus(ctx, event.ID, models.EventPaused); err != nil {
		t.Fatalf("SetShowStatus failed: %v", err)
	}
	got, _ := svc.GetEvent(ctx, event.ID)
	if got.Status != models.EventPaused {
		t.Errorf("expected paused, got %s", got.Status)
	}
}

func TestSaveLineup_ReplacesRunningOrder(t *testing.T) {
	svc, _, repo := setupShowService(t)
	ctx := context.Background()

	c1 := seedCandidate(t, repo, "Alice", models.CategoryAdult, false)
	c2 := seedCandidate(t, repo, "Bruno", models.CategoryAdult, false)
	c3 := seedCandidate(t, repo, "Carla", models.CategoryAdult, false)
	event, _ := svc.CreateEvent(ctx, "june-gala", models.EventSemifinal, []int{c1, c2})

	if err := svc.SaveLineup(ctx, event.ID, nil); !errors.Is(err, services.ErrEmptyLineup) {
		t.Errorf("expected ErrEmptyLineup, got %v", err)
	}

	if err := svc.SaveLineup(ctx, event.ID, []int{c3, c1}); err != nil {
		t.Fatalf("SaveLineup failed: %v", err)
	}

	lineup, _ := svc.Lineup(ctx, event.ID)
	if len(lineup) != 2 {
		t.Fatalf("expected 2 lineup items, got %d", len(lineup))
	}
	if lineup[0].CandidateID != c3 || lineup[1].CandidateID != c1 {
		t.Errorf("expected order [%d %d], got [%d %d]", c3, c1, lineup[0].CandidateID, lineup[1].CandidateID)
	}
}

func TestReorderLineup_UnknownSlotFails(t *testing.T) {
	svc, _, _ := setupShowService(t)

	err := svc.ReorderLineup(context.Background(), []services.LineupPositionUpdate{{ID: 9999, Position: 1}})
	if err == nil {
		t.Error("expected error for unknown lineup slot")
	}
}

func TestDeleteEvent_PurgesLineupAndVotes(t *testing.T) {
	svc, _, repo := setupShowService(t)
	ctx := context.Background()

	c := seedCandidate(t, repo, "Alice", models.CategoryAdult, false)
	event, _ := svc.CreateEvent(ctx, "june-gala", models.EventSemifinal, []int{c})
	lineup, _ := svc.Lineup(ctx, event.ID)
	svc.CallToStage(ctx, event.ID, c, lineup[0].ID)
	svc.ToggleVoting(ctx, event.ID, true)
	if _, err := repo.InsertVote(ctx, event.ID, c, "device-1"); err != nil {
		t.Fatalf("InsertVote failed: %v", err)
	}

	if err := svc.DeleteEvent(ctx, event.ID); err != nil {
		t.Fatalf("DeleteEvent failed: %v", err)
	}

	if _, err := svc.GetEvent(ctx, event.ID); err == nil {
		t.Error("expected event to be gone")
	}
	remaining, _ := repo.ListLineup(ctx, event.ID)
	if len(remaining) != 0 {
		t.Errorf("expected empty lineup, got %d rows", len(remaining))
	}
	tally, _ := repo.CountVotes(ctx, event.ID)
	if len(tally) != 0 {
		t.Errorf("expected empty tally, got %v", tally)
	}
}
