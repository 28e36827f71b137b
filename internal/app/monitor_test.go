package app_test

import (
	"context"
	"testing"
	"time"

	"treasurehunt-service/internal/app"
	"treasurehunt-service/internal/domain"
	"treasurehunt-service/internal/infra/memory"
)

func twoTeamLoader() *memory.StaticGameLoader {
	loader := testLoader()
	loader.Teams = []domain.Team{
		{ID: "team-a", Name: "Alpha", Roadmap: []string{"cp0", "cp1", "cp2", "cp3"}},
		{ID: "team-b", Name: "Bravo", Roadmap: []string{"cp0", "cp3", "cp2", "cp1"}},
	}
	return loader
}

func TestTeamViewStatuses(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := memory.NewTeamStore()
	loader := twoTeamLoader()
	store.Seed(loader.Teams)
	repo := memory.NewGameRepository(loader, time.Minute)
	service := app.NewGameService(store, repo,
		app.WithClock(clock.Now),
		app.WithStuckThreshold(10*time.Minute),
	)

	view, err := service.TeamView(ctx, "team-a")
	if err != nil {
		t.Fatalf("team view: %v", err)
	}
	if view.Status != domain.StatusNotStarted {
		t.Fatalf("expected notStarted before activation, got %s", view.Status)
	}

	if _, err := service.ActivateAllTeams(ctx); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := service.SubmitArrivalCode(ctx, "team-a", "C0"); err != nil {
		t.Fatalf("entry: %v", err)
	}
	if _, err := service.SubmitArrivalCode(ctx, "team-a", "C1"); err != nil {
		t.Fatalf("cp1: %v", err)
	}

	view, _ = service.TeamView(ctx, "team-a")
	if view.Status != domain.StatusInProgress {
		t.Fatalf("expected inProgress, got %s", view.Status)
	}
	if view.CompletionPercent != 25 {
		t.Fatalf("expected 25%% after 1 of 4 legs, got %d", view.CompletionPercent)
	}
	if view.CurrentCheckpointID != "cp1" {
		t.Fatalf("expected current checkpoint cp1, got %s", view.CurrentCheckpointID)
	}
	if view.LastCompleted == nil || view.LastCompleted.CheckpointID != "cp0" {
		t.Fatalf("expected last completed cp0, got %+v", view.LastCompleted)
	}

	// Sitting on one checkpoint past the threshold flips the team to stuck.
	clock.Advance(11 * time.Minute)
	view, _ = service.TeamView(ctx, "team-a")
	if view.Status != domain.StatusStuck {
		t.Fatalf("expected stuck after 11m, got %s", view.Status)
	}
	if view.TimeOnCurrentCheckpoint != 11*60 {
		t.Fatalf("expected 660s on checkpoint, got %d", view.TimeOnCurrentCheckpoint)
	}

	for _, code := range []string{"C1", "C2", "C3"} {
		if _, err := service.SubmitArrivalCode(ctx, "team-a", code); err != nil {
			t.Fatalf("arrival %s: %v", code, err)
		}
		if _, err := service.SubmitAnswer(ctx, "team-a", code, "o10"); err != nil {
			t.Fatalf("answer %s: %v", code, err)
		}
	}
	view, _ = service.TeamView(ctx, "team-a")
	if view.Status != domain.StatusCompleted || view.CompletionPercent != 100 {
		t.Fatalf("expected completed at 100%%, got %+v", view)
	}
}

func TestLeaderboardOrdering(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := memory.NewTeamStore()
	loader := twoTeamLoader()
	store.Seed(loader.Teams)
	repo := memory.NewGameRepository(loader, time.Minute)
	service := app.NewGameService(store, repo, app.WithClock(clock.Now))

	if _, err := service.ActivateAllTeams(ctx); err != nil {
		t.Fatalf("activate: %v", err)
	}

	// Equal standing: deterministic ordering by team id.
	board := service.Leaderboard(ctx)
	if len(board.Entries) != 2 || board.Entries[0].TeamID != "team-a" {
		t.Fatalf("expected team-a first on id tie-break, got %+v", board.Entries)
	}

	// Bravo completes a scored leg, Alpha only the entry: Bravo leads.
	_, _ = service.SubmitArrivalCode(ctx, "team-b", "C0")
	_, _ = service.SubmitArrivalCode(ctx, "team-b", "C3")
	clock.Advance(time.Minute)
	if _, err := service.SubmitAnswer(ctx, "team-b", "C3", "o10"); err != nil {
		t.Fatalf("bravo answer: %v", err)
	}
	_, _ = service.SubmitArrivalCode(ctx, "team-a", "C0")

	board = service.Leaderboard(ctx)
	if board.Entries[0].TeamID != "team-b" {
		t.Fatalf("expected team-b leading, got %+v", board.Entries)
	}
	if board.Entries[0].CompletionPercent != 50 || board.Entries[1].CompletionPercent != 25 {
		t.Fatalf("unexpected completion: %+v", board.Entries)
	}
}

func TestSubscribeReceivesScoreboardUpdates(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, testLoader())
	activate(t, service)

	ch, cancel := service.Subscribe(ctx)
	defer cancel()

	<-ch // initial snapshot

	if _, err := service.SubmitArrivalCode(ctx, "team-1", "C0"); err != nil {
		t.Fatalf("arrival: %v", err)
	}

	update := <-ch
	if len(update.Entries) != 1 || update.Entries[0].CompletionPercent != 25 {
		t.Fatalf("expected scoreboard update with 25%%, got %+v", update.Entries)
	}
}
