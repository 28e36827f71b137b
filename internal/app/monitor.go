package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"treasurehunt-service/internal/domain"
)

// TeamView derives the monitoring state for one team. Pure read; never
// mutates progression state.
func (s *GameService) TeamView(_ context.Context, teamID string) (domain.TeamView, error) {
	ts, ok := s.teams.Get(teamID)
	if !ok {
		return domain.TeamView{}, domain.ErrTeamNotFound
	}
	return buildTeamView(ts.Snapshot(), s.now(), s.stuckAfter), nil
}

// Leaderboard computes the ordered scoreboard across all teams. Reads may run
// concurrently with progression; each team contributes a consistent snapshot
// but the board as a whole is eventually consistent, which is fine for a
// dashboard.
func (s *GameService) Leaderboard(_ context.Context) domain.Scoreboard {
	return s.scoreboardSnapshot()
}

func (s *GameService) scoreboardSnapshot() domain.Scoreboard {
	now := s.now()
	states := s.teams.All()
	entries := make([]domain.TeamView, 0, len(states))
	for _, ts := range states {
		entries = append(entries, buildTeamView(ts.Snapshot(), now, s.stuckAfter))
	}

	// Rank by completion, then points, then fewest elapsed seconds; team id
	// last so equal teams order deterministically.
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.CompletionPercent != b.CompletionPercent {
			return a.CompletionPercent > b.CompletionPercent
		}
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if a.TotalElapsedSeconds != b.TotalElapsedSeconds {
			return a.TotalElapsedSeconds < b.TotalElapsedSeconds
		}
		return a.TeamID < b.TeamID
	})

	return domain.Scoreboard{Entries: entries, UpdatedAt: now.Unix()}
}

func buildTeamView(team domain.Team, now time.Time, stuckAfter time.Duration) domain.TeamView {
	view := domain.TeamView{
		TeamID:              team.ID,
		Name:                team.Name,
		TotalPoints:         team.TotalPoints,
		TotalElapsedSeconds: team.TotalElapsedSeconds,
	}

	if len(team.Roadmap) > 0 {
		view.CompletionPercent = int(float64(team.Cursor)/float64(len(team.Roadmap))*100 + 0.5)
	}

	switch {
	case team.Finished():
		view.Status = domain.StatusCompleted
	case !team.IsActive || team.GameStartEpoch == 0:
		view.Status = domain.StatusNotStarted
	default:
		view.Status = domain.StatusInProgress
		if leg := currentLeg(team); leg != nil {
			view.CurrentCheckpointID = leg.CheckpointID
			if leg.StartEpoch > 0 && leg.EndEpoch == 0 {
				onCheckpoint := now.Unix() - leg.StartEpoch
				view.TimeOnCurrentCheckpoint = onCheckpoint
				if onCheckpoint > int64(stuckAfter.Seconds()) {
					view.Status = domain.StatusStuck
				}
			}
		}
	}

	if team.Cursor > 0 && team.Cursor <= len(team.Legs) {
		last := team.Legs[team.Cursor-1]
		view.LastCompleted = &domain.LegSummary{
			CheckpointID:   last.CheckpointID,
			MCQPoints:      last.MCQPoints,
			PuzzlePoints:   last.PuzzlePoints,
			TimeBonus:      last.TimeBonus,
			ElapsedSeconds: last.ElapsedSeconds,
		}
	}

	return view
}

func currentLeg(team domain.Team) *domain.Leg {
	if team.Cursor < 0 || team.Cursor >= len(team.Legs) {
		return nil
	}
	return &team.Legs[team.Cursor]
}

// broadcaster fans scoreboard snapshots out to dashboard subscribers.
type broadcaster struct {
	mu          sync.Mutex
	subscribers map[chan domain.Scoreboard]struct{}
}

func (b *broadcaster) init() {
	b.subscribers = make(map[chan domain.Scoreboard]struct{})
}

// Subscribe returns a channel receiving scoreboard updates after every
// mutating engine operation. The caller must invoke the returned cancel
// function to avoid leaks.
func (s *GameService) Subscribe(_ context.Context) (<-chan domain.Scoreboard, func()) {
	ch := make(chan domain.Scoreboard, 8)

	s.broadcaster.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.broadcaster.mu.Unlock()

	ch <- s.scoreboardSnapshot()

	cancel := func() {
		s.broadcaster.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.broadcaster.mu.Unlock()
	}
	return ch, cancel
}

func (b *broadcaster) publish(board domain.Scoreboard) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		select {
		case ch <- board:
		default:
			// Drop the stale snapshot so a slow dashboard cannot block play.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- board:
			default:
			}
		}
	}
}
