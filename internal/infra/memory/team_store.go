package memory

import (
	"context"
	"sync"

	"treasurehunt-service/internal/app"
	"treasurehunt-service/internal/domain"
)

// TeamStore is an in-memory implementation of app.TeamRepository.
type TeamStore struct {
	mu    sync.RWMutex
	teams map[string]*app.TeamState
}

func NewTeamStore() *TeamStore {
	return &TeamStore{
		teams: make(map[string]*app.TeamState),
	}
}

// Seed registers team records, replacing any existing entry with the same id.
func (s *TeamStore) Seed(teams []domain.Team) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, team := range teams {
		s.teams[team.ID] = app.NewTeamState(team)
	}
}

func (s *TeamStore) Get(teamID string) (*app.TeamState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.teams[teamID]
	return state, ok
}

func (s *TeamStore) All() []*app.TeamState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	states := make([]*app.TeamState, 0, len(s.teams))
	for _, state := range s.teams {
		states = append(states, state)
	}
	return states
}

// Save is a no-op: the in-memory state object is the record of truth.
func (s *TeamStore) Save(_ context.Context, _ domain.Team) error {
	return nil
}
