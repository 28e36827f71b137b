package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"treasurehunt-service/internal/app"
	"treasurehunt-service/internal/domain"
)

// TeamStore is a Redis-aware implementation of app.TeamRepository.
// Notes:
//   - It keeps a local in-memory map of team states so the per-team mutex
//     (and the engine's lock discipline) stays in-process.
//   - Every mutation is written through to Redis as a JSON snapshot, so a
//     restarted instance resumes from the last persisted progression state.
type TeamStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
	teams  map[string]*app.TeamState
}

func NewTeamStore(client *redis.Client, ttl time.Duration) *TeamStore {
	return &TeamStore{
		client: client,
		ttl:    ttl,
		teams:  make(map[string]*app.TeamState),
	}
}

// Seed registers team records, preferring a persisted Redis snapshot over the
// provided seed so progress survives restarts.
func (s *TeamStore) Seed(ctx context.Context, teams []domain.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, team := range teams {
		raw, err := s.client.Get(ctx, s.key(team.ID)).Bytes()
		switch {
		case err == redis.Nil:
			// no snapshot yet
		case err != nil:
			return fmt.Errorf("load team %s: %w", team.ID, err)
		default:
			var persisted domain.Team
			if err := json.Unmarshal(raw, &persisted); err != nil {
				return fmt.Errorf("unmarshal team %s: %w", team.ID, err)
			}
			team = persisted
		}
		s.teams[team.ID] = app.NewTeamState(team)
	}
	return nil
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

// Save writes the team snapshot through to Redis. The engine calls it with
// the team's own mutex held, so snapshots never interleave for one team.
func (s *TeamStore) Save(ctx context.Context, team domain.Team) error {
	raw, err := json.Marshal(team)
	if err != nil {
		return fmt.Errorf("marshal team %s: %w", team.ID, err)
	}
	if err := s.client.Set(ctx, s.key(team.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("persist team %s: %w", team.ID, err)
	}
	return nil
}

func (s *TeamStore) key(teamID string) string {
	return "hunt:team:" + teamID
}
