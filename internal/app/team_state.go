package app

import (
	"sync"

	"treasurehunt-service/internal/domain"
)

// TeamState owns one team's authoritative progression record. All engine
// read-modify-write cycles for a team run under its mutex, so two concurrent
// submissions for the same team serialize while different teams proceed
// independently.
type TeamState struct {
	mu   sync.Mutex
	team domain.Team
}

// NewTeamState is exported for infrastructure layers that seed team records.
func NewTeamState(team domain.Team) *TeamState {
	return &TeamState{team: team}
}

// ID returns the team id (immutable, safe without the lock).
func (ts *TeamState) ID() string {
	return ts.team.ID
}

// Snapshot returns a deep copy of the team record.
func (ts *TeamState) Snapshot() domain.Team {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.snapshotLocked()
}

func (ts *TeamState) snapshotLocked() domain.Team {
	team := ts.team
	team.Roadmap = append([]string(nil), ts.team.Roadmap...)
	team.Legs = append([]domain.Leg(nil), ts.team.Legs...)
	return team
}
