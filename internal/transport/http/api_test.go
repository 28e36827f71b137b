package http

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"treasurehunt-service/internal/domain"
)

func TestActivateEndpointAllOrNothing(t *testing.T) {
	loader := sampleGameLoader()
	loader.Teams = append(loader.Teams, domain.Team{ID: "team-2", Name: "No Roadmap"})
	server, service := newTestServer(t, loader)

	resp, err := http.Post(server.URL+"/api/admin/activate", "application/json", nil)
	if err != nil {
		t.Fatalf("post activate: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	var body struct {
		TeamsMissing []string `json:"teamsMissing"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.TeamsMissing) != 1 || body.TeamsMissing[0] != "team-2" {
		t.Fatalf("expected team-2 flagged, got %v", body.TeamsMissing)
	}

	// Nothing activated, including the valid team.
	team, err := service.TeamState(context.Background(), "team-1")
	if err != nil {
		t.Fatalf("team state: %v", err)
	}
	if team.IsActive {
		t.Fatalf("partial activation leaked")
	}
}

func TestLeaderboardEndpoint(t *testing.T) {
	server, service := newTestServer(t, sampleGameLoader())
	if _, err := service.ActivateAllTeams(context.Background()); err != nil {
		t.Fatalf("activate: %v", err)
	}

	resp, err := http.Get(server.URL + "/api/leaderboard")
	if err != nil {
		t.Fatalf("get leaderboard: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var board domain.Scoreboard
	if err := json.NewDecoder(resp.Body).Decode(&board); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(board.Entries) != 1 || board.Entries[0].TeamID != "team-1" {
		t.Fatalf("unexpected board: %+v", board.Entries)
	}
}

func TestTeamViewEndpointNotFound(t *testing.T) {
	server, _ := newTestServer(t, sampleGameLoader())

	resp, err := http.Get(server.URL + "/api/teams/nope/view")
	if err != nil {
		t.Fatalf("get view: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
