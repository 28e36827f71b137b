package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"

	"treasurehunt-service/internal/app"
	"treasurehunt-service/internal/domain"
	"treasurehunt-service/internal/infra/memory"
)

func newTestServer(t *testing.T, loader *memory.StaticGameLoader) (*httptest.Server, *app.GameService) {
	t.Helper()
	store := memory.NewTeamStore()
	store.Seed(loader.Teams)
	repo := memory.NewGameRepository(loader, time.Minute)
	service := app.NewGameService(store, repo)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", NewWSHandler(service).ServeWS)
	NewAPIHandler(service).Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, service
}

func sampleGameLoader() *memory.StaticGameLoader {
	return &memory.StaticGameLoader{
		Checkpoints: []domain.Checkpoint{
			{ID: "cp0", Name: "Start", ArrivalCode: "C0", Puzzle: "begin here", IsEntry: true},
			{ID: "cp1", Name: "Harbor", ArrivalCode: "C1", Puzzle: "where ships rest"},
		},
		Questions: []domain.Question{
			{
				ID:     "q1",
				Prompt: "Pick one",
				Options: []domain.Option{
					{ID: "o1", Text: "Right", Points: 10},
					{ID: "o2", Text: "Meh", Points: 0},
				},
			},
		},
		GameSettings: domain.Settings{BasePoints: 20, BonusPerMinute: 5, PenaltyPerMinute: 3, RoundTimeMinutes: 5},
		Teams: []domain.Team{
			{ID: "team-1", Name: "Foxes", Roadmap: []string{"cp0", "cp1"}},
		},
	}
}

func TestWebSocketPlayFlow(t *testing.T) {
	server, service := newTestServer(t, sampleGameLoader())
	if _, err := service.ActivateAllTeams(context.Background()); err != nil {
		t.Fatalf("activate: %v", err)
	}

	u := "ws" + server.URL[len("http"):] + "/ws?teamId=team-1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	msgType, _ := readNext(conn, t, "welcome")
	if msgType != "welcome" {
		t.Fatalf("expected welcome, got %s", msgType)
	}

	// Entry scan completes instantly and hands back the next puzzle.
	writeMsg(conn, t, "arrival", map[string]any{"code": "C0"})
	payload := awaitType(conn, t, "arrivalResult")
	if payload["puzzle"] != "where ships rest" {
		t.Fatalf("expected puzzle for cp1, got %v", payload)
	}

	// Regular scan returns a question.
	writeMsg(conn, t, "arrival", map[string]any{"code": "C1"})
	payload = awaitType(conn, t, "arrivalResult")
	if payload["question"] == nil {
		t.Fatalf("expected question, got %v", payload)
	}

	writeMsg(conn, t, "answer", map[string]any{"code": "C1", "optionId": "o1"})
	payload = awaitType(conn, t, "answerResult")
	if payload["gameComplete"] != true {
		t.Fatalf("expected game complete, got %v", payload)
	}
}

func TestWebSocketWrongCodeRevealsExpected(t *testing.T) {
	server, service := newTestServer(t, sampleGameLoader())
	if _, err := service.ActivateAllTeams(context.Background()); err != nil {
		t.Fatalf("activate: %v", err)
	}

	u := "ws" + server.URL[len("http"):] + "/ws?teamId=team-1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readNext(conn, t, "welcome")

	writeMsg(conn, t, "arrival", map[string]any{"code": "WRONG"})
	payload := awaitType(conn, t, "error")
	if payload["expectedCode"] != "C0" {
		t.Fatalf("expected the correct code in the error, got %v", payload)
	}
}

func TestWebSocketRejectsBadCredential(t *testing.T) {
	loader := sampleGameLoader()
	hash, err := bcrypt.GenerateFromPassword([]byte("opensesame"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	loader.Teams[0].CredentialHash = string(hash)
	server, _ := newTestServer(t, loader)

	u := "ws" + server.URL[len("http"):] + "/ws?teamId=team-1&accessCode=wrong"
	if _, _, err := websocket.DefaultDialer.Dial(u, nil); err == nil {
		t.Fatalf("expected handshake rejection for bad credential")
	}

	u = "ws" + server.URL[len("http"):] + "/ws?teamId=team-1&accessCode=opensesame"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial with valid credential: %v", err)
	}
	conn.Close()
}

func writeMsg(conn *websocket.Conn, t *testing.T, msgType string, payload map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": msgType, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// awaitType skips interleaved scoreboard pushes until the wanted type shows up.
func awaitType(conn *websocket.Conn, t *testing.T, want string) map[string]any {
	t.Helper()
	for i := 0; i < 10; i++ {
		typ, payload := readNext(conn, t, "")
		if typ == want {
			return payload
		}
	}
	t.Fatalf("never received %s", want)
	return nil
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
