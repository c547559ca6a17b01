package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rps-arena/internal/game"
	"github.com/rps-arena/internal/models"
	"github.com/rps-arena/internal/service"
	"github.com/rps-arena/internal/storage"
	"github.com/rps-arena/pkg/logger"
)

type fixedChooser struct {
	move game.Move
}

func (c fixedChooser) ChooseMove() game.Move { return c.move }

func newTestRouter(t *testing.T, ai, exhibitor game.Move) http.Handler {
	t.Helper()
	log := logger.Discard()
	svc := service.NewGameService(storage.NewMemoryStorage(), log,
		service.WithAIFactory(func() game.Chooser { return fixedChooser{move: ai} }),
		service.WithExhibitorFactory(func() game.Chooser { return fixedChooser{move: exhibitor} }),
		service.WithExhibitionInterval(5*time.Millisecond),
	)
	t.Cleanup(svc.Close)
	return NewRouter(NewHandler(svc, log), log)
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func startSession(t *testing.T, router http.Handler) string {
	t.Helper()
	w := doRequest(t, router, http.MethodPost, "/sessions", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp models.SessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if resp.SessionID == "" {
		t.Fatal("Expected session ID, got empty")
	}
	return resp.SessionID
}

func TestHandler_Health(t *testing.T) {
	router := newTestRouter(t, game.Rock, game.Rock)

	w := doRequest(t, router, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header")
	}
}

func TestHandler_PlayRound(t *testing.T) {
	router := newTestRouter(t, game.Scissors, game.Rock)
	id := startSession(t, router)

	tests := []struct {
		name           string
		body           string
		expectedStatus int
		validate       func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:           "rock beats scissors",
			body:           `{"move":"rock"}`,
			expectedStatus: http.StatusOK,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp models.RoundResult
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("Failed to unmarshal response: %v", err)
				}
				if resp.AIMove != game.Scissors || resp.Outcome != game.PlayerWins {
					t.Errorf("Unexpected round %+v", resp)
				}
				if !strings.Contains(w.Body.String(), `"outcome":"Player Wins"`) {
					t.Errorf("Expected outcome label in body, got %s", w.Body.String())
				}
			},
		},
		{
			name:           "invalid move",
			body:           `{"move":"lizard"}`,
			expectedStatus: http.StatusBadRequest,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp models.ErrorResponse
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("Failed to unmarshal response: %v", err)
				}
				if resp.Error != "invalid move" {
					t.Errorf("Expected error %q, got %q", "invalid move", resp.Error)
				}
			},
		},
		{
			name:           "invalid JSON",
			body:           "not json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, router, http.MethodPost, "/sessions/"+id+"/rounds", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.validate != nil {
				tt.validate(t, w)
			}
		})
	}
}

func TestHandler_SessionNotFound(t *testing.T) {
	router := newTestRouter(t, game.Rock, game.Rock)

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/sessions/missing", ""},
		{http.MethodPost, "/sessions/missing/rounds", `{"move":"rock"}`},
		{http.MethodPost, "/sessions/missing/rounds/auto", ""},
		{http.MethodPost, "/sessions/missing/reset", ""},
		{http.MethodGet, "/sessions/missing/stats", ""},
		{http.MethodDelete, "/sessions/missing", ""},
		{http.MethodGet, "/sessions/missing/watch", ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := doRequest(t, router, tt.method, tt.path, tt.body)
			if w.Code != http.StatusNotFound {
				t.Errorf("Expected status 404, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestHandler_StatsAndReset(t *testing.T) {
	router := newTestRouter(t, game.Rock, game.Paper)
	id := startSession(t, router)

	for _, body := range []string{`{"move":"paper"}`, `{"move":"rock"}`} {
		if w := doRequest(t, router, http.MethodPost, "/sessions/"+id+"/rounds", body); w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
	}
	if w := doRequest(t, router, http.MethodPost, "/sessions/"+id+"/rounds/auto", ""); w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	w := doRequest(t, router, http.MethodGet, "/sessions/"+id+"/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var stats models.StatsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if stats.Rounds != 3 {
		t.Errorf("Expected 3 rounds, got %d", stats.Rounds)
	}
	// player: paper, rock, paper(auto); ai: rock x3
	want := map[game.Move]models.MoveCount{
		game.Rock:     {Move: game.Rock, Player: 1, AI: 3},
		game.Paper:    {Move: game.Paper, Player: 2, AI: 0},
		game.Scissors: {Move: game.Scissors},
	}
	for _, fc := range stats.Frequencies {
		if fc != want[fc.Move] {
			t.Errorf("Expected %+v, got %+v", want[fc.Move], fc)
		}
	}
	if stats.Scores != (models.Scoreboard{Player: 2, Tie: 1}) {
		t.Errorf("Unexpected scores %+v", stats.Scores)
	}

	w = doRequest(t, router, http.MethodPost, "/sessions/"+id+"/reset", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var session models.SessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &session); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if session.Rounds != 0 || session.Scores != (models.Scoreboard{}) {
		t.Errorf("Expected cleared session, got %+v", session)
	}
}

func TestHandler_Exhibition(t *testing.T) {
	router := newTestRouter(t, game.Rock, game.Rock)
	id := startSession(t, router)

	w := doRequest(t, router, http.MethodPost, "/sessions/"+id+"/exhibition", `{"interval_ms":50}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}
	var status models.ExhibitionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if !status.Running || status.IntervalMs != 50 {
		t.Errorf("Unexpected status %+v", status)
	}

	if w := doRequest(t, router, http.MethodPost, "/sessions/"+id+"/exhibition", ""); w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 for second start, got %d", w.Code)
	}

	if w := doRequest(t, router, http.MethodDelete, "/sessions/"+id+"/exhibition", ""); w.Code != http.StatusOK {
		t.Errorf("Expected status 200 on stop, got %d", w.Code)
	}
	if w := doRequest(t, router, http.MethodDelete, "/sessions/"+id+"/exhibition", ""); w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 for second stop, got %d", w.Code)
	}

	if w := doRequest(t, router, http.MethodPost, "/sessions/"+id+"/exhibition", `{"interval_ms":-5}`); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for negative interval, got %d", w.Code)
	}
}

func TestHandler_DeleteSession(t *testing.T) {
	router := newTestRouter(t, game.Rock, game.Rock)
	id := startSession(t, router)

	if w := doRequest(t, router, http.MethodDelete, "/sessions/"+id, ""); w.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", w.Code)
	}
	if w := doRequest(t, router, http.MethodGet, "/sessions/"+id, ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", w.Code)
	}
}

func TestHandler_Watch(t *testing.T) {
	router := newTestRouter(t, game.Paper, game.Scissors)
	server := httptest.NewServer(router)
	defer server.Close()

	id := startSession(t, router)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/sessions/" + id + "/watch"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to dial watcher: %v", err)
	}
	defer conn.CloseNow()

	if w := doRequest(t, router, http.MethodPost, "/sessions/"+id+"/exhibition", ""); w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d", w.Code)
	}

	var round models.RoundResult
	if err := wsjson.Read(ctx, conn, &round); err != nil {
		t.Fatalf("Failed to read round: %v", err)
	}
	if round.SessionID != id || !round.Automated {
		t.Errorf("Unexpected round %+v", round)
	}
	if round.PlayerMove != game.Scissors || round.AIMove != game.Paper || round.Outcome != game.PlayerWins {
		t.Errorf("Unexpected moves %+v", round)
	}

	conn.Close(websocket.StatusNormalClosure, "done")
}
