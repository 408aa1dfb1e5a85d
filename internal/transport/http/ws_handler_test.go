package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"learnfront-session-service/internal/domain"
	"learnfront-session-service/internal/engine"
	"learnfront-session-service/internal/infra/memory"
)

func TestWebSocketReviewFlow(t *testing.T) {
	loader := memory.NewStaticBatchLoader(sampleBatches())
	source := memory.NewItemSource(loader, time.Minute)
	reviews := memory.NewReviewStore()
	grader := memory.NewGrader(loader)
	service := engine.NewSessionService(source, reviews, grader, reviews, memory.NewSessionStore())
	wsHandler := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?mode=immediate&scope=batch-1&userId=u1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Initial session snapshot with the first item, correct flags stripped.
	typ, payload := readNext(conn, t, "session")
	if typ != "session" {
		t.Fatalf("expected session, got %s", typ)
	}
	if payload["phase"] != string(domain.PhaseAnswering) {
		t.Fatalf("expected answering phase, got %v", payload["phase"])
	}

	// Reveal without a selection is rejected in-engine.
	writeMsg(conn, t, map[string]any{"type": "reveal"})
	typ, _ = readNext(conn, t, "error")
	if typ != "error" {
		t.Fatalf("expected validation error, got %s", typ)
	}

	writeMsg(conn, t, map[string]any{"type": "select", "payload": map[string]any{"candidate": "4"}})
	readNext(conn, t, "session")

	writeMsg(conn, t, map[string]any{"type": "reveal"})
	_, revealed := readNext(conn, t, "revealed")
	if revealed["correct"] != true {
		t.Fatalf("expected correct reveal, got %+v", revealed)
	}

	writeMsg(conn, t, map[string]any{"type": "next"})

	// session(complete), completed outcome, then the stats refresh.
	_, snap := readNext(conn, t, "session")
	if snap["phase"] != string(domain.PhaseComplete) {
		t.Fatalf("expected complete, got %v", snap["phase"])
	}
	_, outcome := readNext(conn, t, "completed")
	if outcome["correctCount"] != float64(1) || outcome["percentage"] != float64(100) {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	_, stats := readNext(conn, t, "stats")
	if stats["totalItems"] != float64(1) {
		t.Fatalf("expected stats over 1 reported item, got %+v", stats)
	}
}

func TestWebSocketEmptyBatch(t *testing.T) {
	loader := memory.NewStaticBatchLoader(map[string]domain.ItemBatch{
		"batch-empty": {ID: "batch-empty"},
	})
	source := memory.NewItemSource(loader, time.Minute)
	reviews := memory.NewReviewStore()
	service := engine.NewSessionService(source, reviews, memory.NewGrader(loader), reviews, memory.NewSessionStore())
	wsHandler := NewWSHandler(service)

	server := httptest.NewServer(http.HandlerFunc(wsHandler.ServeWS))
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "?mode=immediate&scope=batch-empty&userId=u1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_, payload := readNext(conn, t, "session")
	if payload["phase"] != string(domain.PhaseEmpty) {
		t.Fatalf("expected empty phase, got %v", payload["phase"])
	}
}

func writeMsg(conn *websocket.Conn, t *testing.T, msg map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %v: %v", msg["type"], err)
	}
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

func sampleBatches() map[string]domain.ItemBatch {
	return map[string]domain.ItemBatch{
		"batch-1": {
			ID: "batch-1",
			Items: []domain.Item{
				{
					ID:     "q1",
					Prompt: "What is 2 + 2?",
					Candidates: []domain.Candidate{
						{Text: "3"},
						{Text: "4", Correct: true},
						{Text: "5"},
					},
					Explanation: "Basic addition.",
					Difficulty:  domain.DifficultyEasy,
					Position:    1,
				},
			},
		},
	}
}
