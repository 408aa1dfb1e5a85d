package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"learnfront-session-service/internal/domain"
	"learnfront-session-service/internal/engine"
)

// WSHandler drives one learner session per WebSocket connection. All
// transitions are synchronous: one inbound event, one state change, one or
// more outbound messages. Disconnecting abandons the session.
type WSHandler struct {
	service  *engine.SessionService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *engine.SessionService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Candidate string `json:"candidate"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ServeWS upgrades the request and wires the connection into the session engine.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	mode := domain.GradingMode(r.URL.Query().Get("mode"))
	scope := r.URL.Query().Get("scope")
	userID := r.URL.Query().Get("userId")
	if scope == "" || userID == "" || (mode != domain.GradingImmediate && mode != domain.GradingDeferred) {
		http.Error(w, "missing or invalid mode, scope, or userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	snap, err := h.service.Start(r.Context(), mode, scope, userID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[any]{Type: "failed", Payload: errorPayload{Kind: "load", Message: err.Error()}})
		return
	}
	defer h.service.Abandon(snap.SessionID)

	_ = conn.WriteJSON(outboundMessage[any]{Type: "session", Payload: snap})
	if snap.Phase == domain.PhaseEmpty {
		// Nothing due; terminal screen, the client navigates away or refreshes.
		return
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}

		switch inbound.Type {
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.writeError(conn, "validation", "invalid select payload")
				continue
			}
			next, err := h.service.Select(snap.SessionID, payload.Candidate)
			if err != nil {
				h.writeError(conn, errorKind(err), err.Error())
				continue
			}
			_ = conn.WriteJSON(outboundMessage[any]{Type: "session", Payload: next})

		case "reveal":
			result, err := h.service.Reveal(snap.SessionID)
			if err != nil {
				h.writeError(conn, errorKind(err), err.Error())
				continue
			}
			_ = conn.WriteJSON(outboundMessage[any]{Type: "revealed", Payload: result})

		case "next":
			next, err := h.service.Advance(r.Context(), snap.SessionID)
			if err != nil {
				h.writeError(conn, errorKind(err), err.Error())
				if !errors.Is(err, domain.ErrSubmitFailed) {
					continue
				}
				// Submit failures still get a snapshot so the client can
				// show the retry affordance with answers intact.
			}
			h.writeProgress(r, conn, next)

		case "retry":
			next, err := h.service.RetrySubmit(r.Context(), snap.SessionID)
			if err != nil {
				h.writeError(conn, errorKind(err), err.Error())
				continue
			}
			h.writeProgress(r, conn, next)

		case "abandon":
			h.service.Abandon(snap.SessionID)
			return

		default:
			h.writeError(conn, "validation", "unknown message type")
		}
	}
}

// writeProgress sends the post-advance snapshot and, on completion, the
// outcome plus (for review sessions) the best-effort statistics refresh.
func (h *WSHandler) writeProgress(r *http.Request, conn *websocket.Conn, snap engine.Snapshot) {
	_ = conn.WriteJSON(outboundMessage[any]{Type: "session", Payload: snap})
	if snap.Phase != domain.PhaseComplete {
		return
	}

	out, err := h.service.Outcome(snap.SessionID)
	if err != nil {
		h.writeError(conn, "internal", err.Error())
		return
	}
	_ = conn.WriteJSON(outboundMessage[any]{Type: "completed", Payload: out})

	if snap.Mode == domain.GradingImmediate {
		stats, err := h.service.StatsRefresh(r.Context(), snap.SessionID)
		if err != nil {
			log.Printf("stats refresh failed: %v", err)
			return
		}
		_ = conn.WriteJSON(outboundMessage[any]{Type: "stats", Payload: stats})
	}
}

func (h *WSHandler) writeError(conn *websocket.Conn, kind, message string) {
	_ = conn.WriteJSON(outboundMessage[any]{Type: "error", Payload: errorPayload{Kind: kind, Message: message}})
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrSubmitFailed), errors.Is(err, domain.ErrSubmitInFlight):
		return "submit"
	case errors.Is(err, domain.ErrLoadFailed):
		return "load"
	case errors.Is(err, domain.ErrSessionNotFound):
		return "session"
	default:
		return "validation"
	}
}
