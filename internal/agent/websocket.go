package agent

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/ashureev/socratic-labs/internal/domain"
	"github.com/ashureev/socratic-labs/internal/identity"
)

// WebSocketHandler runs dialogue turns over a WebSocket. It shares the
// service and rate limiter of the HTTP handler.
type WebSocketHandler struct {
	agent         *Service
	rateLimiter   *RateLimiter
	maxBodySize   int64
	allowedOrigin string
	isDev         bool
	logger        *slog.Logger
}

// WebSocket returns a WebSocket handler bound to the same service as h.
func (h *Handler) WebSocket(allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		agent:         h.agent,
		rateLimiter:   h.rateLimiter,
		maxBodySize:   h.maxBodySize,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
		logger:        h.logger,
	}
}

// wsMessage is a client message.
type wsMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	logger := h.logger.With("user_id", userID, "session_id", sessionID)
	logger.Info("WebSocket connection request", "ip", identity.IPFromRequest(r))

	if userID == "" {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		logger.Error("Failed to accept WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			logger.Debug("Failed to close websocket", "error", closeErr)
		}
	}()
	ws.SetReadLimit(h.maxBodySize)

	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	display := &wsDisplay{ws: ws, logger: logger}
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				logger.Debug("WebSocket closed by client")
			} else if !errors.Is(err, context.Canceled) {
				logger.Warn("WebSocket read error", "error", err)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			display.emit(TurnEvent{Type: EventError, Content: "invalid message"})
			continue
		}

		switch msg.Type {
		case "turn":
			if !h.rateLimiter.Allow(userID) {
				display.emit(TurnEvent{Type: EventError, Content: "rate limit exceeded", Retryable: true})
				continue
			}
			// Turns run off the read loop so a second statement sent mid-turn
			// is rejected instead of queued.
			wg.Add(1)
			go func(input string) {
				defer wg.Done()
				h.runTurn(ctx, userID, sessionID, input, display)
			}(msg.Content)
		case "reset":
			if err := h.agent.Reset(userID, sessionID); err != nil {
				display.emit(TurnEvent{Type: EventError, Content: err.Error()})
				continue
			}
			display.writeJSON(map[string]string{"type": "reset"})
		case "ping":
			display.writeJSON(map[string]string{"type": "pong"})
		default:
			display.emit(TurnEvent{Type: EventError, Content: "unknown message type"})
		}
	}
}

func (h *WebSocketHandler) runTurn(ctx context.Context, userID, sessionID, input string, display *wsDisplay) {
	result, err := h.agent.Turn(ctx, userID, sessionID, input, display)
	if err != nil {
		event := turnErrorEvent(err)
		switch {
		case errors.Is(err, ErrTurnInProgress), errors.Is(err, ErrEmptyInput):
			event.Content = err.Error()
		}
		display.emit(event)
		display.emit(TurnEvent{Type: EventDone, TurnID: event.TurnID})
		return
	}
	display.emit(TurnEvent{Type: EventDone, TurnID: result.TurnID})
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	h.logger.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

// wsDisplay writes turn events as JSON text frames. Writes are serialized so
// frames from the read loop and a running turn never interleave.
type wsDisplay struct {
	mu     sync.Mutex
	ws     *websocket.Conn
	logger *slog.Logger
}

func (d *wsDisplay) ShowUser(turnID, text string) {
	d.emit(TurnEvent{Type: EventUser, TurnID: turnID, Content: text})
}

func (d *wsDisplay) ShowVerdict(turnID string, verdict domain.Verdict) {
	d.emit(TurnEvent{Type: EventVerdict, TurnID: turnID, Verdict: &verdict})
}

func (d *wsDisplay) ShowReply(turnID, text string) {
	d.emit(TurnEvent{Type: EventReply, TurnID: turnID, Content: text})
}

func (d *wsDisplay) emit(event TurnEvent) {
	d.writeJSON(event)
}

func (d *wsDisplay) writeJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		d.logger.Warn("Failed to marshal websocket message", "error", err)
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ws.Write(context.Background(), websocket.MessageText, data); err != nil {
		d.logger.Debug("WebSocket write error", "error", err)
	}
}
