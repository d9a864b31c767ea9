package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ashureev/socratic-labs/internal/api"
	"github.com/ashureev/socratic-labs/internal/config"
	"github.com/ashureev/socratic-labs/internal/domain"
	"github.com/ashureev/socratic-labs/internal/identity"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20 // 1MB

// RateLimiter implements a per-user rate limiter.
// The key is userID only, not userID:sessionID, so clients cannot bypass
// throttling by rotating session IDs.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a new rate limiter and starts the background eviction goroutine.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		done:     make(chan struct{}),
	}
	rl.startEviction()
	return rl
}

// Allow checks if a request is allowed for the given key.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// Stop ends the eviction goroutine.
func (r *RateLimiter) Stop() {
	r.stopOnce.Do(func() { close(r.done) })
}

// startEviction periodically removes expired keys so the map does not grow
// without bound.
func (r *RateLimiter) startEviction() {
	go func() {
		ticker := time.NewTicker(r.window)
		defer ticker.Stop()
		for {
			select {
			case <-r.done:
				return
			case <-ticker.C:
			}
			r.mu.Lock()
			cutoff := time.Now().Add(-r.window)
			for key, times := range r.requests {
				var fresh []time.Time
				for _, t := range times {
					if t.After(cutoff) {
						fresh = append(fresh, t)
					}
				}
				if len(fresh) == 0 {
					delete(r.requests, key)
				} else {
					r.requests[key] = fresh
				}
			}
			r.mu.Unlock()
		}
	}()
}

// Handler serves the dialogue over HTTP: an SSE turn endpoint plus transcript,
// reset and profile reads.
type Handler struct {
	agent       *Service
	rateLimiter *RateLimiter
	maxBodySize int64
	logger      *slog.Logger
}

// NewHandler creates a dialogue handler. cfg may be nil.
func NewHandler(agentService *Service, cfg *config.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	rateLimitRequests := 10
	rateLimitWindow := time.Minute
	maxBodySize := int64(defaultMaxRequestBodySize)
	if cfg != nil {
		rateLimitRequests = cfg.RateLimit.RequestsPerWindow
		rateLimitWindow = cfg.RateLimit.WindowDuration
		if cfg.MaxRequestBodySize > 0 {
			maxBodySize = cfg.MaxRequestBodySize
		}
	}

	return &Handler{
		agent:       agentService,
		rateLimiter: NewRateLimiter(rateLimitRequests, rateLimitWindow),
		maxBodySize: maxBodySize,
		logger:      logger,
	}
}

// RegisterRoutes registers dialogue routes (requires identity middleware).
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/dialogue", func(r chi.Router) {
		r.Post("/turn", h.HandleTurn)
		r.Get("/transcript", h.HandleTranscript)
		r.Post("/reset", h.HandleReset)
		r.Get("/stats", h.HandleStats)
	})
	r.Get("/api/profile", h.HandleProfile)
}

// Close releases handler resources.
func (h *Handler) Close() {
	h.rateLimiter.Stop()
	if h.agent != nil {
		h.agent.Close()
	}
}

// GetService returns the underlying dialogue service.
func (h *Handler) GetService() *Service {
	return h.agent
}

// HandleTurn handles POST /api/dialogue/turn. The turn is streamed as SSE
// events in pipeline order: user, verdict, reply, then done. A failed turn
// emits error before done.
func (h *Handler) HandleTurn(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if !h.rateLimiter.Allow(userID) {
		api.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		api.Error(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	logger := h.logger.With(
		"user_id", userID,
		"session_id", sessionID,
		"request_id", chiMiddleware.GetReqID(r.Context()),
	)
	logger.Info("Dialogue turn request", "message_length", len(req.Message))

	display := newSSEDisplay(w, flusher, logger)
	result, err := h.agent.Turn(r.Context(), userID, sessionID, req.Message, display)
	if err != nil && !display.started {
		switch {
		case errors.Is(err, ErrEmptyInput):
			api.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrTurnInProgress):
			api.Error(w, http.StatusConflict, err.Error())
		default:
			logger.Error("Dialogue turn failed before streaming", "error", err)
			api.Error(w, http.StatusInternalServerError, "failed to start turn")
		}
		return
	}

	turnID := ""
	if result != nil {
		turnID = result.TurnID
	}
	if err != nil {
		event := turnErrorEvent(err)
		turnID = event.TurnID
		display.emit(event)
	}
	display.emit(TurnEvent{Type: EventDone, TurnID: turnID})
}

// turnErrorEvent converts a turn failure into the event shown to the user.
func turnErrorEvent(err error) TurnEvent {
	event := TurnEvent{Type: EventError, Content: userFacingError(err)}
	var turnErr *TurnError
	if errors.As(err, &turnErr) {
		event.TurnID = turnErr.TurnID
		event.Stage = turnErr.Stage
		event.Retryable = turnErr.Retryable
	}
	return event
}

func userFacingError(err error) string {
	switch {
	case errors.Is(err, ErrModelTimeout):
		return "The model took too long to respond. Please send your statement again."
	case errors.Is(err, ErrEmptyReply):
		return "The model returned an empty reply. Please send your statement again."
	}
	var turnErr *TurnError
	if errors.As(err, &turnErr) && turnErr.Stage == StagePersist {
		return "Your reply was delivered but your profile could not be saved."
	}
	return "The dialogue partner is unavailable right now. Please try again."
}

// HandleTranscript handles GET /api/dialogue/transcript.
func (h *Handler) HandleTranscript(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	sessionID := identity.SessionIDFromContext(r.Context())

	api.JSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"turns":      h.agent.Transcript(userID, sessionID),
	})
}

// HandleReset handles POST /api/dialogue/reset.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	sessionID := identity.SessionIDFromContext(r.Context())

	if err := h.agent.Reset(userID, sessionID); err != nil {
		if errors.Is(err, ErrTurnInProgress) {
			api.Error(w, http.StatusConflict, err.Error())
			return
		}
		api.Error(w, http.StatusInternalServerError, "failed to reset session")
		return
	}
	api.JSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// HandleStats handles GET /api/dialogue/stats.
func (h *Handler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	api.JSON(w, http.StatusOK, h.agent.GetStats())
}

// profileResponse is the body of GET /api/profile.
type profileResponse struct {
	Profile      *domain.CognitiveProfile `json:"profile"`
	TopFallacies []domain.FallacyCount    `json:"top_fallacies"`
	Summary      string                   `json:"summary"`
}

// HandleProfile handles GET /api/profile.
func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	p, top, summary, err := h.agent.Profile(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to load profile", "user_id", userID, "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	if top == nil {
		top = []domain.FallacyCount{}
	}
	api.JSON(w, http.StatusOK, profileResponse{Profile: p, TopFallacies: top, Summary: summary})
}

// sseDisplay streams turn events as server-sent events. Headers are written
// lazily so errors raised before the first event can still use a status code.
type sseDisplay struct {
	w       http.ResponseWriter
	flusher http.Flusher
	logger  *slog.Logger
	started bool
	broken  bool
}

func newSSEDisplay(w http.ResponseWriter, flusher http.Flusher, logger *slog.Logger) *sseDisplay {
	return &sseDisplay{w: w, flusher: flusher, logger: logger}
}

func (d *sseDisplay) ShowUser(turnID, text string) {
	d.emit(TurnEvent{Type: EventUser, TurnID: turnID, Content: text})
}

func (d *sseDisplay) ShowVerdict(turnID string, verdict domain.Verdict) {
	d.emit(TurnEvent{Type: EventVerdict, TurnID: turnID, Verdict: &verdict})
}

func (d *sseDisplay) ShowReply(turnID, text string) {
	d.emit(TurnEvent{Type: EventReply, TurnID: turnID, Content: text})
}

func (d *sseDisplay) emit(event TurnEvent) {
	if d.broken {
		return
	}
	if !d.started {
		d.w.Header().Set("Content-Type", "text/event-stream")
		d.w.Header().Set("Cache-Control", "no-cache")
		d.w.Header().Set("Connection", "keep-alive")
		d.w.WriteHeader(http.StatusOK)
		d.started = true
	}

	data, err := json.Marshal(event)
	if err != nil {
		d.logger.Warn("failed to marshal turn event", "type", event.Type, "error", err)
		return
	}
	if err := writeSSE(d.w, string(event.Type), string(data)); err != nil {
		// The client went away; the turn still completes and is persisted.
		d.logger.Warn("failed to write SSE event", "type", event.Type, "error", err)
		d.broken = true
		return
	}
	d.flusher.Flush()
}

func writeSSE(w io.Writer, event, data string) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
