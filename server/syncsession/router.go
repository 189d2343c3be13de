package syncsession

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/syncplay/coordinator/config"
	"github.com/syncplay/coordinator/core"
	"github.com/syncplay/coordinator/log"
)

// Router is the reference HTTP/WebSocket binding (SPEC_FULL.md §6.4),
// grounded on the teacher's server/listentogether.Router.
type Router struct {
	http.Handler
	sessions core.SessionService
	hub      *hub
	cfg      config.Config
}

// New creates a Router backed by sessions for persistence and cfg as the
// default configuration applied to every session's groupstate.State.
func New(sessions core.SessionService, cfg config.Config) *Router {
	rt := &Router{sessions: sessions, hub: newHub(), cfg: cfg}
	rt.Handler = rt.routes()
	return rt
}

func (rt *Router) routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/sessions", rt.createSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", rt.getSession)
		r.Delete("/", rt.deleteSession)
		r.Get("/ws", rt.handleWebSocket)
	})
	return r
}

type createSessionRequest struct {
	Description            string   `json:"description"`
	AllowedRoles           []string `json:"allowedRoles"`
	MaxPlaybackDrift       float64  `json:"maxPlaybackDriftSeconds"`
	PositionUpdateInterval float64  `json:"positionUpdateIntervalSeconds"`
}

func (rt *Router) createSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	cfg := rt.cfg
	if req.MaxPlaybackDrift > 0 {
		cfg.MaxPlaybackDriftSeconds = req.MaxPlaybackDrift
	}
	if req.PositionUpdateInterval > 0 {
		cfg.PositionUpdateIntervalSeconds = req.PositionUpdateInterval
	}
	if len(req.AllowedRoles) > 0 {
		cfg.AllowedTransportRoles = req.AllowedRoles
	}
	if err := cfg.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	hostConnID := uuid.NewString()
	record, err := rt.sessions.Create(ctx, hostConnID, req.Description, cfg.AllowedTransportRoles, cfg)
	if err != nil {
		log.Error(ctx, "failed to create coordinator session", "error", err)
		http.Error(w, "error creating session", http.StatusInternalServerError)
		return
	}

	rt.hub.getOrCreate(record.ID, cfg)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(record)
}

func (rt *Router) getSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	record, err := rt.sessions.Load(ctx, id)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	s := rt.hub.get(id)
	resp := struct {
		Session  interface{} `json:"session"`
		Snapshot *snapshot   `json:"live,omitempty"`
	}{Session: record}
	if s != nil {
		snap := s.snapshot()
		resp.Snapshot = &snap
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (rt *Router) deleteSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := rt.sessions.Delete(ctx, id); err != nil {
		log.Error(ctx, "failed to delete coordinator session", "error", err)
		http.Error(w, "error deleting session", http.StatusInternalServerError)
		return
	}
	rt.hub.remove(id)
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	record, err := rt.sessions.Load(ctx, id)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	cfg := rt.cfg
	cfg.MaxPlaybackDriftSeconds = record.MaxPlaybackDrift
	cfg.PositionUpdateIntervalSeconds = record.PositionUpdateInterval
	cfg.AllowedTransportRoles = record.Roles()
	s := rt.hub.getOrCreate(record.ID, cfg)

	connID, roles := identify(r)

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error(ctx, "websocket upgrade failed", "error", err)
		return
	}

	c := &conn{id: connID, ws: ws, sendCh: make(chan []byte, sendChanSize)}
	s.join(c, roles)

	go c.writePump()
	readPump(s, c)
}

// readPump reads frames from the connection and hands each one to the
// session's actor for role-checked relay, grounded on hub.go's
// Participant.ReadPump.
func readPump(s *session, c *conn) {
	defer func() {
		s.leave(c.id)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		s.dispatch(msg)
	}
}

// identify resolves a connection id and its roles from the request: a
// Bearer JWT's "sub" and "roles" claims when present (the teacher's
// jwx-based token parsing, auth.TokenAuth.Decode's counterpart), falling
// back to an anonymous generated id and no roles — matching the teacher's
// own unauthenticated-guest fallback in handleWebSocket's ?name= query
// param. In either case a ?role= query parameter adds one more role.
// Full signature verification is delegated to a key provider the
// deploying host wires into jwt.Parse's options; this reference binding
// only demonstrates the claim surface.
func identify(r *http.Request) (connID string, roles []string) {
	connID = uuid.NewString()

	auth := r.Header.Get("Authorization")
	if tokenStr, ok := strings.CutPrefix(auth, "Bearer "); ok {
		token, err := jwt.ParseInsecure([]byte(tokenStr))
		if err == nil {
			if sub := token.Subject(); sub != "" {
				connID = sub
			}
			if raw, ok := token.Get("roles"); ok {
				roles = toStringSlice(raw)
			}
		}
	}

	if q := r.URL.Query().Get("role"); q != "" {
		roles = append(roles, q)
	}
	return connID, roles
}

func toStringSlice(v interface{}) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return strings.Split(t, ",")
	default:
		return nil
	}
}
