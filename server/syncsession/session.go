package syncsession

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/syncplay/coordinator/clock"
	"github.com/syncplay/coordinator/config"
	"github.com/syncplay/coordinator/coordinator"
	"github.com/syncplay/coordinator/eventchannel"
	"github.com/syncplay/coordinator/groupstate"
	"github.com/syncplay/coordinator/log"
	"github.com/syncplay/coordinator/model"
	"github.com/syncplay/coordinator/player"
	"github.com/syncplay/coordinator/rolegate"
	"github.com/syncplay/coordinator/suspension"
)

const serverSenderID = "__server__"

// privileged is the set of event kinds a connection must hold an allowed
// role to emit (spec.md §4.1's restricted scope); position_update and
// joined are always unrestricted.
var privileged = map[model.EventKind]bool{
	model.EventPlay:         true,
	model.EventPause:        true,
	model.EventSeekTo:       true,
	model.EventSetTrack:     true,
	model.EventSetTrackData: true,
}

// connRoles is a minimal rolegate.RoleService backed by an in-memory
// registry populated as connections authenticate, grounded on the
// per-connection cache pattern in heilerich-livekit-server's participant
// state but holding the roles themselves rather than a remote lookup.
type connRoles struct {
	mu    sync.Mutex
	roles map[string][]string
}

func newConnRoles() *connRoles {
	return &connRoles{roles: make(map[string][]string)}
}

func (r *connRoles) RolesFor(ctx context.Context, connID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roles[connID], nil
}

func (r *connRoles) set(connID string, roles []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles[connID] = roles
}

func (r *connRoles) remove(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.roles, connID)
}

// session is the per-CoordinatorSession actor: one goroutine draining a
// mailbox of closures, so groupstate.State is never touched concurrently
// (spec.md §5, SPEC_FULL.md §5). It also hosts a passive, headless
// coordinator.Facade (player.Null) purely so the HTTP snapshot endpoint
// and the role-gated relay have an authoritative view of group state
// without the server itself driving any local media element.
type session struct {
	id        string
	cfg       config.Config
	transport *wsTransport
	channel   *eventchannel.Channel
	state     *groupstate.State
	gate      *rolegate.Gate
	roles     *connRoles
	facade    *coordinator.Facade

	inbox chan func()
	done  chan struct{}
}

func newSession(id string, cfg config.Config) *session {
	transport := newWSTransport()
	clk := clock.System{}
	ch := eventchannel.New(transport, clk, serverSenderID)
	st := groupstate.New(serverSenderID, groupstate.Config{MaxPlaybackDrift: cfg.MaxPlaybackDriftSeconds})
	roles := newConnRoles()
	gate := rolegate.New(roles, 0)
	mgr := suspension.NewManager(st)
	facade := coordinator.New(clk, ch, st, mgr, player.Null{}, gate, cfg.AllowedTransportRoles)
	_ = facade.Initialize(serverSenderID)

	s := &session{
		id:        id,
		cfg:       cfg,
		transport: transport,
		channel:   ch,
		state:     st,
		gate:      gate,
		roles:     roles,
		facade:    facade,
		inbox:     make(chan func(), 64),
		done:      make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *session) run() {
	for {
		select {
		case fn := <-s.inbox:
			fn()
		case <-s.done:
			return
		}
	}
}

// do enqueues fn onto the actor's mailbox and blocks until it has run.
func (s *session) do(fn func()) {
	result := make(chan struct{})
	select {
	case s.inbox <- func() { fn(); close(result) }:
		<-result
	case <-s.done:
	}
}

func (s *session) close() {
	close(s.done)
}

// snapshot is the read-only view GET /sessions/{id} reports.
type snapshot struct {
	Track         *model.Track        `json:"track,omitempty"`
	PlaybackState model.PlaybackState `json:"groupPlaybackState"`
	Peers         int                 `json:"peerCount"`
	TrackData     map[string]any      `json:"trackData,omitempty"`
}

func (s *session) snapshot() snapshot {
	var snap snapshot
	s.do(func() {
		snap = snapshot{
			Track:         s.state.CurrentTrack(),
			PlaybackState: s.state.GroupPlaybackState(),
			Peers:         len(s.state.Peers()),
			TrackData:     s.state.TrackData(),
		}
	})
	return snap
}

// join registers a new connection and its role set and, on the actor
// goroutine, notifies every peer of the join (spec.md §4.3's joined
// ingest rule).
func (s *session) join(c *conn, roles []string) {
	s.transport.addConn(c)
	s.roles.set(c.id, roles)
	s.do(func() {
		if err := s.channel.SendJoined(context.Background()); err != nil {
			log.Warn(context.Background(), "failed to announce join", "session", s.id, "conn", c.id, "error", err)
		}
	})
}

// leave tears down a connection's registration and reaps its peer record.
func (s *session) leave(connID string) {
	s.transport.removeConn(connID)
	s.roles.remove(connID)
	s.gate.Invalidate(connID)
	s.do(func() {
		s.facade.Disconnected(connID)
	})
}

// dispatch handles one inbound WebSocket frame: role-checks privileged
// event kinds against the sender's registered roles, then relays it
// through the transport (which both broadcasts to every connected peer and
// feeds the local ingest handlers) on the actor goroutine.
func (s *session) dispatch(raw []byte) {
	var env eventchannel.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Warn(context.Background(), "dropped malformed envelope", "session", s.id, "error", err)
		return
	}
	s.do(func() {
		if privileged[env.Name] {
			allowed, err := s.gate.Allows(context.Background(), env.ClientID, s.cfg.AllowedTransportRoles)
			if err != nil || !allowed {
				log.Warn(context.Background(), "dropped role-denied event", "session", s.id, "conn", env.ClientID, "kind", env.Name)
				return
			}
		}
		_ = s.transport.broadcast(env)
	})
}

// hub owns every live session actor, keyed by CoordinatorSession id
// (mirrors the teacher's Hub.sessions map[string]*LiveSession).
type hub struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func newHub() *hub {
	return &hub{sessions: make(map[string]*session)}
}

func (h *hub) getOrCreate(id string, cfg config.Config) *session {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.sessions[id]; ok {
		return s
	}
	s := newSession(id, cfg)
	h.sessions[id] = s
	return s
}

func (h *hub) get(id string) *session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessions[id]
}

func (h *hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.sessions[id]; ok {
		s.close()
		delete(h.sessions, id)
	}
}
