// Package syncsession is the reference binding described in
// SPEC_FULL.md §6.4: one chi-routed HTTP/WebSocket surface, one actor
// goroutine per session, wiring persistence, role gating, and the
// eventchannel/groupstate/coordinator packages together. Grounded on the
// teacher's server/listentogether package (hub.go's Hub/LiveSession/
// Participant and router.go's chi routes), generalized from a queue of
// media files to the group coordinator's playback state.
package syncsession

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/syncplay/coordinator/eventchannel"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendChanSize   = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// conn is one WebSocket-connected peer, grounded on hub.go's Participant.
type conn struct {
	id     string
	ws     *websocket.Conn
	sendCh chan []byte
}

func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()
	for {
		select {
		case msg, ok := <-c.sendCh:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// wsTransport implements eventchannel.Transport by fanning a sent
// envelope out to every connected peer's send channel and, synchronously,
// to the single locally-subscribed handler — this is what realizes the
// "local origin loops back through the same ingest path as remote origin"
// assumption the coordinator facade relies on (every Send is also a local
// receive). It is also used directly to relay an envelope decoded off an
// inbound WebSocket connection: relaying a remote peer's event is just
// another Send.
type wsTransport struct {
	mu      sync.Mutex
	conns   map[string]*conn
	handler func(eventchannel.Envelope)
}

func newWSTransport() *wsTransport {
	return &wsTransport{conns: make(map[string]*conn)}
}

func (t *wsTransport) Subscribe(h func(eventchannel.Envelope)) {
	t.handler = h
}

func (t *wsTransport) Send(ctx context.Context, env eventchannel.Envelope) error {
	return t.broadcast(env)
}

func (t *wsTransport) broadcast(env eventchannel.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	t.mu.Lock()
	peers := make([]*conn, 0, len(t.conns))
	for _, c := range t.conns {
		peers = append(peers, c)
	}
	t.mu.Unlock()

	for _, c := range peers {
		select {
		case c.sendCh <- data:
		default:
		}
	}
	if t.handler != nil {
		t.handler(env)
	}
	return nil
}

func (t *wsTransport) addConn(c *conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conns[c.id] = c
}

func (t *wsTransport) removeConn(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.conns[id]; ok {
		close(c.sendCh)
		delete(t.conns, id)
	}
}
