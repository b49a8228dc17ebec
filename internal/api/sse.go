package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/linggen/linggen-editor/internal/backend"
)

// Event names published on /api/events besides notices and job progress.
const (
	EventMonitorStatus = "monitor_status"
	EventViewOpened    = "view_opened"
	EventViewClosed    = "view_closed"
	eventHeartbeat     = "heartbeat"
)

// SSEEvent is one host notification. Seq is assigned on publish.
type SSEEvent struct {
	Seq   uint64      `json:"seq"`
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

const (
	sseClientBuffer   = 64
	sseHeartbeatEvery = 30 * time.Second
)

// ---------------------------------------------------------------------------
// SSEBroadcaster
// ---------------------------------------------------------------------------

type sseClient struct {
	ch     chan SSEEvent
	events map[string]bool // nil accepts everything
}

func (c *sseClient) wants(event string) bool {
	return c.events == nil || c.events[event]
}

// SSEBroadcaster fans host notifications out to connected clients. Events
// named sticky at construction are remembered, and a new subscriber first
// receives the latest value of each, so a late client sees the current
// monitor status without waiting for the next change.
type SSEBroadcaster struct {
	mu      sync.RWMutex
	seq     uint64
	clients map[string]*sseClient
	sticky  map[string]bool
	last    map[string]SSEEvent
}

// NewSSEBroadcaster creates a broadcaster. With no arguments it remembers
// the monitor status.
func NewSSEBroadcaster(sticky ...string) *SSEBroadcaster {
	if len(sticky) == 0 {
		sticky = []string{EventMonitorStatus}
	}
	b := &SSEBroadcaster{
		clients: make(map[string]*sseClient),
		sticky:  make(map[string]bool, len(sticky)),
		last:    make(map[string]SSEEvent),
	}
	for _, e := range sticky {
		b.sticky[e] = true
	}
	return b
}

// Subscribe registers a client for the given event names (all when none
// are given) and returns its channel, pre-filled with remembered events.
func (b *SSEBroadcaster) Subscribe(clientID string, events ...string) <-chan SSEEvent {
	c := &sseClient{ch: make(chan SSEEvent, sseClientBuffer)}
	if len(events) > 0 {
		c.events = make(map[string]bool, len(events))
		for _, e := range events {
			c.events[e] = true
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, evt := range b.last {
		if c.wants(evt.Event) {
			c.ch <- evt
		}
	}
	b.clients[clientID] = c
	slog.Debug("sse client subscribed", "client_id", clientID, "total", len(b.clients))
	return c.ch
}

// Unsubscribe removes a client and closes its channel.
func (b *SSEBroadcaster) Unsubscribe(clientID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.clients[clientID]; ok {
		close(c.ch)
		delete(b.clients, clientID)
		slog.Debug("sse client unsubscribed", "client_id", clientID, "remaining", len(b.clients))
	}
}

// Publish sends event to every interested client. A client whose buffer
// is full misses the event.
func (b *SSEBroadcaster) Publish(event string, data interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	evt := SSEEvent{Seq: b.seq, Event: event, Data: data}
	if b.sticky[event] {
		b.last[event] = evt
	}
	for id, c := range b.clients {
		if !c.wants(event) {
			continue
		}
		select {
		case c.ch <- evt:
		default:
			slog.Warn("sse dropping event for slow client", "event", event, "client_id", id)
		}
	}
}

// Last returns the remembered value of a sticky event.
func (b *SSEBroadcaster) Last(event string) (SSEEvent, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	evt, ok := b.last[event]
	return evt, ok
}

// ClientCount returns the number of connected clients.
func (b *SSEBroadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// jobBroadcaster satisfies backend.Broadcaster.
type jobBroadcaster struct {
	sse *SSEBroadcaster
}

func (j jobBroadcaster) Broadcast(event string, data interface{}) {
	j.sse.Publish(event, data)
}

// NewJobBroadcaster routes job progress onto sse.
func NewJobBroadcaster(sse *SSEBroadcaster) backend.Broadcaster {
	return jobBroadcaster{sse: sse}
}

// ---------------------------------------------------------------------------
// HTTP handler: GET /api/events[?events=notice,monitor_status]
// ---------------------------------------------------------------------------

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "SSE_NOT_SUPPORTED",
			"streaming unsupported")
		return
	}

	var events []string
	for _, e := range strings.Split(r.URL.Query().Get("events"), ",") {
		if e = strings.TrimSpace(e); e != "" {
			events = append(events, e)
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	clientID := uuid.New().String()
	ch := s.sse.Subscribe(clientID, events...)
	defer s.sse.Unsubscribe(clientID)

	heartbeat := time.NewTicker(sseHeartbeatEvery)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := writeSSEEvent(w, flusher, evt); err != nil {
				return
			}
		case t := <-heartbeat.C:
			// Heartbeats carry no id so they never move the client's
			// Last-Event-ID.
			hb := SSEEvent{Event: eventHeartbeat, Data: map[string]int64{"t": t.Unix()}}
			if err := writeSSEEvent(w, flusher, hb); err != nil {
				return
			}
		}
	}
}

// writeSSEEvent writes one frame: event, data, then id when assigned.
func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, evt SSEEvent) error {
	data, err := json.Marshal(evt.Data)
	if err != nil {
		return err
	}
	frame := fmt.Sprintf("event: %s\ndata: %s\n", evt.Event, data)
	if evt.Seq > 0 {
		frame += fmt.Sprintf("id: %d\n", evt.Seq)
	}
	if _, err := fmt.Fprint(w, frame+"\n"); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
