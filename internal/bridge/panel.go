package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/linggen/linggen-editor/internal/metrics"
	"github.com/linggen/linggen-editor/internal/query"
	"github.com/linggen/linggen-editor/internal/view"
)

const (
	inboundBuffer  = 16
	outboundBuffer = 16
	eventBuffer    = 256
	frameBuffer    = 8
)

// ---------------------------------------------------------------------------
// Panel
// ---------------------------------------------------------------------------

// Panel is one open graph view. A single goroutine owns the view
// controller; the host talks to it through Post/Outbound and surfaces
// through Dispatch/Subscribe.
type Panel struct {
	id      string
	title   string
	metrics *metrics.Registry

	ctrl    *view.Controller
	message *ViewMessage // non-nil while a placeholder is shown

	inbound  chan ViewMessage
	outbound chan HostMessage
	events   chan UIEvent
	stateReq chan chan view.State

	subsMu sync.Mutex
	subs   map[string]chan []byte
	last   []byte

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewPanel creates a panel showing the loading placeholder. metrics may
// be nil. Call Start to run its event loop.
func NewPanel(title string, vp query.Viewport, m *metrics.Registry) *Panel {
	loading := ShowMessage(view.LoadingText, false)
	return &Panel{
		id:       uuid.New().String(),
		title:    title,
		metrics:  m,
		ctrl:     view.NewController(vp),
		message:  &loading,
		inbound:  make(chan ViewMessage, inboundBuffer),
		outbound: make(chan HostMessage, outboundBuffer),
		events:   make(chan UIEvent, eventBuffer),
		stateReq: make(chan chan view.State),
		subs:     make(map[string]chan []byte),
		done:     make(chan struct{}),
	}
}

// ID returns the panel's unique id.
func (p *Panel) ID() string { return p.id }

// Title returns the panel title.
func (p *Panel) Title() string { return p.title }

// Start runs the event loop until ctx is cancelled or Close is called.
// Either way the panel ends closed: Done fires, outbound and every surface
// channel are closed.
func (p *Panel) Start(ctx context.Context) {
	if p.metrics != nil {
		p.metrics.ViewsOpen.Inc()
	}
	p.publish()
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.teardown()
		p.loop(ctx)
	}()
}

// Close stops the loop and waits for teardown. Safe to call more than
// once and after the start context was cancelled.
func (p *Panel) Close() {
	p.stop()
	p.wg.Wait()
}

func (p *Panel) stop() {
	p.stopOnce.Do(func() { close(p.done) })
}

// teardown runs once on the loop goroutine after the loop exits.
func (p *Panel) teardown() {
	close(p.outbound)
	p.subsMu.Lock()
	for id, ch := range p.subs {
		close(ch)
		delete(p.subs, id)
	}
	p.subsMu.Unlock()
	if p.metrics != nil {
		p.metrics.ViewsOpen.Dec()
	}
	slog.Info("view closed", "view_id", p.id)
}

// Done is closed when the panel is closing.
func (p *Panel) Done() <-chan struct{} { return p.done }

// ============================== CHANNELS ==================================

// Post pushes a host message to the view. It blocks until accepted or the
// panel closes, and reports whether it was accepted.
func (p *Panel) Post(msg ViewMessage) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.inbound <- msg:
		return true
	case <-p.done:
		return false
	}
}

// Outbound delivers the view's requests to the host.
func (p *Panel) Outbound() <-chan HostMessage { return p.outbound }

// Dispatch queues a surface event. Events are dropped (and logged) when the
// queue is full so a flood of pointer moves cannot block the surface.
func (p *Panel) Dispatch(ev UIEvent) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.events <- ev:
		return true
	default:
		slog.Warn("view event dropped", "view_id", p.id, "type", ev.Type)
		return false
	}
}

// State returns a snapshot of the view state, taken on the event loop.
func (p *Panel) State(ctx context.Context) (view.State, bool) {
	reply := make(chan view.State, 1)
	select {
	case p.stateReq <- reply:
	case <-p.done:
		return view.State{}, false
	case <-ctx.Done():
		return view.State{}, false
	}
	select {
	case s := <-reply:
		return s, true
	case <-ctx.Done():
		return view.State{}, false
	}
}

// Subscribe registers a surface and returns a channel of encoded frames.
// The most recent frame is delivered immediately.
func (p *Panel) Subscribe() (string, <-chan []byte) {
	id := uuid.New().String()
	ch := make(chan []byte, frameBuffer)

	p.subsMu.Lock()
	defer p.subsMu.Unlock()
	select {
	case <-p.done:
		close(ch)
		return id, ch
	default:
	}
	if p.last != nil {
		ch <- p.last
	}
	p.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a surface.
func (p *Panel) Unsubscribe(id string) {
	p.subsMu.Lock()
	defer p.subsMu.Unlock()
	if ch, ok := p.subs[id]; ok {
		close(ch)
		delete(p.subs, id)
	}
}

// ============================== EVENT LOOP ================================

func (p *Panel) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.stop()
			return
		case <-p.done:
			return
		case msg := <-p.inbound:
			p.handleInbound(msg)
		case ev := <-p.events:
			p.handleEvent(ev)
		case reply := <-p.stateReq:
			reply <- p.ctrl.State()
		}
	}
}

func (p *Panel) handleInbound(msg ViewMessage) {
	switch msg.Type {
	case MsgGraphData:
		p.ctrl.Apply(msg.update())
		p.message = nil
	case MsgShowMessage:
		m := msg
		p.message = &m
	default:
		slog.Warn("unknown view message", "view_id", p.id, "type", msg.Type)
		return
	}
	p.publish()
}

func (p *Panel) handleEvent(ev UIEvent) {
	if p.metrics != nil {
		p.metrics.ViewEvents.WithLabelValues(string(ev.Type)).Inc()
	}

	changed := false
	switch ev.Type {
	case EventWheel:
		changed = p.ctrl.Wheel(ev.DeltaY, view.Point{X: ev.X, Y: ev.Y})
	case EventNodeDown:
		p.ctrl.NodeDown()
	case EventDragStart:
		p.ctrl.DragStart(view.Point{X: ev.X, Y: ev.Y})
	case EventDragMove:
		changed = p.ctrl.DragMove(view.Point{X: ev.X, Y: ev.Y})
	case EventDragEnd:
		p.ctrl.DragEnd()
	case EventClick:
		changed = p.ctrl.Click(ev.NodeID)
	case EventToggleMode:
		p.ctrl.ToggleMode()
		changed = true
	case EventResize:
		changed = p.ctrl.Resize(query.Viewport{Width: ev.Width, Height: ev.Height})
	case EventRefresh:
		p.send(HostMessage{Type: MsgRefresh})
	case EventOpenLinggen:
		p.send(HostMessage{Type: MsgOpenLinggen})
	default:
		slog.Debug("unknown view event", "view_id", p.id, "type", ev.Type)
	}
	if changed {
		p.publish()
	}
}

// send forwards a request to the host without blocking the loop.
func (p *Panel) send(msg HostMessage) {
	select {
	case p.outbound <- msg:
	default:
		slog.Warn("host request dropped", "view_id", p.id, "type", msg.Type)
	}
}

// publish renders the current state (or placeholder) and fans it out.
func (p *Panel) publish() {
	var frame surfaceFrame
	if p.message != nil {
		frame = surfaceFrame{Type: "message", Text: p.message.Text, Error: p.message.Error}
	} else {
		f, err := view.Render(p.ctrl.State())
		if err != nil {
			slog.Error("view render failed", "view_id", p.id, "error", err)
			frame = surfaceFrame{Type: "message", Text: "Failed to render graph.", Error: true}
		} else {
			frame = surfaceFrame{Type: "frame", SVG: string(f.SVG), Meta: f.Meta, Mode: string(f.Mode), Zoom: f.Zoom}
			if p.metrics != nil {
				p.metrics.RenderedNodes.Observe(float64(f.Nodes))
			}
		}
	}

	data, err := json.Marshal(frame)
	if err != nil {
		slog.Error("view frame encode failed", "view_id", p.id, "error", err)
		return
	}

	p.subsMu.Lock()
	defer p.subsMu.Unlock()
	p.last = data
	for id, ch := range p.subs {
		select {
		case ch <- data:
		default:
			slog.Debug("dropping frame for slow surface", "view_id", p.id, "surface", id)
		}
	}
}
