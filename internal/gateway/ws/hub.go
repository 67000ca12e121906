package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/dstessier/accord/internal/dialogue"
	"github.com/dstessier/accord/internal/events"
)

// Client represents a connected WebSocket client.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Hub manages WebSocket clients and bridges them to the event bus and
// the dialogue orchestrator.
type Hub struct {
	mu          sync.RWMutex
	clients     map[*Client]struct{}
	bus         *events.Bus
	orch        *dialogue.Orchestrator
	unsubscribe func()
}

// NewHub creates a new WebSocket hub connected to an event bus.
func NewHub(orch *dialogue.Orchestrator, bus *events.Bus) *Hub {
	h := &Hub{
		clients: make(map[*Client]struct{}),
		bus:     bus,
		orch:    orch,
	}

	// Subscribe to all events and bridge to WS clients
	h.unsubscribe = bus.Subscribe(func(e events.Event) {
		frame, err := NewEventFrame(string(e.Type), e.SessionID, e.Payload)
		if err != nil {
			slog.Error("marshal event frame", "error", err)
			return
		}
		data, err := MarshalFrame(frame)
		if err != nil {
			slog.Error("marshal frame", "error", err)
			return
		}
		h.broadcast(data)
	})

	return h
}

// broadcast sends data to all connected clients.
func (h *Hub) broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Client too slow, skip
		}
	}
}

// register adds a client to the hub.
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	slog.Info("ws client connected", "clients", len(h.clients))
}

// unregister removes a client from the hub.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		slog.Info("ws client disconnected", "clients", len(h.clients))
	}
}

// ServeWS handles a WebSocket upgrade and manages the client lifecycle.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Allow any origin for dev
	})
	if err != nil {
		slog.Error("ws accept", "error", err)
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}

	h.register(client)

	ctx := r.Context()
	go client.writePump(ctx)
	client.readPump(ctx)
}

// readPump reads frames from the WS connection and dispatches them.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("ws read closed", "status", websocket.CloseStatus(err))
			} else {
				slog.Debug("ws read error", "error", err)
			}
			return
		}

		frame, err := UnmarshalFrame(data)
		if err != nil {
			slog.Error("ws unmarshal frame", "error", err)
			continue
		}

		c.handleFrame(frame)
	}
}

// handleFrame processes an incoming WS frame.
func (c *Client) handleFrame(frame Frame) {
	switch frame.Type {
	case FrameTypeRequest:
		c.handleRequest(frame)
	default:
		slog.Debug("ws unknown frame type", "type", frame.Type)
	}
}

// handleRequest processes a request frame (method dispatch).
func (c *Client) handleRequest(frame Frame) {
	switch Method(frame.Method) {
	case MethodBeginSession:
		var params struct {
			Topic string `json:"topic"`
		}
		if err := json.Unmarshal(frame.Params, &params); err != nil {
			c.sendError(frame.ID, "invalid params")
			return
		}
		snap, err := c.hub.orch.BeginSession(params.Topic)
		c.respond(frame.ID, snap, err)

	case MethodResetSession:
		if err := c.hub.orch.Reset(); err != nil {
			c.sendError(frame.ID, err.Error())
			return
		}
		c.sendOK(frame.ID, c.hub.orch.Snapshot())

	case MethodSetMode:
		var params struct {
			Mode string `json:"mode"`
		}
		if err := json.Unmarshal(frame.Params, &params); err != nil {
			c.sendError(frame.ID, "invalid params")
			return
		}
		mode, ok := dialogue.ParseMode(params.Mode)
		if !ok {
			c.sendError(frame.ID, "unknown mode: "+params.Mode)
			return
		}
		snap, err := c.hub.orch.SetInteractionMode(mode)
		c.respond(frame.ID, snap, err)

	case MethodBeginRecording:
		snap, err := c.hub.orch.BeginRecording()
		c.respond(frame.ID, snap, err)

	case MethodCaptureUtterance:
		var params struct {
			Text            string `json:"text"`
			AudioDurationMS int64  `json:"audio_duration_ms"`
		}
		if err := json.Unmarshal(frame.Params, &params); err != nil {
			c.sendError(frame.ID, "invalid params")
			return
		}
		duration := time.Duration(params.AudioDurationMS) * time.Millisecond
		snap, err := c.hub.orch.CaptureUtterance(params.Text, duration)
		c.respond(frame.ID, snap, err)

	case MethodDiscardUtterance:
		snap, err := c.hub.orch.DiscardUtterance()
		c.respond(frame.ID, snap, err)

	case MethodDispatch:
		// Dispatch calls out to the model gateways; run it off the read
		// loop so this client can keep receiving broadcasts meanwhile.
		go func() {
			snap, err := c.hub.orch.Dispatch(context.Background())
			c.respond(frame.ID, snap, err)
		}()

	case MethodDismissModerationError:
		snap, err := c.hub.orch.DismissModerationError()
		c.respond(frame.ID, snap, err)

	case MethodDismissPrivateHint:
		snap, err := c.hub.orch.DismissPrivateHint()
		c.respond(frame.ID, snap, err)

	case MethodGetSnapshot:
		c.sendOK(frame.ID, c.hub.orch.Snapshot())

	default:
		c.sendError(frame.ID, "unknown method: "+frame.Method)
	}
}

// respond turns an orchestrator (Snapshot, error) pair into a response
// frame. The snapshot rides along even on errors so clients stay in
// sync with the authoritative state.
func (c *Client) respond(id string, snap dialogue.Snapshot, err error) {
	if err != nil {
		f, ferr := NewResponseFrame(id, false, snap, err.Error())
		if ferr != nil {
			return
		}
		c.queueFrame(f)
		return
	}
	c.sendOK(id, snap)
}

// writePump writes queued messages to the WS connection.
func (c *Client) writePump(ctx context.Context) {
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) sendOK(id string, payload any) {
	f, err := NewResponseFrame(id, true, payload, "")
	if err != nil {
		return
	}
	c.queueFrame(f)
}

func (c *Client) sendError(id string, errMsg string) {
	f, err := NewResponseFrame(id, false, nil, errMsg)
	if err != nil {
		return
	}
	c.queueFrame(f)
}

func (c *Client) queueFrame(f Frame) {
	data, err := MarshalFrame(f)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// Close shuts down the hub and all client connections.
func (h *Hub) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close(websocket.StatusGoingAway, "server shutdown")
		delete(h.clients, c)
	}
}
