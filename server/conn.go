package server

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aymanh23/searchv2/pipeline"
	"github.com/aymanh23/searchv2/protocol"
	"github.com/aymanh23/searchv2/streamers"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// RequestHandler processes an incoming request and returns a response
// envelope, or nil when no reply is owed.
type RequestHandler func(env *protocol.Envelope) (*protocol.Envelope, error)

// Conn manages one patient WebSocket connection. The connection owns a
// session registry of its own; sessions die with the socket, the store
// underneath does not.
type Conn struct {
	server   *Server
	ws       *websocket.Conn
	userID   string
	registry *pipeline.Registry

	send     chan []byte
	handlers map[protocol.MessageType]RequestHandler

	done      chan struct{}
	closeOnce sync.Once
}

func newConn(s *Server, ws *websocket.Conn, userID string) *Conn {
	c := &Conn{
		server:   s,
		ws:       ws,
		userID:   userID,
		send:     make(chan []byte, 256),
		handlers: make(map[protocol.MessageType]RequestHandler),
		done:     make(chan struct{}),
	}
	c.registry = pipeline.NewRegistry(s.factory, s.searcher).
		WithStore(s.stores).
		WithHandlerFactory(func() streamers.PipelineHandler {
			return streamers.NewStoringPipelineHandler(NewWSPipelineHandler(c), s.stores.Events)
		})
	c.registerHandlers()
	return c
}

// run starts the write pump and reads until the socket dies, then discards
// the connection's live sessions.
func (c *Conn) run() {
	go c.writePump()
	c.readPump()
	c.registry.Close()
}

// Close tears the connection down. The read pump notices and unwinds.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.ws.Close()
	})
}

func (c *Conn) readPump() {
	defer func() {
		close(c.done)
		c.ws.Close()
	}()

	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}

		var env protocol.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			log.Printf("Invalid message from client: %v", err)
			continue
		}

		// Pipeline advances block on the model, so every request gets its
		// own goroutine; responses carry the request ID and need no ordering.
		go c.dispatch(&env)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Conn) dispatch(env *protocol.Envelope) {
	handler, ok := c.handlers[env.Type]
	if !ok {
		log.Printf("Unhandled message type from client: %s", env.Type)
		resp, _ := protocol.NewError(env.RequestID, "unknown_type", fmt.Sprintf("unhandled message type %q", env.Type))
		c.sendEnvelope(resp)
		return
	}
	resp, err := handler(env)
	if err != nil {
		errResp, _ := protocol.NewError(env.RequestID, "handler_error", err.Error())
		c.sendEnvelope(errResp)
		return
	}
	if resp != nil {
		c.sendEnvelope(resp)
	}
}

func (c *Conn) sendEnvelope(env *protocol.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return fmt.Errorf("connection closed")
	}
}

// SendEvent sends a one-way event to the client (no response expected).
func (c *Conn) SendEvent(env *protocol.Envelope) error {
	return c.sendEnvelope(env)
}
