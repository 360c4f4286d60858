package server

import (
	"encoding/json"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/moonward/lander/internal/dispatcher"
	"github.com/moonward/lander/pkg/wire"
)

const (
	sendChSize     = 256
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client is one connected WebSocket session.
type Client struct {
	hub  *Hub
	conn *ws.Conn
	send chan []byte
	srv  *Server
}

func newClient(srv *Server, conn *ws.Conn) *Client {
	return &Client{
		hub:  srv.hub,
		conn: conn,
		send: make(chan []byte, sendChSize),
		srv:  srv,
	}
}

// trySend queues data without blocking. Full queue drops the message.
func (c *Client) trySend(data []byte) {
	select {
	case c.send <- data:
	default:
	}
}

// sendEnvelope marshals and queues a direct reply to this session.
func (c *Client) sendEnvelope(msgType string, payload any) {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return
	}
	c.trySend(data)
}

// readPump decodes envelopes off the socket and routes them through the
// dispatcher. Runs until the connection drops.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		close(c.send)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	log := c.srv.logManager.Logger()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ws.IsUnexpectedCloseError(err, ws.CloseGoingAway, ws.CloseNormalClosure) {
				log.Debug("Session read error", "error", err)
			}
			return
		}

		var env wire.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.sendEnvelope(wire.TypeError, wire.ErrorPayload{Message: "malformed envelope"})
			continue
		}

		result, err := c.srv.dispatcher.Dispatch(dispatcher.Event{
			Command:   env.Type,
			Payload:   env.Payload,
			Timestamp: time.Now(),
		})
		if err != nil {
			c.sendEnvelope(wire.TypeError, wire.ErrorPayload{Message: err.Error()})
			continue
		}

		// Handlers that produce a reply return its payload.
		if params, ok := result.(wire.ParamsPayload); ok {
			c.sendEnvelope(wire.TypeParams, params)
		}
	}
}

// writePump flushes the send queue to the socket and keeps the connection
// alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(ws.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(ws.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(ws.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
