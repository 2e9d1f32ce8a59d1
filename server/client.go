package main

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultWriteWait  = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 1024
	defaultSendBuffer = 64
	maxMessagesPerSec = 20
)

// TierControl forwards HUD tier requests to the engine goroutine
type TierControl interface {
	SetTier(name string) error
}

type outMsg struct {
	kind int // websocket.TextMessage or websocket.BinaryMessage
	data []byte
}

// Client is one HUD WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan outMsg
	log        *zap.Logger
	ctl        TierControl
	remoteAddr string
	subject    string
	writeWait  time.Duration
	msgCount   int
	msgResetAt time.Time
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr, subject string, opts ClientOptions) *Client {
	if opts.SendBuffer < 1 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = defaultWriteWait
	}
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan outMsg, opts.SendBuffer),
		log:        hub.log,
		ctl:        opts.Control,
		remoteAddr: remoteAddr,
		subject:    subject,
		writeWait:  opts.WriteWait,
	}
}

// ClientOptions carries the per-connection tunables from the [server] section
type ClientOptions struct {
	SendBuffer int
	WriteWait  time.Duration
	Control    TierControl
}

// ReadPump reads control messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("ws error", zap.String("ip", c.remoteAddr), zap.Error(err))
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			c.log.Warn("rate limit exceeded, disconnecting", zap.String("ip", c.remoteAddr))
			break
		}

		c.handleMessage(message)
	}
}

// WritePump writes queued messages and pings to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(msg.kind, msg.data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON text message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("marshal error", zap.Error(err))
		return
	}
	// send may already be closed by the hub
	defer func() { recover() }()
	select {
	case c.send <- outMsg{kind: websocket.TextMessage, data: data}:
	default:
		// Client too slow, drop message
	}
}

func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.Debug("unmarshal error", zap.Error(err))
		return
	}

	switch env.T {
	case MsgTier:
		c.handleTier(env.D)
	}
}

func (c *Client) handleTier(data json.RawMessage) {
	var msg TierMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if c.ctl == nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "tier control disabled"}})
		return
	}
	if err := c.ctl.SetTier(msg.Tier); err != nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: err.Error()}})
		return
	}
	c.log.Info("tier requested", zap.String("sub", c.subject), zap.String("tier", msg.Tier))
}
