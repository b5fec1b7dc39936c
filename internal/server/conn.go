package server

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendQueueSize  = 256
)

// ErrSendQueueFull is returned when a connection's outbound queue is
// saturated; the event is dropped, not retried.
var ErrSendQueueFull = errors.New("send queue full")

// conn is one client's persistent websocket connection. It implements
// user.Endpoint; outbound emission is fire-and-forget through a buffered
// channel drained by writePump.
type conn struct {
	userID   int64
	userName string
	ws       *websocket.Conn
	send     chan []byte
	srv      *Server
	logger   *zap.Logger
}

func newConn(userID int64, userName string, ws *websocket.Conn, srv *Server) *conn {
	return &conn{
		userID:   userID,
		userName: userName,
		ws:       ws,
		send:     make(chan []byte, sendQueueSize),
		srv:      srv,
		logger:   srv.logger.With(zap.Int64("user_id", userID)),
	}
}

// UserID returns the identity bound to this connection at upgrade time.
func (c *conn) UserID() int64 {
	return c.userID
}

// Send marshals and queues an outbound event. It never blocks: a saturated
// queue drops the event and reports ErrSendQueueFull.
func (c *conn) Send(event string, payload any) error {
	data, err := json.Marshal(outEnvelope{Event: event, Data: payload})
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

func (c *conn) start() {
	go c.writePump()
	go c.readPump()
}

func (c *conn) readPump() {
	defer func() {
		c.srv.handleDisconnect(c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("read error", zap.Error(err))
			}
			return
		}
		c.srv.handleEvent(c, data)
	}
}

func (c *conn) writePump() {
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
		}
	}
}
