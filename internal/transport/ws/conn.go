package ws

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcoot/gridarena/internal/model"
	"github.com/mcoot/gridarena/internal/realtime/codec"
	"github.com/mcoot/gridarena/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Conn is one websocket client. Outbound events are queued and written by a
// single writer goroutine.
type Conn struct {
	id     string
	ws     *websocket.Conn
	codec  codec.Codec
	logger *slog.Logger

	send      chan *model.Event
	closed    chan struct{}
	closeOnce sync.Once
}

var _ session.Conn = (*Conn)(nil)

func newConn(ws *websocket.Conn, c codec.Codec, logger *slog.Logger) *Conn {
	id := uuid.NewString()
	return &Conn{
		id:     id,
		ws:     ws,
		codec:  c,
		logger: logger.With(slog.String("conn_id", id), slog.String("codec", c.Name())),
		send:   make(chan *model.Event, sendBuffer),
		closed: make(chan struct{}),
	}
}

func (c *Conn) ID() string {
	return c.id
}

// Send queues an event. A client that lets its buffer fill is disconnected
// rather than allowed to hold up the room.
func (c *Conn) Send(event *model.Event) bool {
	select {
	case <-c.closed:
		return false
	default:
	}

	select {
	case c.send <- event:
		return true
	case <-c.closed:
		return false
	default:
		c.logger.Warn("send buffer full, closing connection", slog.String("event", string(event.Type)))
		c.Close()
		return false
	}
}

// Close stops the writer, which closes the socket and ends the reader
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}

func (c *Conn) frameType() int {
	if c.codec.Binary() {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

func (c *Conn) write(event *model.Event) error {
	data, err := c.codec.EncodeEvent(event)
	if err != nil {
		c.logger.Error("failed to encode event", slog.String("event", string(event.Type)), slog.Any("error", err))
		return nil
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(c.frameType(), data)
}

// writePump delivers queued events and keeps the connection alive with pings
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case event := <-c.send:
			if err := c.write(event); err != nil {
				c.logger.Debug("write failed", slog.Any("error", err))
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("ping failed", slog.Any("error", err))
				c.Close()
				return
			}
		case <-c.closed:
			c.flush()
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// flush writes whatever is still queued
func (c *Conn) flush() {
	for {
		select {
		case event := <-c.send:
			if err := c.write(event); err != nil {
				return
			}
		default:
			return
		}
	}
}
