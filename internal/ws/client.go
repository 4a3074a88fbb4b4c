package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const sendBuffer = 64

// client pairs one websocket connection with its buffered outbound queue.
// The writer goroutine owns all writes to the connection; everything else
// enqueues through send. A full queue drops the message rather than letting
// one slow client stall the room.
type client struct {
	playerID uuid.UUID
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	stopOnce sync.Once
	log      logrus.FieldLogger
}

func newClient(playerID uuid.UUID, conn *websocket.Conn, log logrus.FieldLogger) *client {
	return &client{
		playerID: playerID,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
		log:      log.WithField("player", playerID),
	}
}

// enqueue serializes and queues one message for delivery.
func (c *client) enqueue(msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.WithError(err).Error("failed to encode outbound message")
		return
	}
	select {
	case c.send <- data:
	default:
		c.log.WithField("event", msg.Type).Warn("send queue full, dropping message")
	}
}

// writePump drains the send queue onto the wire and keeps the connection
// alive with pings. Runs until the queue closes or the peer goes away.
func (c *client) writePump(ctx context.Context) {
	ping := time.NewTicker(15 * time.Second)
	defer ping.Stop()
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// stop releases the writer goroutine. Idempotent.
func (c *client) stop() {
	c.stopOnce.Do(func() { close(c.done) })
}
