package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/rallyboard/internal/domain/bus"
	"github.com/okian/rallyboard/internal/domain/model"
	"github.com/okian/rallyboard/pkg/logger"
	"github.com/okian/rallyboard/pkg/metrics"
)

// liveFrame and standingsFrame are the outbound wire shapes. The value field
// is always present: null means cleared, which viewers must render as such.
type liveFrame struct {
	Kind      model.Kind       `json:"kind"`
	Revision  model.Revision   `json:"revision"`
	LiveMatch *model.LiveMatch `json:"liveMatch"`
}

type standingsFrame struct {
	Kind      model.Kind            `json:"kind"`
	Revision  model.Revision        `json:"revision"`
	Standings *model.GroupStandings `json:"standings"`
}

type client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	unsubs []bus.Unsubscribe
	once   sync.Once
}

// onEvent runs inside the bus fan-out, so it must never block. A full send
// buffer means the viewer cannot keep up and gets dropped.
func (c *client) onEvent(ctx context.Context, ev model.Event) {
	payload, err := encodeFrame(ev)
	if err != nil {
		c.hub.log().Error(ctx, "frame encode failed",
			logger.String("client_id", c.id),
			logger.String("kind", string(ev.Kind)),
			logger.Error(err),
		)
		return
	}
	select {
	case c.send <- payload:
	default:
		metrics.RecordWSDroppedFrame()
		c.hub.log().Warn(ctx, "dropping slow viewer",
			logger.String("client_id", c.id),
			logger.String("kind", string(ev.Kind)),
		)
		c.drop("slow consumer")
	}
}

func encodeFrame(ev model.Event) ([]byte, error) {
	if ev.Kind == model.KindLiveMatch {
		return json.Marshal(liveFrame{Kind: ev.Kind, Revision: ev.Revision, LiveMatch: ev.LiveMatch})
	}
	return json.Marshal(standingsFrame{Kind: ev.Kind, Revision: ev.Revision, Standings: ev.Standings})
}

// drop detaches the client exactly once. Safe to call from the fan-out path:
// the bus delivers on a snapshot, so unsubscribing mid-delivery cannot wedge.
// The send channel is never closed; a publish racing the drop just lands in
// a buffer nobody reads.
func (c *client) drop(reason string) {
	c.once.Do(func() {
		for _, unsub := range c.unsubs {
			unsub()
		}
		c.hub.removeClient(c)
		close(c.done)
		c.hub.log().Debug(context.Background(), "viewer detached",
			logger.String("client_id", c.id),
			logger.String("reason", reason),
		)
	})
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		c.drop("writer closed")
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound traffic; viewers are read-only. It exists to
// notice closes and keep the pong handler serviced.
func (c *client) readPump() {
	defer func() {
		c.drop("reader closed")
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
