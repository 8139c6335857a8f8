package collab

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 512 << 10 // generous: full documents travel in code-update frames

	// outBufferSize bounds the per-connection outbound queue. Broadcasts are
	// fire-and-forget; when a client cannot keep up, frames are dropped
	// rather than stalling the broker.
	outBufferSize = 64
)

// frame is the wire format for both directions: {"event": ..., "data": {...}}.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type outFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Handler upgrades HTTP requests to websocket connections and routes room
// events to the broker.
type Handler struct {
	broker   *Broker
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler builds the websocket endpoint. Upgrades are only accepted from
// the allowed browser origins; the websocket layer is the one place CORS
// middleware cannot cover.
func NewHandler(broker *Broker, log *zap.Logger, allowedOrigins []string) *Handler {
	return &Handler{
		broker: broker,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true // non-browser clients
				}
				for _, allowed := range allowedOrigins {
					if allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// Serve is the gin handler for GET /ws.
func (h *Handler) Serve(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := &connection{
		id:     uuid.NewString(),
		ws:     ws,
		out:    make(chan outFrame, outBufferSize),
		broker: h.broker,
		log:    h.log,
	}
	h.log.Info("client connected", zap.String("conn_id", conn.id))

	go conn.writeLoop()
	conn.readLoop()
}

// connection is one websocket client. It implements Sender via its buffered
// outbound channel, so the broker never blocks on a slow client.
type connection struct {
	id     string
	ws     *websocket.Conn
	out    chan outFrame
	broker *Broker
	log    *zap.Logger
}

// Send queues an event for delivery, dropping it if the client is too far
// behind.
func (c *connection) Send(event string, data any) {
	select {
	case c.out <- outFrame{Event: event, Data: data}:
	default:
		c.log.Warn("dropping frame for slow client",
			zap.String("conn_id", c.id),
			zap.String("event", event))
	}
}

func (c *connection) readLoop() {
	defer func() {
		c.broker.Leave(c.id)
		close(c.out)
		c.ws.Close()
		c.log.Info("client disconnected", zap.String("conn_id", c.id))
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("websocket read error", zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}

		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			// Malformed frames are dropped, matching the broker's policy of
			// ignoring events that lost a race with disconnect.
			continue
		}
		c.dispatch(f)
	}
}

func (c *connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case f, ok := <-c.out:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteJSON(f); err != nil {
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

func (c *connection) dispatch(f frame) {
	switch f.Event {
	case "create-session":
		var data struct {
			Language string `json:"language"`
			Code     string `json:"code"`
			Stdin    string `json:"stdin"`
		}
		if err := json.Unmarshal(f.Data, &data); err != nil {
			c.ack("create-session", nil, err)
			return
		}
		res, err := c.broker.Create(c.id, c, data.Language, data.Code, data.Stdin)
		c.ack("create-session", res, err)

	case "join-session":
		var data struct {
			SessionID string `json:"sessionId"`
		}
		if err := json.Unmarshal(f.Data, &data); err != nil {
			c.ack("join-session", nil, err)
			return
		}
		res, err := c.broker.Join(c.id, c, data.SessionID)
		c.ack("join-session", res, err)

	case "code-update":
		c.update(f.Data, FieldCode)
	case "language-update":
		c.update(f.Data, FieldLanguage)
	case "stdin-update":
		c.update(f.Data, FieldStdin)
	}
}

func (c *connection) update(raw json.RawMessage, field Field) {
	var data map[string]string
	if err := json.Unmarshal(raw, &data); err != nil {
		return
	}
	c.broker.Update(c.id, field, data[string(field)])
}

// ack answers a create/join request on the "<event>-ack" channel. Failures are
// structured {success:false, error} payloads, never connection errors: the
// client is expected to branch on the flag and recover.
func (c *connection) ack(event string, result any, err error) {
	if err != nil {
		c.Send(event+"-ack", map[string]any{"success": false, "error": err.Error()})
		return
	}
	payload := map[string]any{"success": true}
	b, merr := json.Marshal(result)
	if merr == nil {
		var fields map[string]any
		if json.Unmarshal(b, &fields) == nil {
			for k, v := range fields {
				payload[k] = v
			}
		}
	}
	c.Send(event+"-ack", payload)
}
