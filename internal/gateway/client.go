package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/jmrtn/partybot/internal/auth"
	"github.com/jmrtn/partybot/internal/middleware"
	"github.com/jmrtn/partybot/internal/session"
)

const subprotocol = "partybot"

type client struct {
	gw       *Gateway
	identity auth.Identity
	channels map[string]struct{}
	out      chan outbound
	cancel   context.CancelFunc
}

// outbound is one frame to the client: either a command response or a
// relayed engine event.
type outbound struct {
	Op     string            `json:"op"`
	Detail string            `json:"detail,omitempty"`
	Event  *session.Event    `json:"event,omitempty"`
	Status *session.Snapshot `json:"status,omitempty"`
	Data   interface{}       `json:"data,omitempty"`
}

// send enqueues without blocking; a client that cannot drain its queue
// loses frames rather than stalling the engine.
func (c *client) send(msg outbound) {
	select {
	case c.out <- msg:
	default:
		c.gw.Logger.Warnf("dropping frame for slow client %s", c.identity.UserID)
	}
}

// Handler accepts websocket connections. The client authenticates with a
// bearer token in the Authorization header or a "token" query parameter.
func (g *Gateway) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		identity, err := auth.AuthenticateJWT(token)
		if err != nil {
			http.Error(w, "authentication failed", http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{subprotocol},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			g.Logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer conn.Close(websocket.StatusInternalError, "handler finished")

		if conn.Subprotocol() != subprotocol {
			conn.Close(websocket.StatusPolicyViolation, "client must speak the partybot subprotocol")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		c := &client{
			gw:       g,
			identity: identity,
			channels: make(map[string]struct{}),
			out:      make(chan outbound, 32),
			cancel:   cancel,
		}
		g.register(c)
		middleware.LogWebSocketConnect(g.Logger, r.RemoteAddr, r.URL.Path)

		go c.writePump(ctx, conn)
		readErr := c.readPump(ctx, conn)

		cancel()
		g.unregister(c)
		middleware.LogWebSocketDisconnect(g.Logger, r.RemoteAddr, r.URL.Path, readErr)
	}
}

// readPump blocks on the socket, dispatching each command frame.
func (c *client) readPump(ctx context.Context, conn *websocket.Conn) error {
	for {
		typ, msg, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		var cmd command
		if err := json.Unmarshal(msg, &cmd); err != nil {
			c.send(outbound{Op: "error", Detail: "invalid JSON"})
			continue
		}
		c.dispatch(ctx, cmd)
	}
}

func (c *client) writePump(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.out:
			data, err := json.Marshal(msg)
			if err != nil {
				c.gw.Logger.Warnf("failed to marshal outgoing frame for %s: %v", c.identity.UserID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
