package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/rs/zerolog"
)

// Subprotocol is the WebSocket subprotocol spoken on the WS endpoint.
const Subprotocol = "graphql-transport-ws"

// Message types of the graphql-transport-ws protocol.
const (
	MsgConnectionInit = "connection_init"
	MsgConnectionAck  = "connection_ack"
	MsgPing           = "ping"
	MsgPong           = "pong"
	MsgSubscribe      = "subscribe"
	MsgNext           = "next"
	MsgError          = "error"
	MsgComplete       = "complete"
)

// Close codes of the graphql-transport-ws protocol.
const (
	CloseBadRequest          = 4400
	CloseUnauthorized        = 4401
	CloseInitTimeout         = 4408
	CloseSubscriberExists    = 4409
	CloseTooManyInitRequests = 4429
)

// Message is one protocol frame.
type Message struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type outMessage struct {
	ID      string      `json:"id,omitempty"`
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// wsOp is one running operation.
type wsOp struct {
	cancel context.CancelFunc
}

// wsConn is one WebSocket client.
type wsConn struct {
	ch     *Channel
	conn   *websocket.Conn
	logger zerolog.Logger

	writeMu sync.Mutex

	mu    sync.Mutex
	ops   map[string]*wsOp
	acked bool

	wg sync.WaitGroup
}

func (c *Channel) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	if conn.Subprotocol() != Subprotocol {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseProtocolError, "unsupported subprotocol"),
			time.Now().Add(time.Second))
		conn.Close()
		return
	}

	ws := &wsConn{
		ch:     c,
		conn:   conn,
		logger: c.logger.With().Str("remote", r.RemoteAddr).Logger(),
		ops:    make(map[string]*wsOp),
	}
	ws.serve(r.Context())
}

func (ws *wsConn) serve(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer func() {
		cancel()
		ws.wg.Wait()
		ws.conn.Close()
	}()

	ws.conn.SetReadDeadline(time.Now().Add(ws.ch.opts.InitTimeout))

	if ka := ws.ch.opts.KeepAlive; ka > 0 {
		ws.wg.Add(1)
		go ws.keepAlive(ctx, ka)
	}

	for {
		_, data, err := ws.conn.ReadMessage()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() && !ws.isAcked() {
				ws.close(CloseInitTimeout, "Connection initialisation timeout")
			} else if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				ws.logger.Debug().Err(err).Msg("websocket read ended")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			ws.close(CloseBadRequest, "Invalid message received")
			return
		}

		if !ws.handle(ctx, msg) {
			return
		}
	}
}

// handle processes one message and reports whether the connection stays open.
func (ws *wsConn) handle(ctx context.Context, msg Message) bool {
	switch msg.Type {
	case MsgConnectionInit:
		ws.mu.Lock()
		already := ws.acked
		ws.acked = true
		ws.mu.Unlock()
		if already {
			ws.close(CloseTooManyInitRequests, "Too many initialisation requests")
			return false
		}
		ws.conn.SetReadDeadline(time.Time{})
		return ws.send(outMessage{Type: MsgConnectionAck}) == nil

	case MsgPing:
		return ws.send(outMessage{Type: MsgPong}) == nil

	case MsgPong:
		return true

	case MsgSubscribe:
		if !ws.isAcked() {
			ws.close(CloseUnauthorized, "Unauthorized")
			return false
		}
		if msg.ID == "" {
			ws.close(CloseBadRequest, "Subscribe message requires an id")
			return false
		}
		var req Request
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			ws.close(CloseBadRequest, "Invalid subscribe payload")
			return false
		}
		return ws.start(ctx, msg.ID, req)

	case MsgComplete:
		ws.stop(msg.ID)
		return true
	}

	ws.close(CloseBadRequest, fmt.Sprintf("Unknown message type %q", msg.Type))
	return false
}

// start runs one operation in its own goroutine.
func (ws *wsConn) start(parent context.Context, id string, req Request) bool {
	ws.mu.Lock()
	if _, exists := ws.ops[id]; exists {
		ws.mu.Unlock()
		ws.close(CloseSubscriberExists, fmt.Sprintf("Subscriber for %s already exists", id))
		return false
	}
	ctx, cancel := context.WithCancel(parent)
	running := &wsOp{cancel: cancel}
	ws.ops[id] = running
	ws.mu.Unlock()

	doc, err := parser.Parse(parser.ParseParams{Source: req.Query})
	if err != nil {
		ws.finish(id, running)
		return ws.send(outMessage{ID: id, Type: MsgError, Payload: []gqlerrors.FormattedError{gqlerrors.FormatError(err)}}) == nil
	}
	if vr := graphql.ValidateDocument(&ws.ch.schema, doc, graphql.SpecifiedRules); !vr.IsValid {
		ws.finish(id, running)
		return ws.send(outMessage{ID: id, Type: MsgError, Payload: vr.Errors}) == nil
	}
	op := selectOperation(doc, req.OperationName)
	if op == nil {
		ws.finish(id, running)
		return ws.send(outMessage{ID: id, Type: MsgError, Payload: []gqlerrors.FormattedError{{Message: "operation not found"}}}) == nil
	}

	ws.wg.Add(1)
	go func() {
		defer ws.wg.Done()
		defer ws.finish(id, running)

		if op.Operation == ast.OperationTypeSubscription {
			ws.subscribe(ctx, id, req)
		} else {
			ws.send(outMessage{ID: id, Type: MsgNext, Payload: ws.ch.execute(ctx, req)})
		}

		if ctx.Err() == nil {
			ws.send(outMessage{ID: id, Type: MsgComplete})
		}
	}()
	return true
}

func (ws *wsConn) subscribe(ctx context.Context, id string, req Request) {
	ws.ch.metrics.SubscriptionStarted()
	defer ws.ch.metrics.SubscriptionEnded()

	ws.logger.Debug().Str("id", id).Msg("subscription started")
	results := graphql.Subscribe(graphql.Params{
		Schema:         ws.ch.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})
	for res := range results {
		if err := ws.send(outMessage{ID: id, Type: MsgNext, Payload: res}); err != nil {
			go func() {
				for range results {
				}
			}()
			return
		}
	}
	ws.logger.Debug().Str("id", id).Msg("subscription ended")
}

// stop cancels the operation with id, if running.
func (ws *wsConn) stop(id string) {
	ws.mu.Lock()
	op, ok := ws.ops[id]
	delete(ws.ops, id)
	ws.mu.Unlock()
	if ok {
		op.cancel()
	}
}

// finish releases op. The id may already belong to a newer operation
// if the client completed this one and reused the id.
func (ws *wsConn) finish(id string, op *wsOp) {
	ws.mu.Lock()
	if ws.ops[id] == op {
		delete(ws.ops, id)
	}
	ws.mu.Unlock()
	op.cancel()
}

func (ws *wsConn) isAcked() bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.acked
}

func (ws *wsConn) keepAlive(ctx context.Context, interval time.Duration) {
	defer ws.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ws.isAcked() {
				if err := ws.send(outMessage{Type: MsgPing}); err != nil {
					return
				}
			}
		}
	}
}

func (ws *wsConn) send(msg outMessage) error {
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()
	ws.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := ws.conn.WriteJSON(msg); err != nil {
		ws.logger.Debug().Err(err).Str("type", msg.Type).Msg("websocket write failed")
		return err
	}
	return nil
}

func (ws *wsConn) close(code int, reason string) {
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()
	ws.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(time.Second))
}
