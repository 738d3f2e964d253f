// Package graphql serves a stitched schema over HTTP and over WebSocket
// using the graphql-transport-ws protocol.
package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/rs/zerolog"
)

// Default endpoint paths.
const (
	DefaultPath   = "/graphql"
	DefaultWSPath = "/graphql/ws"
)

// Metrics receives per-operation observations.
type Metrics interface {
	ObserveOperation(operation string, d time.Duration, failed bool)
	SubscriptionStarted()
	SubscriptionEnded()
}

// Options configures a Channel.
type Options struct {
	Path        string
	WSPath      string
	KeepAlive   time.Duration
	InitTimeout time.Duration
	CheckOrigin func(r *http.Request) bool
	Metrics     Metrics
}

// Request is a GraphQL request as sent over HTTP or in a subscribe payload.
type Request struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
	OperationName string                 `json:"operationName,omitempty"`
}

// Channel implements the GraphQL channel.
type Channel struct {
	schema   graphql.Schema
	opts     Options
	logger   zerolog.Logger
	metrics  Metrics
	upgrader websocket.Upgrader
}

// New creates a channel serving s.
func New(s graphql.Schema, opts Options, logger zerolog.Logger) *Channel {
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	if opts.WSPath == "" {
		opts.WSPath = DefaultWSPath
	}
	if opts.InitTimeout <= 0 {
		opts.InitTimeout = 3 * time.Second
	}
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}

	return &Channel{
		schema:  s,
		opts:    opts,
		logger:  logger.With().Str("channel", "graphql").Logger(),
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    []string{Subprotocol},
			CheckOrigin:     checkOrigin,
		},
	}
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return "graphql"
}

// Register adds the channel routes to r.
func (c *Channel) Register(r chi.Router) {
	r.Get(c.opts.Path, c.handleGet)
	r.Post(c.opts.Path, c.handlePost)
	r.Get(c.opts.WSPath, c.handleWebSocket)
}

func (c *Channel) handleGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := Request{
		Query:         q.Get("query"),
		OperationName: q.Get("operationName"),
	}
	if vars := q.Get("variables"); vars != "" {
		if err := json.Unmarshal([]byte(vars), &req.Variables); err != nil {
			c.writeError(w, http.StatusBadRequest, "variables must be a JSON object")
			return
		}
	}
	c.serve(w, r, req, false)
}

func (c *Channel) handlePost(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	c.serve(w, r, req, true)
}

func (c *Channel) serve(w http.ResponseWriter, r *http.Request, req Request, allowMutation bool) {
	if req.Query == "" {
		c.writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	if op, err := operationType(req); err == nil {
		switch {
		case op == ast.OperationTypeSubscription:
			c.writeError(w, http.StatusBadRequest, "subscriptions require the WebSocket endpoint "+c.opts.WSPath)
			return
		case op == ast.OperationTypeMutation && !allowMutation:
			w.Header().Set("Allow", http.MethodPost)
			c.writeError(w, http.StatusMethodNotAllowed, "mutations require POST")
			return
		}
	}

	result := c.execute(r.Context(), req)
	c.writeJSON(w, http.StatusOK, result)
}

func (c *Channel) execute(ctx context.Context, req Request) *graphql.Result {
	start := time.Now()
	result := graphql.Do(graphql.Params{
		Schema:         c.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})

	op, _ := operationType(req)
	if op == "" {
		op = "invalid"
	}
	failed := len(result.Errors) > 0
	c.metrics.ObserveOperation(op, time.Since(start), failed)
	if failed {
		c.logger.Debug().
			Str("operation", op).
			Str("operation_name", req.OperationName).
			Int("errors", len(result.Errors)).
			Msg("operation returned errors")
	}
	return result
}

func (c *Channel) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Warn().Err(err).Msg("failed to write response")
	}
}

func (c *Channel) writeError(w http.ResponseWriter, status int, msg string) {
	c.writeJSON(w, status, map[string]any{
		"errors": []gqlerrors.FormattedError{{Message: msg}},
	})
}

// operationType parses the request and returns the type of the selected
// operation.
func operationType(req Request) (string, error) {
	doc, err := parser.Parse(parser.ParseParams{Source: req.Query})
	if err != nil {
		return "", err
	}
	op := selectOperation(doc, req.OperationName)
	if op == nil {
		return "", errors.New("operation not found")
	}
	return op.Operation, nil
}

func selectOperation(doc *ast.Document, name string) *ast.OperationDefinition {
	var found *ast.OperationDefinition
	for _, def := range doc.Definitions {
		op, ok := def.(*ast.OperationDefinition)
		if !ok {
			continue
		}
		if name == "" {
			if found != nil {
				return nil
			}
			found = op
			continue
		}
		if op.Name != nil && op.Name.Value == name {
			return op
		}
	}
	return found
}

type nopMetrics struct{}

func (nopMetrics) ObserveOperation(string, time.Duration, bool) {}
func (nopMetrics) SubscriptionStarted()                         {}
func (nopMetrics) SubscriptionEnded()                           {}
