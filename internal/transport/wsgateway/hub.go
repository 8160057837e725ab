// Package wsgateway is the chat transport for participants connecting over
// websocket. Each identity may hold several connections; deliveries go to all
// of them.
package wsgateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/spec-kit/support-relay/internal/auth"
	"github.com/spec-kit/support-relay/internal/domain"
	"github.com/spec-kit/support-relay/internal/transport"
)

// ErrQueueFull is returned when a connection is not draining its frames.
var ErrQueueFull = errors.New("outbound queue full")

// Authenticator resolves a bearer token to the identity and hint it speaks for.
type Authenticator func(token string) (domain.Identity, string, error)

// InboundHandler consumes decoded participant events.
type InboundHandler interface {
	Handle(ctx context.Context, in transport.Inbound) error
}

// Options tunes a Hub.
type Options struct {
	WriteTimeout   time.Duration
	QueueSize      int
	AllowedOrigins []string
}

// Hub tracks live connections and implements transport.Sender.
type Hub struct {
	authenticate Authenticator
	logger       *zap.Logger
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	queueSize    int

	mu      sync.RWMutex
	handler InboundHandler
	conns   map[domain.Identity]map[string]*client
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type client struct {
	id       string
	identity domain.Identity
	hint     string
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	once     sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// NewHub builds a hub. SetHandler must be called before connections arrive.
func NewHub(authenticate Authenticator, logger *zap.Logger, opts Options) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		authenticate: authenticate,
		logger:       logger,
		writeTimeout: opts.WriteTimeout,
		queueSize:    opts.QueueSize,
		conns:        make(map[domain.Identity]map[string]*client),
		ctx:          ctx,
		cancel:       cancel,
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: originChecker(opts.AllowedOrigins)}
	return h
}

// SetHandler installs the consumer of inbound frames.
func (h *Hub) SetHandler(handler InboundHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handler = handler
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		return slices.Contains(allowed, r.Header.Get("Origin"))
	}
}

// Deliver sends a content item to every connection of to.
func (h *Hub) Deliver(_ context.Context, to domain.Identity, item domain.ContentItem) error {
	return h.push(to, transport.ContentOutbound(item))
}

// DeliverText sends a bot-authored text to every connection of to.
func (h *Hub) DeliverText(_ context.Context, to domain.Identity, text string, opts ...transport.TextOption) error {
	return h.push(to, transport.NoticeOutbound(text, opts...))
}

func (h *Hub) push(to domain.Identity, frame transport.OutboundFrame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.conns[to]))
	for _, c := range h.conns[to] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return &transport.DeliveryError{Recipient: to, Err: transport.ErrRecipientOffline}
	}

	queued := 0
	for _, c := range targets {
		select {
		case c.send <- payload:
			queued++
		case <-c.done:
		default:
			h.logger.Warn("dropping frame for slow connection",
				zap.String("identity", to.String()),
				zap.String("conn_id", c.id))
		}
	}
	if queued == 0 {
		return &transport.DeliveryError{Recipient: to, Err: ErrQueueFull}
	}
	return nil
}

// Connected reports whether identity has at least one live connection.
func (h *Hub) Connected(identity domain.Identity) bool {
	return h.Connections(identity) > 0
}

// Connections returns the number of live connections held by identity.
func (h *Hub) Connections(identity domain.Identity) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[identity])
}

// ServeHTTP authenticates the caller and upgrades to a websocket.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if header := r.Header.Get("Authorization"); header != "" {
		if bearer, err := auth.BearerToken(header); err == nil {
			token = bearer
		}
	}
	if token == "" {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	identity, hint, err := h.authenticate(token)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		id:       uuid.NewString(),
		identity: identity,
		hint:     hint,
		conn:     conn,
		send:     make(chan []byte, h.queueSize),
		done:     make(chan struct{}),
	}
	if !h.register(c) {
		_ = conn.Close()
		return
	}
	defer h.wg.Done()
	defer h.unregister(c)

	h.logger.Info("participant connected",
		zap.String("identity", identity.String()),
		zap.String("conn_id", c.id))

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.writePump(c)
	}()
	h.readPump(c)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	if h.conns[c.identity] == nil {
		h.conns[c.identity] = make(map[string]*client)
	}
	h.conns[c.identity][c.id] = c
	h.wg.Add(1)
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if set := h.conns[c.identity]; set != nil {
		delete(set, c.id)
		if len(set) == 0 {
			delete(h.conns, c.identity)
		}
	}
	h.mu.Unlock()
	c.close()
	h.logger.Info("participant disconnected",
		zap.String("identity", c.identity.String()),
		zap.String("conn_id", c.id))
}

func (h *Hub) readPump(c *client) {
	for {
		var frame transport.InboundFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			var (
				syntaxErr *json.SyntaxError
				typeErr   *json.UnmarshalTypeError
			)
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				h.sendError(c, "malformed frame")
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read failed", zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}

		in, err := frame.Inbound(c.identity, c.hint)
		if err != nil {
			h.sendError(c, err.Error())
			continue
		}

		h.mu.RLock()
		handler := h.handler
		h.mu.RUnlock()
		if handler == nil {
			h.sendError(c, "service not ready")
			continue
		}
		if err := handler.Handle(h.ctx, in); err != nil {
			h.logger.Debug("inbound event rejected",
				zap.String("identity", c.identity.String()),
				zap.String("kind", string(in.Kind)),
				zap.Error(err))
		}
	}
}

func (h *Hub) sendError(c *client, message string) {
	payload, err := json.Marshal(transport.OutboundFrame{Type: "error", Text: message})
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (h *Hub) writePump(c *client) {
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.Debug("websocket write failed", zap.String("conn_id", c.id), zap.Error(err))
				c.close()
				return
			}
		}
	}
}

// Close drops every connection and waits for their goroutines to exit.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*client
	for _, set := range h.conns {
		for _, c := range set {
			all = append(all, c)
		}
	}
	h.mu.Unlock()

	h.cancel()
	for _, c := range all {
		c.close()
	}
	h.wg.Wait()
}
