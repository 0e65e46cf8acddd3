package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"

	"github.com/inkwell/portfolio/internal/models"
)

const (
	hubWriteWait  = 10 * time.Second
	hubPongWait   = 60 * time.Second
	hubPingPeriod = (hubPongWait * 9) / 10
	hubReadLimit  = 512
)

// EventPublisher mirrors content events to a message broker.
type EventPublisher interface {
	PublishJSON(topic string, qos byte, payload any, timeout time.Duration) error
}

// HubOptions configures an UpdateHub.
type HubOptions struct {
	Topic          string        // Broker topic for mirrored events
	QOS            byte          // Broker QoS for mirrored events
	PublishTimeout time.Duration // Budget of one broker publish
	SendBuffer     int           // Queued events per browser before it is dropped
}

// UpdateHub pushes content events to connected browsers over WebSocket and, when a
// publisher is configured, to a broker topic.
type UpdateHub struct {
	clients   cmap.ConcurrentMap[string, *hubClient]
	publisher EventPublisher
	opts      HubOptions
	upgrader  websocket.Upgrader
	Logger    zerolog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type hubClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *hubClient) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// NewUpdateHub creates a hub. publisher may be nil.
func NewUpdateHub(publisher EventPublisher, opts HubOptions, logger zerolog.Logger) *UpdateHub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 16
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 2 * time.Second
	}
	return &UpdateHub{
		clients:   cmap.New[*hubClient](),
		publisher: publisher,
		opts:      opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		Logger: logger,
	}
}

// Start allows browsers to connect.
func (h *UpdateHub) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ctx != nil {
		h.Logger.Warn().Msg("UpdateHub is already running")
		return errors.New("update hub is already running")
	}
	h.ctx, h.cancel = context.WithCancel(context.Background())
	h.Logger.Info().Bool("broker_mirror", h.publisher != nil).Msg("UpdateHub started successfully")
	return nil
}

// Stop disconnects every browser and waits for pending broker publishes.
func (h *UpdateHub) Stop() error {
	h.mu.Lock()
	if h.ctx == nil {
		h.mu.Unlock()
		h.Logger.Warn().Msg("UpdateHub is not running")
		return errors.New("update hub is not running")
	}
	h.cancel()
	h.ctx = nil
	h.cancel = nil
	h.mu.Unlock()

	for item := range h.clients.IterBuffered() {
		item.Val.close()
	}
	h.wg.Wait()

	h.Logger.Info().Msg("UpdateHub stopped successfully")
	return nil
}

func (h *UpdateHub) running() context.Context {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ctx
}

// Count returns the number of connected browsers.
func (h *UpdateHub) Count() int {
	return h.clients.Count()
}

// ServeHTTP upgrades the request and registers the browser until it disconnects.
func (h *UpdateHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := h.running()
	if ctx == nil {
		http.Error(w, "update hub is not running", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &hubClient{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, h.opts.SendBuffer),
		done: make(chan struct{}),
	}
	h.clients.Set(client.id, client)
	h.Logger.Debug().Str("client", client.id).Int("clients", h.clients.Count()).Msg("Browser connected")

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		h.writeLoop(ctx, client)
	}()
	go func() {
		defer h.wg.Done()
		h.readLoop(client)
	}()
}

// readLoop discards browser messages and notices disconnects.
func (h *UpdateHub) readLoop(c *hubClient) {
	defer h.drop(c)

	c.conn.SetReadLimit(hubReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(hubPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(hubPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *UpdateHub) writeLoop(ctx context.Context, c *hubClient) {
	ticker := time.NewTicker(hubPingPeriod)
	defer ticker.Stop()
	defer h.drop(c)

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(hubWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.Logger.Debug().Err(err).Str("client", c.id).Msg("Failed to push event")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(hubWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *UpdateHub) drop(c *hubClient) {
	c.close()
	if h.clients.RemoveCb(c.id, func(_ string, v *hubClient, exists bool) bool {
		return exists && v == c
	}) {
		h.Logger.Debug().Str("client", c.id).Msg("Browser disconnected")
	}
}

// Notify broadcasts event. It never blocks: a browser whose queue is full is
// disconnected, and the broker publish runs in the background.
func (h *UpdateHub) Notify(event models.ContentEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.Logger.Error().Err(err).Msg("Failed to encode content event")
		return
	}

	for item := range h.clients.IterBuffered() {
		select {
		case item.Val.send <- payload:
		default:
			h.Logger.Warn().Str("client", item.Key).Msg("Browser too slow, disconnecting")
			h.drop(item.Val)
		}
	}

	if h.publisher == nil || h.running() == nil {
		return
	}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := h.publisher.PublishJSON(h.opts.Topic, h.opts.QOS, event, h.opts.PublishTimeout); err != nil {
			h.Logger.Warn().Err(err).Str("topic", h.opts.Topic).Msg("Failed to mirror content event")
		}
	}()
}
