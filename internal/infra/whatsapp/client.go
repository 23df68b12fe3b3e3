package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
	maxBackoff       = 30 * time.Second
)

// EventHandler is the callback for bridge events
type EventHandler func(evt *Event)

// Client talks to a WhatsApp Web bridge over a JSON WebSocket.
// The bridge owns the WhatsApp session; this client only exchanges frames.
type Client struct {
	url     string
	log     zerolog.Logger
	onEvent EventHandler

	mu      sync.Mutex // guards conn, session and writes
	conn    *websocket.Conn
	session string // last connection state reported by the bridge

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClient creates a bridge client for url (ws:// or wss://)
func NewClient(url string, logger zerolog.Logger) *Client {
	return &Client{
		url: url,
		log: logger.With().Str("component", "whatsapp").Logger(),
	}
}

// OnEvent sets the event handler. Must be called before Start.
func (c *Client) OnEvent(handler EventHandler) {
	c.onEvent = handler
}

// Start connects and keeps listening, reconnecting with backoff until Stop
func (c *Client) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	if err := c.Dial(c.ctx); err != nil {
		c.log.Warn().Err(err).Msg("initial bridge connection failed, will retry")
	}

	c.wg.Add(1)
	go c.listenLoop()
	return nil
}

// Stop closes the connection and waits for the listen loop to exit
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	_ = c.Close()
	c.wg.Wait()
	c.log.Info().Msg("bridge client stopped")
}

// Dial opens the WebSocket connection once, without a listen loop
func (c *Client) Dial(ctx context.Context) error {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = handshakeTimeout

	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial whatsapp bridge %s: %w", c.url, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.log.Info().Str("url", c.url).Msg("bridge connected")
	return nil
}

// Close closes the current connection, if any
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Connected reports whether the bridge socket is up and the bridge has not
// reported its WhatsApp session as closed
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && c.session != "close"
}

// Send delivers text to chat under a new message id, optionally quoting quotedID
func (c *Client) Send(ctx context.Context, to, text, quotedID string) (string, error) {
	id := NewMessageID()
	if err := c.SendWithID(ctx, id, to, text, quotedID); err != nil {
		return "", err
	}
	return id, nil
}

// SendWithID delivers text under a caller-chosen id, so the caller can
// recognise the echo even if it arrives before this call returns
func (c *Client) SendWithID(ctx context.Context, id, to, text, quotedID string) error {
	frame := SendFrame{
		Type:     FrameSend,
		ID:       id,
		To:       to,
		Text:     text,
		QuotedID: quotedID,
	}
	if err := c.writeJSON(ctx, frame); err != nil {
		return fmt.Errorf("send whatsapp message: %w", err)
	}
	return nil
}

// SetPresence starts or stops the typing indicator in chat
func (c *Client) SetPresence(ctx context.Context, to string, composing bool) error {
	state := PresencePaused
	if composing {
		state = PresenceComposing
	}
	if err := c.writeJSON(ctx, PresenceFrame{Type: FramePresence, To: to, State: state}); err != nil {
		return fmt.Errorf("send presence: %w", err)
	}
	return nil
}

func (c *Client) writeJSON(ctx context.Context, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("whatsapp bridge not connected")
	}

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetWriteDeadline(deadline)
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// listenLoop reads frames with automatic reconnection
func (c *Client) listenLoop() {
	defer c.wg.Done()
	backoff := time.Second

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn == nil {
			c.log.Info().Dur("backoff", backoff).Msg("attempting bridge reconnect")

			select {
			case <-c.ctx.Done():
				return
			case <-time.After(backoff):
			}

			if err := c.Dial(c.ctx); err != nil {
				c.log.Warn().Err(err).Msg("bridge reconnect failed")
				backoff = min(backoff*2, maxBackoff)
				continue
			}
			backoff = time.Second
			continue
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.log.Warn().Err(err).Msg("bridge read error, will reconnect")

			c.mu.Lock()
			if c.conn == conn {
				_ = c.conn.Close()
				c.conn = nil
			}
			c.mu.Unlock()
			continue
		}

		var evt Event
		if err := json.Unmarshal(data, &evt); err != nil {
			c.log.Warn().Err(err).Msg("invalid bridge frame")
			continue
		}
		c.dispatch(&evt)
	}
}

func (c *Client) dispatch(evt *Event) {
	switch evt.Type {
	case FrameConnection:
		c.mu.Lock()
		c.session = evt.State
		c.mu.Unlock()
		c.log.Info().Str("state", evt.State).Msg("whatsapp session state")
	case FrameQR:
		c.log.Info().Str("code", evt.Code).Msg("scan the QR code in the bridge to link this account")
	}

	if c.onEvent != nil {
		c.onEvent(evt)
	}
}

// NewMessageID returns a message id in the format WhatsApp Web uses for
// messages sent from the browser
func NewMessageID() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "3EB0" + id[:16]
}
