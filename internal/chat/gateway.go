package chat

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/betbot/signalbot/pkg/logger"
	"github.com/betbot/signalbot/pkg/ratelimit"
)

const sendTimeout = 10 * time.Second

// The gateway throttles senders to roughly one message per second with
// small bursts.
const (
	sendBurst  = 5
	sendPerSec = 1
)

// GatewayClient is a websocket connection to the chat gateway. It doubles
// as the bridge's primary session handle: Alive reports connection
// liveness for the lazy probe at acquire time.
type GatewayClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	limiter *ratelimit.TokenBucket

	updates   chan Update
	closed    chan struct{}
	closeOnce sync.Once
}

// Dial connects to the gateway stream endpoint and starts the read loop.
// Inbound updates are buffered; if the consumer falls behind and the
// buffer fills, further updates are dropped with a warn log, so commands
// can be shed under burst.
func Dial(ctx context.Context, gatewayURL, token string) (*GatewayClient, error) {
	u, err := url.Parse(gatewayURL)
	if err != nil {
		return nil, fmt.Errorf("parse gateway url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial gateway: %w", err)
	}

	c := &GatewayClient{
		conn:    conn,
		limiter: ratelimit.NewTokenBucket(sendBurst, sendPerSec),
		updates: make(chan Update, 64),
		closed:  make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *GatewayClient) readLoop() {
	defer func() {
		c.markClosed()
		close(c.updates)
	}()
	for {
		var u Update
		if err := c.conn.ReadJSON(&u); err != nil {
			logger.Warnf("[chat] gateway read loop ended: %v", err)
			return
		}
		select {
		case c.updates <- u:
		default:
			logger.Warnf("[chat] update buffer full, dropping chat=%d", u.ChatID)
		}
	}
}

func (c *GatewayClient) Updates() <-chan Update {
	return c.updates
}

type outMessage struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

func (c *GatewayClient) Send(ctx context.Context, chatID int64, text string) error {
	select {
	case <-c.closed:
		return fmt.Errorf("chat: gateway connection closed")
	default:
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("chat: send throttled: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(sendTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteJSON(outMessage{ChatID: chatID, Text: text}); err != nil {
		return fmt.Errorf("chat: send: %w", err)
	}
	return nil
}

// Alive satisfies the bridge's primary-handle probe.
func (c *GatewayClient) Alive() bool {
	select {
	case <-c.closed:
		return false
	default:
		return true
	}
}

func (c *GatewayClient) markClosed() {
	c.closeOnce.Do(func() { close(c.closed) })
}

func (c *GatewayClient) Close() error {
	c.markClosed()
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}
