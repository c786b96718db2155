package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/atriumverse/atrium/internal/call"
	"github.com/atriumverse/atrium/internal/protocol"
)

// Conn drives a Client over a live websocket connection. It owns the single
// goroutine that touches the Client.
type Conn struct {
	ws     *websocket.Conn
	client *Client
	cmds   chan func(*Client)
	wmu    sync.Mutex
	log    *zap.Logger
}

// Dial connects to a presence server and binds a new Client to the
// connection. The token authenticates the session; it rides the query
// string like a browser client would send it.
func Dial(ctx context.Context, serverURL, token string, opts Options, obs Observer, dialer call.MediaDialer, grace time.Duration, log *zap.Logger) (*Conn, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", serverURL, err)
	}

	c := &Conn{ws: ws, cmds: make(chan func(*Client), 16), log: log}
	c.client = New(opts, obs, dialer, grace, c.sendEvent, log)
	return c, nil
}

// Client returns the bound client. Only touch it from observer callbacks or
// before Run starts; other goroutines go through Do.
func (c *Conn) Client() *Client {
	return c.client
}

// Do hands fn to the Run goroutine, serialized with event application and
// stepping. It blocks until the loop accepts the command or ctx is done.
func (c *Conn) Do(ctx context.Context, fn func(*Client)) error {
	select {
	case c.cmds <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Conn) sendEvent(t protocol.EventType, v any) error {
	data, err := protocol.Marshal(t, v)
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Run pumps inbound events and ticks the reconciliation loop until ctx is
// cancelled or the connection drops.
func (c *Conn) Run(ctx context.Context) error {
	inbound := make(chan protocol.Envelope, 64)
	readErr := make(chan error, 1)

	go func() {
		defer close(inbound)
		for {
			_, data, err := c.ws.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			env, err := protocol.Unmarshal(data)
			if err != nil {
				c.log.Debug("bad frame", zap.Error(err))
				continue
			}
			select {
			case inbound <- env:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	defer c.client.calls.Close()
	defer c.ws.Close()

	for {
		select {
		case env, ok := <-inbound:
			if !ok {
				return <-readErr
			}
			c.client.Apply(env, time.Now())
		case fn := <-c.cmds:
			fn(c.client)
		case now := <-ticker.C:
			c.client.Step(now)
		case <-ctx.Done():
			c.client.Quit()
			return ctx.Err()
		}
	}
}
