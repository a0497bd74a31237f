package remote

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/scenewalk/internal/core/memory"
	"github.com/zeusync/scenewalk/internal/core/observability/log"
)

var _ memory.Reader = (*Client)(nil)

// Client is a memory.Reader backed by a remote Server. It is safe for
// concurrent use; responses are matched to requests by id.
type Client struct {
	conn    *websocket.Conn
	timeout time.Duration
	log     log.Log

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[uint32]chan response
	nextID  atomic.Uint32

	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

type clientOptions struct {
	timeout time.Duration
	log     log.Log
}

// ClientOption configures both the websocket and the QUIC client.
type ClientOption func(*clientOptions)

// WithTimeout bounds every read round trip. Zero waits forever.
func WithTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) { o.timeout = d }
}

func WithClientLogger(l log.Log) ClientOption {
	return func(o *clientOptions) { o.log = l }
}

func newClientOptions(opts []ClientOption) clientOptions {
	o := clientOptions{timeout: 5 * time.Second, log: log.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func Dial(ctx context.Context, url string, opts ...ClientOption) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial memory server %s: %w", url, err)
	}

	o := newClientOptions(opts)
	c := &Client{
		conn:    conn,
		timeout: o.timeout,
		log:     o.log,
		pending: make(map[uint32]chan response),
		closed:  make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) Read(addr memory.Address, buf []byte) (int, error) {
	select {
	case <-c.closed:
		return 0, c.closeErr
	default:
	}

	id := c.nextID.Add(1)
	ch := make(chan response, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer c.forget(id)

	frame := request{id: id, size: uint32(len(buf)), addr: addr}.encode()
	c.writeMu.Lock()
	if c.timeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	}
	err := c.conn.WriteMessage(websocket.BinaryMessage, frame)
	c.writeMu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("send read request: %w", err)
	}

	var expired <-chan time.Time
	if c.timeout > 0 {
		timer := time.NewTimer(c.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case resp := <-ch:
		if resp.status != statusOK {
			return 0, fmt.Errorf("%w: %s", ErrRemoteFailed, resp.status)
		}
		return copy(buf, resp.data), nil
	case <-expired:
		return 0, ErrTimeout
	case <-c.closed:
		return 0, c.closeErr
	}
}

func (c *Client) forget(id uint32) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.shutdown(fmt.Errorf("%w: %v", ErrClosed, err))
			return
		}
		resp, err := decodeResponse(data)
		if err != nil {
			c.log.Warn("dropping malformed memory response", log.Error(err))
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.id]
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

func (c *Client) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.closeErr = err
		close(c.closed)
	})
}

// Close sends a close frame and tears the connection down.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()

	c.shutdown(ErrClosed)
	return c.conn.Close()
}
