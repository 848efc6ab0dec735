package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kaspa-bridge/deposit-sender/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	ErrNotConnected     = errors.New("not connected to node")
	ErrAlreadyConnected = errors.New("already connected to node")
	ErrDisconnected     = errors.New("connection to node closed")
)

// INodeClient is the subset of the node RPC interface the wallet needs
type INodeClient interface {
	Connect(ctx context.Context, url string) error
	Disconnect() error
	IsConnected() bool
	URL() string

	GetServerInfo(ctx context.Context) (*ServerInfo, error)
	GetUtxosByAddresses(ctx context.Context, addresses []string) ([]types.UtxoEntryReference, error)
	GetFeeEstimate(ctx context.Context) (*FeeEstimate, error)
	SubmitTransaction(ctx context.Context, tx *types.Transaction, allowOrphan bool) (types.TransactionId, error)

	// Notifications delivers node notifications. The channel is never closed.
	Notifications() <-chan Notification
}

// RetryConfig configures dial retry behavior
type RetryConfig struct {
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig provides default retry settings
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     3,
	InitialBackoff:  250 * time.Millisecond,
	MaxBackoff:      2 * time.Second,
	BackoffMultiple: 2.0,
}

type ClientConfig struct {
	Retry            RetryConfig
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration

	// RequestsPerSecond and Burst bound the outgoing call rate
	RequestsPerSecond float64
	Burst             int

	NotificationBuffer int
}

func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Retry:              DefaultRetryConfig,
		HandshakeTimeout:   10 * time.Second,
		WriteTimeout:       10 * time.Second,
		RequestsPerSecond:  20,
		Burst:              5,
		NotificationBuffer: 64,
	}
}

type callResult struct {
	params json.RawMessage
	err    error
}

// Client is a JSON wRPC client over a single websocket. One reader goroutine
// per connection dispatches responses to waiting callers by request id.
type Client struct {
	cfg     *ClientConfig
	logger  *zap.Logger
	limiter *rate.Limiter

	mu      sync.Mutex
	conn    *websocket.Conn
	done    chan struct{}
	url     string
	pending map[uint64]chan callResult

	writeMu sync.Mutex

	nextId        atomic.Uint64
	connected     atomic.Bool
	notifications chan Notification
}

var _ INodeClient = (*Client)(nil)

func NewClient(cfg *ClientConfig, logger *zap.Logger) *Client {
	if cfg == nil {
		cfg = DefaultClientConfig()
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &Client{
		cfg:           cfg,
		logger:        logger,
		limiter:       rate.NewLimiter(limit, burst),
		pending:       make(map[uint64]chan callResult),
		notifications: make(chan Notification, cfg.NotificationBuffer),
	}
}

// Connect dials the node, retrying with backoff, and starts the reader.
func (c *Client) Connect(ctx context.Context, url string) error {
	if url == "" {
		return fmt.Errorf("node url cannot be empty")
	}
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.mu.Unlock()

	dialer := &websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}

	var (
		conn    *websocket.Conn
		lastErr error
	)
	backoff := c.cfg.Retry.InitialBackoff
	for attempt := 0; attempt < c.cfg.Retry.MaxAttempts; attempt++ {
		var err error
		conn, _, err = dialer.DialContext(ctx, url, nil)
		if err == nil {
			break
		}
		lastErr = err
		c.logger.Sugar().Debugw("Node dial failed", "url", url, "attempt", attempt+1, "error", err)

		if attempt < c.cfg.Retry.MaxAttempts-1 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("failed to connect to %s: %w", url, ctx.Err())
			case <-time.After(backoff):
			}
			backoff = time.Duration(float64(backoff) * c.cfg.Retry.BackoffMultiple)
			if backoff > c.cfg.Retry.MaxBackoff {
				backoff = c.cfg.Retry.MaxBackoff
			}
		}
	}
	if conn == nil {
		return fmt.Errorf("failed to connect to %s after %d attempts: %w", url, c.cfg.Retry.MaxAttempts, lastErr)
	}

	done := make(chan struct{})
	c.mu.Lock()
	c.conn = conn
	c.done = done
	c.url = url
	c.mu.Unlock()
	c.connected.Store(true)

	go c.readLoop(conn, done)

	c.logger.Sugar().Debugw("Connected to node", "url", url)
	return nil
}

// Disconnect closes the connection and fails every in-flight call. Calling it
// while disconnected is a no-op.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	conn, done := c.conn, c.done
	c.mu.Unlock()
	if conn == nil {
		return nil
	}

	c.writeMu.Lock()
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.writeMu.Unlock()

	err := conn.Close()
	<-done

	c.logger.Sugar().Debugw("Disconnected from node", "url", c.URL())
	if err != nil {
		return fmt.Errorf("failed to close node connection: %w", err)
	}
	return nil
}

func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

func (c *Client) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url
}

func (c *Client) Notifications() <-chan Notification {
	return c.notifications
}

func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	var readErr error
	defer func() {
		c.connected.Store(false)
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		pending := c.pending
		c.pending = make(map[uint64]chan callResult)
		c.mu.Unlock()

		for _, ch := range pending {
			ch <- callResult{err: fmt.Errorf("%w: %v", ErrDisconnected, readErr)}
		}
		close(done)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			readErr = err
			return
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Sugar().Warnw("Dropping malformed node message", "error", err)
			continue
		}

		if msg.Id == nil {
			c.dispatchNotification(msg)
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[*msg.Id]
		delete(c.pending, *msg.Id)
		c.mu.Unlock()
		if !ok {
			c.logger.Sugar().Debugw("Response for unknown request", "id", *msg.Id)
			continue
		}
		if msg.Error != nil {
			ch <- callResult{err: msg.Error}
		} else {
			ch <- callResult{params: msg.Params}
		}
	}
}

func (c *Client) dispatchNotification(msg message) {
	select {
	case c.notifications <- Notification{Method: msg.Method, Params: msg.Params}:
	default:
		c.logger.Sugar().Debugw("Notification buffer full, dropping", "method", msg.Method)
	}
}

// call sends one request and waits for its response or for ctx to end.
func (c *Client) call(ctx context.Context, method string, params, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	id := c.nextId.Add(1)
	ch := make(chan callResult, 1)

	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", method, ErrNotConnected)
	}
	c.pending[id] = ch
	c.mu.Unlock()

	if params == nil {
		params = struct{}{}
	}
	data, err := json.Marshal(&request{Id: id, Method: method, Params: params})
	if err != nil {
		c.forget(id)
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	deadline := time.Now().Add(c.cfg.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.writeMu.Lock()
	_ = conn.SetWriteDeadline(deadline)
	err = conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(id)
		return fmt.Errorf("failed to send %s request: %w", method, err)
	}

	select {
	case <-ctx.Done():
		c.forget(id)
		return fmt.Errorf("%s: %w", method, ctx.Err())
	case res := <-ch:
		if res.err != nil {
			return fmt.Errorf("%s: %w", method, res.err)
		}
		if result == nil {
			return nil
		}
		if err := json.Unmarshal(res.params, result); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", method, err)
		}
		return nil
	}
}

func (c *Client) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) GetServerInfo(ctx context.Context) (*ServerInfo, error) {
	var info ServerInfo
	if err := c.call(ctx, MethodGetServerInfo, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) GetUtxosByAddresses(ctx context.Context, addresses []string) ([]types.UtxoEntryReference, error) {
	var resp getUtxosByAddressesResponse
	if err := c.call(ctx, MethodGetUtxosByAddresses, &getUtxosByAddressesRequest{Addresses: addresses}, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

func (c *Client) GetFeeEstimate(ctx context.Context) (*FeeEstimate, error) {
	var resp getFeeEstimateResponse
	if err := c.call(ctx, MethodGetFeeEstimate, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Estimate, nil
}

// SubmitTransaction broadcasts tx and returns the id assigned by the node.
func (c *Client) SubmitTransaction(ctx context.Context, tx *types.Transaction, allowOrphan bool) (types.TransactionId, error) {
	var resp submitTransactionResponse
	req := &submitTransactionRequest{Transaction: tx, AllowOrphan: allowOrphan}
	if err := c.call(ctx, MethodSubmitTransaction, req, &resp); err != nil {
		return types.TransactionId{}, err
	}
	return resp.TransactionId, nil
}
