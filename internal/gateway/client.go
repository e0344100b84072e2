package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
)

// DefaultCallTimeout is the client-side ceiling applied to every command
// when the config does not override it.
const DefaultCallTimeout = 12 * time.Second

// Options configures a Client.
type Options struct {
	Socket      string
	Secret      []byte        // shared secret for the hello handshake; empty skips auth
	CallTimeout time.Duration // zero means DefaultCallTimeout
	DialInitial time.Duration // backoff start, zero means 250ms
	DialMax     time.Duration // backoff cap, zero means 5s
	DialElapsed time.Duration // give up after, zero means 30s
	Logger      *slog.Logger
}

// Client connects to the opsdeckd backend daemon.
type Client struct {
	conn      net.Conn
	scanner   *bufio.Scanner
	mu        sync.Mutex
	pending   map[string]chan *Response
	events    chan Event
	done      chan struct{}
	connected atomic.Bool
	timeout   time.Duration
	logger    *slog.Logger
}

// Dial connects to the backend socket, retrying with exponential backoff,
// and performs the hello handshake.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.DialInitial <= 0 {
		opts.DialInitial = 250 * time.Millisecond
	}
	if opts.DialMax <= 0 {
		opts.DialMax = 5 * time.Second
	}
	if opts.DialElapsed <= 0 {
		opts.DialElapsed = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = opts.DialInitial
	bo.MaxInterval = opts.DialMax

	conn, err := backoff.Retry(ctx, func() (net.Conn, error) {
		return net.Dial("unix", opts.Socket)
	}, backoff.WithBackOff(bo), backoff.WithMaxElapsedTime(opts.DialElapsed))
	if err != nil {
		return nil, fmt.Errorf("connect to backend: %w", err)
	}

	c := &Client{
		conn:    conn,
		scanner: bufio.NewScanner(conn),
		pending: make(map[string]chan *Response),
		events:  make(chan Event, 100),
		done:    make(chan struct{}),
		timeout: opts.CallTimeout,
		logger:  opts.Logger,
	}
	c.connected.Store(true)
	go c.readLoop()

	if len(opts.Secret) > 0 {
		token, err := sessionToken(opts.Secret)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("sign session token: %w", err)
		}
		if _, err := c.Call(ctx, "hello", map[string]string{"token": token}); err != nil {
			c.Close()
			return nil, fmt.Errorf("hello handshake: %w", err)
		}
	}

	return c, nil
}

// Close disconnects from the backend.
func (c *Client) Close() error {
	if !c.connected.Swap(false) {
		return nil
	}
	close(c.done)
	return c.conn.Close()
}

// Events returns the channel of pushed events from the backend.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Call issues one named command and waits for its response or the call
// timeout, whichever comes first. The timeout applies independently of
// whatever ceiling the backend enforces.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if !c.connected.Load() {
		return nil, &CommandError{Method: method, Message: "not connected to backend"}
	}

	var paramsJSON json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return nil, &CommandError{Method: method, Message: "encode params", Cause: err}
		}
		paramsJSON = encoded
	}

	id := uuid.NewString()
	req := Request{Method: method, Params: paramsJSON, ID: id}

	respChan := make(chan *Response, 1)
	c.mu.Lock()
	c.pending[id] = respChan
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	encoded, _ := json.Marshal(req)
	c.mu.Lock()
	_, err := c.conn.Write(append(encoded, '\n'))
	c.mu.Unlock()
	if err != nil {
		return nil, &CommandError{Method: method, Message: "write request", Cause: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	select {
	case resp := <-respChan:
		if resp.Error != "" {
			return nil, &CommandError{Method: method, Message: resp.Error}
		}
		return resp.Data, nil
	case <-callCtx.Done():
		return nil, &CommandError{Method: method, Message: "call timed out", Cause: callCtx.Err()}
	case <-c.done:
		return nil, &CommandError{Method: method, Message: "client closed"}
	}
}

func (c *Client) readLoop() {
	for c.scanner.Scan() {
		select {
		case <-c.done:
			return
		default:
		}

		// One envelope distinguishes responses (id set) from events (type set).
		var envelope struct {
			ID      string          `json:"id"`
			Data    json.RawMessage `json:"data"`
			Error   string          `json:"error"`
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(c.scanner.Bytes(), &envelope); err != nil {
			c.logger.Debug("gateway: dropping malformed frame", "error", err)
			continue
		}

		switch {
		case envelope.ID != "":
			c.mu.Lock()
			ch, ok := c.pending[envelope.ID]
			c.mu.Unlock()
			if ok {
				ch <- &Response{Data: envelope.Data, Error: envelope.Error, ID: envelope.ID}
			}
		case envelope.Type != "":
			select {
			case c.events <- Event{Type: envelope.Type, Payload: envelope.Payload}:
			default: // drop if the consumer is behind
			}
		}
	}

	c.connected.Store(false)
}

// call decodes one command's payload into T.
func call[T any](ctx context.Context, c *Client, method string, params any) (T, error) {
	var out T
	data, err := c.Call(ctx, method, params)
	if err != nil {
		return out, err
	}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, &CommandError{Method: method, Message: "decode payload", Cause: err}
	}
	return out, nil
}

// ListServices retrieves the managed service set.
func (c *Client) ListServices(ctx context.Context) ([]*ServiceRecord, error) {
	return call[[]*ServiceRecord](ctx, c, "list_services", nil)
}

// ServiceLogs retrieves the log tail for one service.
func (c *Client) ServiceLogs(ctx context.Context, service string, limit int) ([]*LogRecord, error) {
	return call[[]*LogRecord](ctx, c, "get_service_logs", map[string]any{
		"service": service,
		"limit":   limit,
	})
}

// RunPreflight runs the backend's environment verification.
func (c *Client) RunPreflight(ctx context.Context) (*PreflightRecord, error) {
	return call[*PreflightRecord](ctx, c, "run_preflight", nil)
}

// ListJobs retrieves all pipeline jobs.
func (c *Client) ListJobs(ctx context.Context) ([]*JobRecord, error) {
	return call[[]*JobRecord](ctx, c, "list_jobs", nil)
}

// JobMilestones retrieves the pipeline steps for one job.
func (c *Client) JobMilestones(ctx context.Context, jobID string) ([]*MilestoneRecord, error) {
	return call[[]*MilestoneRecord](ctx, c, "get_job_milestones", map[string]string{"job_id": jobID})
}

// KBStats retrieves the knowledge-base index summary.
func (c *Client) KBStats(ctx context.Context) (*KBStatsRecord, error) {
	return call[*KBStatsRecord](ctx, c, "get_kb_stats", nil)
}

// Quotas retrieves API quota usage.
func (c *Client) Quotas(ctx context.Context) ([]*QuotaRecord, error) {
	return call[[]*QuotaRecord](ctx, c, "get_quotas", nil)
}

// ListAlerts retrieves active alerts.
func (c *Client) ListAlerts(ctx context.Context) ([]*AlertRecord, error) {
	return call[[]*AlertRecord](ctx, c, "list_alerts", nil)
}

// Overview retrieves the headline metrics snapshot.
func (c *Client) Overview(ctx context.Context) (*OverviewRecord, error) {
	return call[*OverviewRecord](ctx, c, "get_overview", nil)
}

// StartService asks the backend to start a service.
func (c *Client) StartService(ctx context.Context, name string) error {
	_, err := c.Call(ctx, "start_service", map[string]string{"name": name})
	return err
}

// StopService asks the backend to stop a service.
func (c *Client) StopService(ctx context.Context, name string) error {
	_, err := c.Call(ctx, "stop_service", map[string]string{"name": name})
	return err
}

// RestartService asks the backend to restart a service.
func (c *Client) RestartService(ctx context.Context, name string) error {
	_, err := c.Call(ctx, "restart_service", map[string]string{"name": name})
	return err
}

// AcknowledgeAlert marks an alert acknowledged.
func (c *Client) AcknowledgeAlert(ctx context.Context, id string) error {
	_, err := c.Call(ctx, "ack_alert", map[string]string{"id": id})
	return err
}
