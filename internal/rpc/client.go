// Package rpc implements the JSON-RPC 2.0 client used to query a running
// project node for status diagnostics. Calls retry transient transport
// failures with exponential backoff; node-reported errors are final.
// Successful responses can optionally be snapshotted to a cache so the last
// known state stays available while the node is down.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bitcommons/repover/internal/cache"
	"github.com/bitcommons/repover/internal/utils"
)

// Client talks JSON-RPC 2.0 over HTTP to a node
type Client struct {
	addr       string
	endpoint   string
	httpClient *http.Client
	maxRetries int
	log        *utils.Logger

	snapshots   cache.Cache
	snapshotTTL time.Duration

	nextID atomic.Int64
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithMaxRetries sets how many times a transient failure is retried
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithSnapshots stores every successful response in the given cache so it
// can later be served by the Snapshot methods when the node is unreachable.
func WithSnapshots(store cache.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.snapshots = store
		c.snapshotTTL = ttl
	}
}

// NewClient creates a client for the node RPC endpoint at addr (host:port).
func NewClient(addr string, log *utils.Logger, opts ...Option) *Client {
	c := &Client{
		addr:       addr,
		endpoint:   "http://" + addr + "/",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxRetries: 3,
		log:        log.WithComponent("rpc"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Addr returns the node address this client talks to
func (c *Client) Addr() string {
	return c.addr
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error"`
}

// Call invokes method with params and decodes the result into result.
// Transport failures and retryable HTTP statuses are retried with
// exponential backoff; a JSON-RPC error from the node is returned as-is.
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return &RequestError{Method: method, Err: err}
	}

	raw, err := c.post(ctx, method, body)
	if err != nil {
		return err
	}

	if c.snapshots != nil {
		key := cache.SnapshotKey(c.addr, method)
		if err := c.snapshots.Set(ctx, key, raw, c.snapshotTTL); err != nil {
			c.log.Warn().Err(err).Str("method", method).Msg("failed to store snapshot")
		}
	}

	if result != nil {
		if err := json.Unmarshal(raw, result); err != nil {
			return &RequestError{Method: method, Err: fmt.Errorf("malformed result: %w", err)}
		}
	}
	return nil
}

func (c *Client) post(ctx context.Context, method string, body []byte) (json.RawMessage, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second

	var raw json.RawMessage
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.log.Debug().Err(err).Str("method", method).Msg("transport failure, retrying")
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("unexpected status %d", resp.StatusCode)
			if retryableStatus(resp.StatusCode) {
				return err
			}
			return backoff.Permanent(err)
		}

		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		var decoded rpcResponse
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return backoff.Permanent(fmt.Errorf("malformed response: %w", err))
		}
		if decoded.Error != nil {
			return backoff.Permanent(decoded.Error)
		}

		raw = decoded.Result
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxRetries)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		var rpcErr *Error
		if errors.As(err, &rpcErr) {
			return nil, rpcErr
		}
		return nil, &RequestError{Method: method, Err: err}
	}
	return raw, nil
}

// Status queries the node's status summary
func (c *Client) Status(ctx context.Context) (*NodeStatus, error) {
	var status NodeStatus
	if err := c.Call(ctx, MethodGetStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Health queries node health
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var health HealthStatus
	if err := c.Call(ctx, MethodGetHealth, nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// ChainInfo queries the best chain state
func (c *Client) ChainInfo(ctx context.Context) (*ChainInfo, error) {
	var info ChainInfo
	if err := c.Call(ctx, MethodGetChainInfo, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Peers queries the connected peer list
func (c *Client) Peers(ctx context.Context) ([]Peer, error) {
	var peers []Peer
	if err := c.Call(ctx, MethodGetPeers, nil, &peers); err != nil {
		return nil, err
	}
	return peers, nil
}

// NetworkInfo queries peer-to-peer connectivity details
func (c *Client) NetworkInfo(ctx context.Context) (*NetworkInfo, error) {
	var info NetworkInfo
	if err := c.Call(ctx, MethodGetNetworkInfo, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SyncStatus queries block synchronization progress
func (c *Client) SyncStatus(ctx context.Context) (*SyncStatus, error) {
	var sync SyncStatus
	if err := c.Call(ctx, MethodGetSyncStatus, nil, &sync); err != nil {
		return nil, err
	}
	return &sync, nil
}

// SnapshotStatus returns the last cached status response, if any.
func (c *Client) SnapshotStatus(ctx context.Context) (*NodeStatus, error) {
	var status NodeStatus
	if err := c.snapshot(ctx, MethodGetStatus, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) snapshot(ctx context.Context, method string, result any) error {
	if c.snapshots == nil {
		return ErrNoSnapshot
	}
	raw, err := c.snapshots.Get(ctx, cache.SnapshotKey(c.addr, method))
	if err != nil {
		if err == cache.ErrCacheMiss {
			return ErrNoSnapshot
		}
		return err
	}
	return json.Unmarshal(raw, result)
}
