package rpcpool

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"

	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
	"github.com/pushchain/chain-orchestrator/orchestrator/metrics"
)

// Client is a single JSON-RPC endpoint with timeout and retry policy.
type Client struct {
	url     string
	chain   string
	rpc     *rpc.Client
	timeout time.Duration
	retry   *oerrors.RetryConfig
	logger  zerolog.Logger
}

// Dial creates a client for url. HTTP endpoints do not connect until the
// first call.
func Dial(ctx context.Context, chain, url string, opts Options, logger zerolog.Logger) (*Client, error) {
	headers := make(http.Header, len(opts.Headers))
	for k, v := range opts.Headers {
		headers.Set(k, v)
	}

	c, err := rpc.DialOptions(ctx, url, rpc.WithHeaders(headers))
	if err != nil {
		return nil, oerrors.NewNetworkError(chain, "dial "+url, err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultOptions().Timeout
	}

	return &Client{
		url:     url,
		chain:   chain,
		rpc:     c,
		timeout: timeout,
		retry:   opts.RetryPolicy(),
		logger:  logger.With().Str("component", "rpc_client").Str("url", url).Logger(),
	}, nil
}

// URL returns the endpoint address.
func (c *Client) URL() string {
	return c.url
}

// Call performs method with params, retrying transport failures.
func (c *Client) Call(ctx context.Context, result any, method string, params ...any) error {
	start := time.Now()
	defer func() { metrics.ObserveRPC(method, time.Since(start)) }()

	return oerrors.RetryWithConfig(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		err := c.rpc.CallContext(callCtx, result, method, params...)
		if err == nil {
			return nil
		}
		classified := classify(c.chain, method, err)
		c.logger.Debug().Str("method", method).Err(classified).Msg("rpc call failed")
		return classified
	}, c.retry)
}

// Close releases the underlying transport.
func (c *Client) Close() {
	c.rpc.Close()
}

// classify maps transport outcomes onto ChainErrors. JSON-RPC error
// objects are final; 5xx, 429, network errors and timeouts are retryable.
func classify(chain, method string, err error) error {
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		ce := oerrors.NewRPCError(chain, method+": "+httpErr.Status, err).
			WithContext("status", httpErr.StatusCode)
		if httpErr.StatusCode >= 500 || httpErr.StatusCode == http.StatusTooManyRequests {
			ce.WithContext("retryable", true)
		}
		return ce
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return oerrors.NewRPCError(chain, method+": "+rpcErr.Error(), nil).
			WithContext("code", rpcErr.ErrorCode())
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return oerrors.NewTimeoutError(chain, method+" timed out")
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return oerrors.NewNetworkError(chain, method, err)
}

// IsTransportError reports whether err came from the transport rather
// than from a JSON-RPC error object.
func IsTransportError(err error) bool {
	switch oerrors.CodeOf(err) {
	case oerrors.ErrCodeNetwork, oerrors.ErrCodeTimeout:
		return true
	case oerrors.ErrCodeRPC:
		return oerrors.IsRetryable(err)
	default:
		return false
	}
}
