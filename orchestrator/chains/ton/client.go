package ton

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
	"github.com/pushchain/chain-orchestrator/orchestrator/metrics"
	"github.com/pushchain/chain-orchestrator/orchestrator/rpcpool"
)

// Client calls the toncenter v2 HTTP API, which takes named query
// parameters rather than positional JSON-RPC params.
type Client struct {
	baseURL string
	headers map[string]string
	http    *http.Client
	retry   *oerrors.RetryConfig
	logger  zerolog.Logger
}

// NewClient creates a client for a toncenter base URL such as
// https://toncenter.com/api/v2.
func NewClient(baseURL string, headers map[string]string, opts rpcpool.Options, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(strings.TrimSuffix(baseURL, "/"), "/jsonRPC"),
		headers: headers,
		http:    &http.Client{Timeout: opts.Timeout},
		retry:   opts.RetryPolicy(),
		logger:  logger.With().Str("component", "ton_client").Logger(),
	}
}

type envelope struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
	Code   int             `json:"code"`
}

// Get performs GET <base>/<method>?<query> and decodes the result field.
func (c *Client) Get(ctx context.Context, result any, method string, query url.Values) error {
	start := time.Now()
	defer func() { metrics.ObserveRPC(method, time.Since(start)) }()

	endpoint := c.baseURL + "/" + method
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	return oerrors.RetryWithConfig(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return oerrors.NewConfigError(chainName, err.Error())
		}
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return oerrors.NewNetworkError(chainName, method, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return oerrors.NewNetworkError(chainName, fmt.Sprintf("%s: %s", method, resp.Status), nil).
				WithContext("status", resp.StatusCode)
		}

		var env envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			return oerrors.NewRPCError(chainName, method+": decode response", err).WithContext("status", resp.StatusCode)
		}
		if !env.OK {
			return oerrors.NewRPCError(chainName, method+": "+env.Error, nil).WithContext("code", env.Code)
		}
		if result == nil {
			return nil
		}
		if err := json.Unmarshal(env.Result, result); err != nil {
			return oerrors.NewRPCError(chainName, method+": decode result", err)
		}
		return nil
	}, c.retry)
}
