// Package webhook posts balance change notifications. Delivery is best
// effort: one attempt, failures are logged and never returned.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pushchain/chain-orchestrator/orchestrator/config"
)

// SecretHeader carries the shared secret when one is configured.
const SecretHeader = "X-Web3Laravel-Secret"

const defaultTimeout = 5 * time.Second

// Payload is the JSON body of a notification.
type Payload struct {
	Wallet    string    `json:"wallet"`
	Protocol  string    `json:"protocol"`
	TokenID   *uint     `json:"token_id"`
	Contract  string    `json:"contract,omitempty"`
	Spender   string    `json:"spender,omitempty"`
	Old       string    `json:"old"`
	New       string    `json:"new"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HTTPClient is the subset of *http.Client the notifier uses.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Notifier delivers payloads to one URL.
type Notifier struct {
	url     string
	secret  string
	timeout time.Duration
	client  HTTPClient
	logger  zerolog.Logger
}

// NewNotifier creates a notifier. A nil client uses http.DefaultClient.
func NewNotifier(cfg config.WebhookConfig, client HTTPClient, logger zerolog.Logger) *Notifier {
	if client == nil {
		client = http.DefaultClient
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Notifier{
		url:     cfg.URL,
		secret:  cfg.Secret,
		timeout: timeout,
		client:  client,
		logger:  logger.With().Str("component", "webhook").Logger(),
	}
}

// Enabled reports whether a URL is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.url != ""
}

// Notify posts p once. It is a no-op without a URL.
func (n *Notifier) Notify(ctx context.Context, p Payload) {
	if !n.Enabled() {
		return
	}
	body, err := json.Marshal(p)
	if err != nil {
		n.logger.Error().Err(err).Msg("webhook: failed to marshal payload")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.logger.Error().Err(err).Msg("webhook: failed to create request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if n.secret != "" {
		req.Header.Set(SecretHeader, n.secret)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn().Err(err).Str("wallet", p.Wallet).Msg("webhook: delivery failed")
		return
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.logger.Warn().Int("status", resp.StatusCode).Str("wallet", p.Wallet).Msg("webhook: non-2xx response")
		return
	}
	n.logger.Debug().Int("status", resp.StatusCode).Str("wallet", p.Wallet).Msg("webhook: delivered")
}
