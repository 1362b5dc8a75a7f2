package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(transactionsTotal.WithLabelValues("evm", "confirmed"))
	TransactionStatus("evm", "confirmed")
	assert.Equal(t, before+1, testutil.ToFloat64(transactionsTotal.WithLabelValues("evm", "confirmed")))

	StageError("submit")
	assert.GreaterOrEqual(t, testutil.ToFloat64(stageErrorsTotal.WithLabelValues("submit")), 1.0)
}

func TestHandlerExposesCollectors(t *testing.T) {
	ObserveRPC("eth_blockNumber", 20*time.Millisecond)
	TransactionStatus("solana", "submitted")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "orchestrator_rpc_request_seconds")
	assert.Contains(t, string(body), `orchestrator_transactions_total{protocol="solana",status="submitted"}`)
}
