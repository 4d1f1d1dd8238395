package exchangerate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRateServer(t *testing.T, hits *atomic.Int32, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClient_Rate(t *testing.T) {
	var hits atomic.Int32
	server := newRateServer(t, &hits, http.StatusOK,
		`{"base":"EUR","rates":{"USD":1.10,"GBP":0.85}}`)

	client := NewClient(Config{BaseURL: server.URL}, zap.NewNop())

	rate, err := client.Rate(context.Background(), "EUR", "USD", time.Now())

	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromFloat(1.10)))
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_RateCaching(t *testing.T) {
	var hits atomic.Int32
	server := newRateServer(t, &hits, http.StatusOK,
		`{"base":"EUR","rates":{"USD":1.10}}`)

	client := NewClient(Config{BaseURL: server.URL, CacheTTL: time.Hour}, zap.NewNop())

	for i := 0; i < 3; i++ {
		_, err := client.Rate(context.Background(), "EUR", "USD", time.Now())
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), hits.Load(), "repeat lookups within the TTL must hit the cache")
}

func TestClient_MissingPair(t *testing.T) {
	var hits atomic.Int32
	server := newRateServer(t, &hits, http.StatusOK,
		`{"base":"EUR","rates":{"GBP":0.85}}`)

	client := NewClient(Config{BaseURL: server.URL}, zap.NewNop())

	_, err := client.Rate(context.Background(), "EUR", "USD", time.Now())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "EUR->USD")
}

func TestClient_UpstreamError(t *testing.T) {
	var hits atomic.Int32
	server := newRateServer(t, &hits, http.StatusBadGateway, `{}`)

	client := NewClient(Config{BaseURL: server.URL}, zap.NewNop())

	_, err := client.Rate(context.Background(), "EUR", "USD", time.Now())

	assert.Error(t, err)
}

func TestClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{BaseURL: server.URL}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Rate(ctx, "EUR", "USD", time.Now())

	assert.Error(t, err)
}

func TestStatic_Rate(t *testing.T) {
	static := NewStatic(map[string]decimal.Decimal{
		"EUR/USD": decimal.RequireFromString("1.10"),
	})

	rate, err := static.Rate(context.Background(), "EUR", "USD", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "1.1", rate.String())

	_, err = static.Rate(context.Background(), "USD", "EUR", time.Now())
	assert.Error(t, err, "static table has no inverse pair unless configured")
}

func TestStatic_SetRate(t *testing.T) {
	static := NewStatic(nil)
	static.SetRate("GBP", "USD", decimal.RequireFromString("1.27"))

	rate, err := static.Rate(context.Background(), "GBP", "USD", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "1.27", rate.String())
}
