package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const poolFixture = `{
  "data": {
    "id": "sui-network_0x51e8",
    "attributes": {
      "name": "USDC / SUI 0.25%",
      "base_token_price_usd": "0.9998",
      "quote_token_price_usd": "3.4567",
      "volume_usd": {"h24": "1234567.89"},
      "transactions": {"h24": {"buys": 120, "sells": 80}},
      "reserve_in_usd": "987654.32"
    }
  }
}`

func newFixtureClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	return &Client{
		baseURL: ts.URL,
		network: "sui-network",
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

func TestFetchPool_ParsesResponse(t *testing.T) {
	var requestedPath string
	client := newFixtureClient(t, func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(poolFixture))
	})

	snapshot, err := client.FetchPool(context.Background(), "0x51e8")
	require.NoError(t, err)

	assert.Equal(t, "/networks/sui-network/pools/0x51e8", requestedPath)
	assert.Equal(t, "USDC / SUI 0.25%", snapshot.Name)
	assert.Equal(t, 0.9998, snapshot.BaseTokenUSD)
	assert.Equal(t, 3.4567, snapshot.QuoteTokenUSD)
	assert.Equal(t, 1234567.89, snapshot.Volume24hUSD)
	assert.Equal(t, 200, snapshot.Transactions24h)
	assert.Equal(t, 987654.32, snapshot.ReserveUSD)
	assert.False(t, snapshot.FetchedAt.IsZero())
}

func TestFetchPool_NonOKStatus(t *testing.T) {
	client := newFixtureClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.FetchPool(context.Background(), "0x51e8")
	assert.ErrorContains(t, err, "status 429")
}

func TestFetchPool_BadPrice(t *testing.T) {
	client := newFixtureClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"attributes":{"base_token_price_usd":"not-a-number","quote_token_price_usd":"1"}}}`))
	})

	_, err := client.FetchPool(context.Background(), "0x51e8")
	assert.ErrorContains(t, err, "invalid base token price")
}

func TestLookupPool(t *testing.T) {
	address, inverted, ok := LookupPool("USDC/SUI")
	require.True(t, ok)
	assert.False(t, inverted)
	assert.NotEmpty(t, address)

	flippedAddress, inverted, ok := LookupPool("sui/usdc")
	require.True(t, ok, "lookup is case insensitive")
	assert.True(t, inverted)
	assert.Equal(t, address, flippedAddress)

	_, _, ok = LookupPool("NOPE/NADA")
	assert.False(t, ok)
}

func TestPairPrice_Orientation(t *testing.T) {
	watcher := NewWatcher(NewClient("sui-network"))

	address, _, ok := LookupPool("USDC/SUI")
	require.True(t, ok)
	watcher.prices[address] = PoolPrice{BaseTokenUSD: 1.0, QuoteTokenUSD: 4.0}

	// USDC/SUI: one USDC is a quarter SUI.
	rate, ok := watcher.PairPrice("USDC/SUI")
	require.True(t, ok)
	assert.InDelta(t, 0.25, rate, 1e-9)

	// SUI/USDC is the same pool inverted.
	rate, ok = watcher.PairPrice("SUI/USDC")
	require.True(t, ok)
	assert.InDelta(t, 4.0, rate, 1e-9)
}

func TestPairPrice_MissingData(t *testing.T) {
	watcher := NewWatcher(NewClient("sui-network"))

	_, ok := watcher.PairPrice("USDC/SUI")
	assert.False(t, ok, "no snapshot cached yet")

	_, ok = watcher.PairPrice("NOPE/NADA")
	assert.False(t, ok, "unknown pair")
}
