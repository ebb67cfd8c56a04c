package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/balance-allowance", r.URL.Path)
		assert.Equal(t, "COLLATERAL", r.URL.Query().Get("asset_type"))
		assert.Equal(t, "key-1", r.Header.Get("POLY-API-KEY"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"balance":"125000000"}`)
	}))
	defer server.Close()

	c := NewTradingClient(server.URL, "key-1", "secret-1", "pass-1", zap.NewNop())
	balance, err := c.Balance(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 125.0, balance, 1e-9)
}

func TestPlaceBuyOrder(t *testing.T) {
	var got orderRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/order", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"orderID":"ord-1","success":true}`)
	}))
	defer server.Close()

	c := NewTradingClient(server.URL, "k", "s", "p", zap.NewNop())
	result := c.PlaceBuyOrder(context.Background(), "tok-1", 0.30, 6)

	assert.True(t, result.Success)
	assert.Equal(t, "ord-1", result.OrderID)
	// 6 USD at 0.30 buys floor(20) = 20 shares.
	assert.InDelta(t, 20, result.Size, 1e-9)

	assert.Equal(t, "tok-1", got.TokenID)
	assert.Equal(t, "BUY", got.Side)
	assert.Equal(t, "GTC", got.OrderType)
	assert.InDelta(t, 0.30, got.Price, 1e-9)
}

func TestPlaceBuyOrderMinimumSize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"orderID":"ord-1","success":true}`)
	}))
	defer server.Close()

	c := NewTradingClient(server.URL, "k", "s", "p", zap.NewNop())
	// 1 USD at 0.50 is only 2 shares; the exchange minimum is 5.
	result := c.PlaceBuyOrder(context.Background(), "tok-1", 0.50, 1)
	assert.InDelta(t, minOrderShares, result.Size, 1e-9)
}

func TestPlaceOrderFailureIsResultNotError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"success":false,"errorMsg":"not enough balance"}`)
	}))
	defer server.Close()

	c := NewTradingClient(server.URL, "k", "s", "p", zap.NewNop())
	result := c.PlaceSellOrder(context.Background(), "tok-1", 0.40, 10)

	assert.False(t, result.Success)
	assert.Equal(t, "not enough balance", result.Err)
	assert.Empty(t, result.OrderID)
}

func TestPlaceOrderRejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad order", http.StatusBadRequest)
	}))
	defer server.Close()

	c := NewTradingClient(server.URL, "k", "s", "p", zap.NewNop())
	result := c.PlaceBuyOrder(context.Background(), "tok-1", 0.30, 6)

	assert.False(t, result.Success)
	assert.Contains(t, result.Err, "order rejected")
}

func TestOpenOrdersAndCancel(t *testing.T) {
	var cancelledID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/data/orders":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `[{"id":"ord-1","asset_id":"tok-1","side":"BUY"}]`)
		case r.URL.Path == "/order" && r.Method == http.MethodDelete:
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			cancelledID = body["orderID"]
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := NewTradingClient(server.URL, "k", "s", "p", zap.NewNop())

	orders, err := c.OpenOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "ord-1", orders[0].ID)

	require.NoError(t, c.CancelOrder(context.Background(), "ord-1"))
	assert.Equal(t, "ord-1", cancelledID)
}
