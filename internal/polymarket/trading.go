package polymarket

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Minimum order size accepted by the CLOB, in shares.
const minOrderShares = 5

// TradingClientInterface defines the interface for the live order client.
type TradingClientInterface interface {
	Balance(ctx context.Context) (float64, error)
	OpenOrders(ctx context.Context) ([]Order, error)
	PlaceBuyOrder(ctx context.Context, tokenID string, price, sizeUSD float64) *OrderResult
	PlaceSellOrder(ctx context.Context, tokenID string, price, size float64) *OrderResult
	CancelOrder(ctx context.Context, orderID string) error
}

// TradingClient places and cancels live CLOB orders. Every failure is
// returned as a recordable result rather than an error escalated to the
// engine: live execution is a side effect, never a reason to abort the
// paper-record state transition.
type TradingClient struct {
	client *resty.Client
	logger *zap.Logger
}

// ensure TradingClient implements the interface
var _ TradingClientInterface = (*TradingClient)(nil)

// NewTradingClient creates a live order client authenticated with the
// configured API credentials.
func NewTradingClient(clobURL, apiKey, secret, passphrase string, logger *zap.Logger) *TradingClient {
	client := resty.New().
		SetBaseURL(clobURL).
		SetTimeout(15 * time.Second).
		SetHeader("POLY-API-KEY", apiKey).
		SetHeader("POLY-SECRET", secret).
		SetHeader("POLY-PASSPHRASE", passphrase)

	return &TradingClient{client: client, logger: logger}
}

// Order is one resting live order.
type Order struct {
	ID      string `json:"id"`
	TokenID string `json:"asset_id"`
	Side    string `json:"side"`
	Price   string `json:"price"`
	Size    string `json:"original_size"`
}

// OrderResult records the outcome of a live order attempt.
type OrderResult struct {
	Success bool
	OrderID string
	Price   float64
	Size    float64
	Err     string
}

// balanceResponse carries the collateral balance in micro-units.
type balanceResponse struct {
	Balance string `json:"balance"`
}

// Balance fetches the available collateral balance in USD.
func (t *TradingClient) Balance(ctx context.Context) (float64, error) {
	var out balanceResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetResult(&out).
		SetQueryParam("asset_type", "COLLATERAL").
		Get("/balance-allowance")
	if err != nil {
		return 0, fmt.Errorf("balance fetch failed: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("balance fetch failed with status %s", resp.Status())
	}

	micro, err := strconv.ParseFloat(out.Balance, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable balance %q: %w", out.Balance, err)
	}
	return micro / 1e6, nil
}

// OpenOrders fetches all resting orders. Failures degrade to an empty
// list so the kill switch can still mark records.
func (t *TradingClient) OpenOrders(ctx context.Context) ([]Order, error) {
	var out []Order
	resp, err := t.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/data/orders")
	if err != nil {
		return nil, fmt.Errorf("open orders fetch failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("open orders fetch failed with status %s", resp.Status())
	}
	return out, nil
}

type orderRequest struct {
	TokenID   string  `json:"tokenID"`
	Price     float64 `json:"price"`
	Size      float64 `json:"size"`
	Side      string  `json:"side"`
	OrderType string  `json:"orderType"`
}

type orderResponse struct {
	OrderID string `json:"orderID"`
	Success bool   `json:"success"`
	Error   string `json:"errorMsg"`
}

// PlaceBuyOrder posts a GTC buy for sizeUSD worth of shares at the given
// price, honoring the exchange's minimum order size.
func (t *TradingClient) PlaceBuyOrder(ctx context.Context, tokenID string, price, sizeUSD float64) *OrderResult {
	size := math.Max(minOrderShares, math.Floor(sizeUSD/price))
	return t.placeOrder(ctx, tokenID, "BUY", price, size)
}

// PlaceSellOrder posts a GTC sell for the given share size.
func (t *TradingClient) PlaceSellOrder(ctx context.Context, tokenID string, price, size float64) *OrderResult {
	return t.placeOrder(ctx, tokenID, "SELL", price, size)
}

func (t *TradingClient) placeOrder(ctx context.Context, tokenID, side string, price, size float64) *OrderResult {
	var out orderResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetResult(&out).
		SetBody(orderRequest{
			TokenID:   tokenID,
			Price:     price,
			Size:      size,
			Side:      side,
			OrderType: "GTC",
		}).
		Post("/order")

	result := &OrderResult{Price: price, Size: size}
	if err != nil {
		result.Err = err.Error()
		return result
	}
	if resp.IsError() {
		result.Err = fmt.Sprintf("order rejected with status %s: %s", resp.Status(), resp.String())
		return result
	}
	if out.Error != "" {
		result.Err = out.Error
		return result
	}

	result.Success = true
	result.OrderID = out.OrderID
	t.logger.Info("Placed live order",
		zap.String("side", side),
		zap.String("token_id", tokenID),
		zap.Float64("price", price),
		zap.Float64("size", size),
		zap.String("order_id", out.OrderID),
	)
	return result
}

// CancelOrder cancels one resting order by id.
func (t *TradingClient) CancelOrder(ctx context.Context, orderID string) error {
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"orderID": orderID}).
		Delete("/order")
	if err != nil {
		return fmt.Errorf("cancel order %s failed: %w", orderID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("cancel order %s failed with status %s", orderID, resp.Status())
	}
	return nil
}
