package polymarket

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	maxRetries   = 3
	retryBackoff = 1500 * time.Millisecond
	callTimeout  = 12 * time.Second
)

// ClientInterface defines the interface for the market-discovery and
// pricing provider.
type ClientInterface interface {
	SearchEvents(ctx context.Context, query string) ([]Event, error)
	EventBySlug(ctx context.Context, slug string) (*Event, error)
	Price(ctx context.Context, tokenID string) (float64, error)
	MarketQuote(ctx context.Context, m *Market) (*Quote, error)
}

// Client is a read-only client for the Gamma discovery API and the CLOB
// pricing endpoint.
type Client struct {
	gamma   *resty.Client
	clob    *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new Polymarket discovery/pricing client.
func NewClient(gammaURL, clobURL string, rateLimit float64, burst int, logger *zap.Logger) *Client {
	return &Client{
		gamma:   resty.New().SetBaseURL(gammaURL),
		clob:    resty.New().SetBaseURL(clobURL),
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(rateLimit), burst),
	}
}

// doRequest executes a GET with rate limiting and a bounded fixed-backoff
// retry against the given host.
func (c *Client) doRequest(ctx context.Context, host *resty.Client, path string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, callTimeout)
		resp, err = req.SetContext(attemptCtx).Execute("GET", path)
		cancel()

		if err == nil && !resp.IsError() {
			return resp, nil
		}

		if err == nil {
			err = fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		if attempt < maxRetries {
			c.logger.Warn("Market request failed, retrying...",
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			select {
			case <-time.After(retryBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

// searchResponse is the Gamma public-search envelope.
type searchResponse struct {
	Events []Event `json:"events"`
}

// SearchEvents runs a free-text search and returns the matched events.
func (c *Client) SearchEvents(ctx context.Context, query string) ([]Event, error) {
	var out searchResponse
	req := c.gamma.R().
		SetResult(&out).
		SetQueryParam("q", query)

	resp, err := c.doRequest(ctx, c.gamma, "/public-search", req)
	if err != nil {
		return nil, fmt.Errorf("failed to search events for %q: %w", query, err)
	}
	return resp.Result().(*searchResponse).Events, nil
}

// EventBySlug fetches a single event, including its markets, by slug.
func (c *Client) EventBySlug(ctx context.Context, slug string) (*Event, error) {
	var out Event
	req := c.gamma.R().SetResult(&out)

	resp, err := c.doRequest(ctx, c.gamma, "/events/slug/"+slug, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get event %q: %w", slug, err)
	}
	return resp.Result().(*Event), nil
}

// priceResponse is the CLOB price envelope; the price arrives as a string.
type priceResponse struct {
	Price string `json:"price"`
}

// Price fetches the current buy price for a tradable token.
func (c *Client) Price(ctx context.Context, tokenID string) (float64, error) {
	var out priceResponse
	req := c.clob.R().
		SetResult(&out).
		SetQueryParams(map[string]string{
			"token_id": tokenID,
			"side":     "buy",
		})

	resp, err := c.doRequest(ctx, c.clob, "/price", req)
	if err != nil {
		return 0, fmt.Errorf("failed to get price for token %s: %w", tokenID, err)
	}

	price, err := strconv.ParseFloat(resp.Result().(*priceResponse).Price, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable price for token %s: %w", tokenID, err)
	}
	return price, nil
}

// Quote is the current tradable YES/NO price pair for a market, along
// with the token ids needed for live orders. The two sides are fetched
// in one pass but via separate price calls, so the pair is a best-effort
// snapshot, not an atomic one.
type Quote struct {
	YesPrice float64
	NoPrice  float64
	YesToken string
	NoToken  string
}

// MarketQuote resolves the YES/NO outcome indices of a market and
// returns current prices, preferring a live CLOB price per side and
// falling back to the market's last-known outcome price.
func (c *Client) MarketQuote(ctx context.Context, m *Market) (*Quote, error) {
	outcomes := m.OutcomeLabels()
	prices := m.PriceList()
	tokens := m.TokenIDs()

	yesIdx, noIdx := -1, -1
	for i, o := range outcomes {
		switch strings.ToLower(o) {
		case "yes":
			yesIdx = i
		case "no":
			noIdx = i
		}
	}
	if yesIdx < 0 || noIdx < 0 {
		return nil, fmt.Errorf("market %q has no YES/NO outcomes", m.Question)
	}

	q := &Quote{}
	if yesIdx < len(prices) {
		q.YesPrice = prices[yesIdx]
	}
	if noIdx < len(prices) {
		q.NoPrice = prices[noIdx]
	}
	if yesIdx < len(tokens) {
		q.YesToken = tokens[yesIdx]
	}
	if noIdx < len(tokens) {
		q.NoToken = tokens[noIdx]
	}

	// Live prices are preferred but optional; outcome prices remain the
	// fallback when the CLOB call fails.
	if q.YesToken != "" {
		if p, err := c.Price(ctx, q.YesToken); err == nil {
			q.YesPrice = p
		}
	}
	if q.NoToken != "" {
		if p, err := c.Price(ctx, q.NoToken); err == nil {
			q.NoPrice = p
		}
	}

	if !isFinitePrice(q.YesPrice) || !isFinitePrice(q.NoPrice) {
		return nil, fmt.Errorf("market %q has no usable prices", m.Question)
	}
	return q, nil
}

func isFinitePrice(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0) && p >= 0 && p <= 1
}
