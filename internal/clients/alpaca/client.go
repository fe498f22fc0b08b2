// Package alpaca provides a client for the Alpaca market-data API.
package alpaca

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aristath/arena/internal/config"
	"github.com/aristath/arena/internal/domain"
	"github.com/aristath/arena/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

const (
	// maxSymbolsPerRequest is the provider's batch limit
	maxSymbolsPerRequest = 100
	// maxAttempts bounds retries per batch request
	maxAttempts = 3
	// retryBackoff is multiplied by the attempt number (linear backoff)
	retryBackoff = 500 * time.Millisecond
)

// bar is a single daily bar as returned by the API
type bar struct {
	Symbol string  `json:"S"`
	Open   float64 `json:"o"`
	Close  float64 `json:"c"`
}

// barsResponse accepts both response shapes: the single-symbol API returns
// a flat list, the multi-symbol API returns a symbol -> bars map.
type barsResponse struct {
	Bars json.RawMessage `json:"bars"`
}

// Client for the Alpaca data API
type Client struct {
	cfg    config.AlpacaConfig
	client *http.Client
	log    zerolog.Logger
}

// NewClient creates a new Alpaca market-data client
func NewClient(cfg config.AlpacaConfig, log zerolog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log.With().Str("client", "alpaca").Logger(),
	}
}

// Feed returns the configured data feed identifier
func (c *Client) Feed() string {
	return c.cfg.Feed
}

// AuthMode returns the configured credential mode
func (c *Client) AuthMode() string {
	return c.cfg.AuthMode
}

// BaseURL returns the configured data API base URL
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// FetchDailyBars retrieves one daily bar per symbol for the given trade
// date. Symbols are requested in batches of at most 100. Symbols without a
// bar are absent from the result; that is not an error.
func (c *Client) FetchDailyBars(ctx context.Context, tradeDate string, symbols []string) (portfolio.PriceMap, error) {
	if c.cfg.APIKey == "" || c.cfg.APISecret == "" {
		return nil, domain.NewConfigError("Alpaca credentials not set")
	}

	// Full-day window in the exchange's standard session offset. Alpaca
	// accepts fixed offsets, so -04:00 bounds the whole trading day.
	start := tradeDate + "T00:00:00-04:00"
	end := tradeDate + "T23:59:59-04:00"

	out := portfolio.PriceMap{}
	for _, group := range chunk(symbols, maxSymbolsPerRequest) {
		resp, err := c.fetchBars(ctx, group, start, end)
		if err != nil {
			return nil, err
		}
		if err := mergeBars(out, resp); err != nil {
			return nil, err
		}
	}

	c.log.Debug().
		Str("trade_date", tradeDate).
		Int("requested", len(symbols)).
		Int("returned", len(out)).
		Msg("Fetched daily bars")

	return out, nil
}

// fetchBars requests one batch, retrying on any failure with linear backoff
func (c *Client) fetchBars(ctx context.Context, symbols []string, startISO, endISO string) (*barsResponse, error) {
	reqURL, err := c.buildURL(symbols, startISO, endISO)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := c.doRequest(ctx, reqURL)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		c.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("symbols", len(symbols)).
			Msg("Bars request failed")

		if attempt < maxAttempts {
			select {
			case <-time.After(time.Duration(attempt) * retryBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

func (c *Client) buildURL(symbols []string, startISO, endISO string) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL + "/stocks/bars")
	if err != nil {
		return "", fmt.Errorf("invalid Alpaca base URL: %w", err)
	}

	q := u.Query()
	q.Set("timeframe", "1Day")
	q.Set("symbols", strings.Join(symbols, ","))
	q.Set("start", startISO)
	q.Set("end", endISO)
	q.Set("feed", c.cfg.Feed)
	// One daily bar per symbol, adjusted prices
	q.Set("limit", "1")
	q.Set("adjustment", "all")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (c *Client) doRequest(ctx context.Context, reqURL string) (*barsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build bars request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.setAuthHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.ProviderError{Provider: "alpaca", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &domain.ProviderError{
			Provider:  "alpaca",
			Status:    resp.StatusCode,
			RequestID: resp.Header.Get("X-Request-Id"),
			Body:      strings.TrimSpace(string(body)),
		}
	}

	var data barsResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, &domain.ProviderError{Provider: "alpaca", Err: fmt.Errorf("failed to decode bars response: %w", err)}
	}
	return &data, nil
}

// setAuthHeaders applies the configured credential mode: "broker" uses
// basic auth of key:secret, anything else the trading header pair.
func (c *Client) setAuthHeaders(req *http.Request) {
	if strings.EqualFold(c.cfg.AuthMode, "broker") {
		token := base64.StdEncoding.EncodeToString([]byte(c.cfg.APIKey + ":" + c.cfg.APISecret))
		req.Header.Set("Authorization", "Basic "+token)
		return
	}
	req.Header.Set("APCA-API-KEY-ID", c.cfg.APIKey)
	req.Header.Set("APCA-API-SECRET-KEY", c.cfg.APISecret)
}

// mergeBars normalizes either response shape into the output map, keeping
// only the first bar per symbol (one bar per day is expected).
func mergeBars(out portfolio.PriceMap, resp *barsResponse) error {
	if resp == nil || len(resp.Bars) == 0 || string(resp.Bars) == "null" {
		return nil
	}

	var list []bar
	if err := json.Unmarshal(resp.Bars, &list); err == nil {
		for _, b := range list {
			if b.Symbol == "" {
				continue
			}
			if _, seen := out[b.Symbol]; !seen {
				out[b.Symbol] = portfolio.Bar{Open: b.Open, Close: b.Close}
			}
		}
		return nil
	}

	var bySymbol map[string][]bar
	if err := json.Unmarshal(resp.Bars, &bySymbol); err != nil {
		return fmt.Errorf("unrecognized bars payload: %w", err)
	}
	for sym, arr := range bySymbol {
		if len(arr) > 0 {
			out[sym] = portfolio.Bar{Open: arr[0].Open, Close: arr[0].Close}
		}
	}
	return nil
}

// chunk splits symbols into groups of at most size
func chunk(symbols []string, size int) [][]string {
	var out [][]string
	for i := 0; i < len(symbols); i += size {
		end := i + size
		if end > len(symbols) {
			end = len(symbols)
		}
		out = append(out, symbols[i:end])
	}
	return out
}
