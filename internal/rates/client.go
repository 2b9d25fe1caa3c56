// Package rates fetches the market exchange-rate table.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

const defaultBaseURL = "https://api.exchangerate-api.com/v4/latest/"

// ratePrecision is the number of places kept when inverting quoted rates.
const ratePrecision = 8

// DefaultURL is the public latest-rates endpoint for base.
func DefaultURL(base string) string {
	return defaultBaseURL + strings.ToUpper(base)
}

// Client reads a {"base": "...", "rates": {"USD": 0.0177}} document where each
// rate is the number of units bought by one unit of base.
type Client struct {
	url    string
	base   string
	client *http.Client
	logger *log.Logger
	now    func() time.Time
}

func NewClient(url, base string, logger *log.Logger) *Client {
	if url == "" {
		url = DefaultURL(base)
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Client{
		url:    url,
		base:   strings.ToUpper(base),
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger.WithComponent(log.ComponentRates),
		now:    time.Now,
	}
}

type latestResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// Fetch returns the table expressed as the value of one unit of each currency in base.
func (c *Client) Fetch(ctx context.Context) (core.MarketRates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return core.MarketRates{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.DebugContext(ctx, "Fetching market rates", "url", c.url)
	resp, err := c.client.Do(req)
	if err != nil {
		return core.MarketRates{}, fmt.Errorf("request market rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.MarketRates{}, fmt.Errorf("market rates API returned status %d", resp.StatusCode)
	}

	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return core.MarketRates{}, fmt.Errorf("decode market rates: %w", err)
	}
	if body.Base == "" {
		body.Base = c.base
	}
	if !strings.EqualFold(body.Base, c.base) {
		return core.MarketRates{}, fmt.Errorf("market rates quoted in %s, want %s", body.Base, c.base)
	}

	out := core.MarketRates{
		Base:      c.base,
		Rates:     make(map[string]decimal.Decimal, len(body.Rates)),
		UpdatedAt: c.now().UTC(),
	}
	one := decimal.NewFromInt(1)
	for code, perBase := range body.Rates {
		code = strings.ToUpper(code)
		if code == c.base || !core.ValidCurrency(code) || !perBase.IsPositive() {
			continue
		}
		out.Rates[code] = one.DivRound(perBase, ratePrecision)
	}
	if len(out.Rates) == 0 {
		return core.MarketRates{}, fmt.Errorf("market rates response had no usable rates")
	}

	c.logger.InfoContext(ctx, "Fetched market rates", "base", out.Base, "count", len(out.Rates))
	return out, nil
}
