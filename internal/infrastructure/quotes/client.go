package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dipwatch/internal/domain/model"
)

// Client consumes the stock quote REST service:
// GET {base}/stock/{SYMBOL}/quote -> {price, changePercent, timestamp}.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type quoteResponse struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"changePercent"`
	Timestamp     string  `json:"timestamp"`
	Error         string  `json:"error,omitempty"`
}

func (c *Client) Quote(ctx context.Context, symbol string) (model.PriceSample, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return model.PriceSample{}, fmt.Errorf("quotes: empty symbol")
	}

	u := fmt.Sprintf("%s/stock/%s/quote", c.baseURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.PriceSample{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return model.PriceSample{}, fmt.Errorf("quotes: fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.PriceSample{}, fmt.Errorf("quotes: %s returned status %d", symbol, resp.StatusCode)
	}

	var q quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
		return model.PriceSample{}, fmt.Errorf("quotes: decode %s: %w", symbol, err)
	}
	if q.Error != "" {
		return model.PriceSample{}, fmt.Errorf("quotes: %s: %s", symbol, q.Error)
	}
	if q.Price <= 0 {
		return model.PriceSample{}, fmt.Errorf("quotes: %s: non-positive price %v", symbol, q.Price)
	}

	observed := time.Now()
	if ts, perr := time.Parse(time.RFC3339, q.Timestamp); perr == nil {
		observed = ts
	}

	return model.PriceSample{
		Symbol:     symbol,
		AssetType:  model.AssetStock,
		Price:      q.Price,
		Change24h:  q.ChangePercent,
		ObservedAt: observed,
	}, nil
}
