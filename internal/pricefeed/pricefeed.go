// Package pricefeed supplies the fiat quote shown alongside the unified
// balance. Quotes are view data only and never feed ledger arithmetic.
package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"creditbridge/internal/domain"
	dErrors "creditbridge/pkg/domain-errors"
)

const defaultTimeout = 5 * time.Second

// HTTPFeed queries a quote endpoint returning JSON
// {"currency":"USD","price":"31.41","as_of":"..."}.
type HTTPFeed struct {
	baseURL  string
	currency string
	client   *http.Client
}

type Option func(*HTTPFeed)

func WithHTTPClient(c *http.Client) Option {
	return func(f *HTTPFeed) { f.client = c }
}

func WithCurrency(currency string) Option {
	return func(f *HTTPFeed) { f.currency = currency }
}

func NewHTTPFeed(baseURL string, opts ...Option) (*HTTPFeed, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("price feed URL is required")
	}
	f := &HTTPFeed{
		baseURL:  baseURL,
		currency: "USD",
		client:   &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

type quoteResponse struct {
	Currency string    `json:"currency"`
	Price    string    `json:"price"`
	AsOf     time.Time `json:"as_of"`
}

func (f *HTTPFeed) Snapshot(ctx context.Context) (domain.PriceSnapshot, error) {
	url := fmt.Sprintf("%s/price?currency=%s", f.baseURL, f.currency)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.PriceSnapshot{}, dErrors.Wrap(err, dErrors.CodeInternal, "build quote request")
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return domain.PriceSnapshot{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "price feed unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.PriceSnapshot{}, dErrors.Newf(dErrors.CodeUnavailable, "price feed returned %d", resp.StatusCode)
	}

	var quote quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return domain.PriceSnapshot{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "decode quote")
	}
	price, err := decimal.NewFromString(quote.Price)
	if err != nil {
		return domain.PriceSnapshot{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "parse quote price")
	}
	asOf := quote.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}
	return domain.PriceSnapshot{
		Currency: quote.Currency,
		Price:    price,
		AsOf:     asOf,
	}, nil
}

// MockFeed serves a fixed quote with configurable latency, for development
// and tests.
type MockFeed struct {
	Currency string
	Price    decimal.Decimal
	Latency  time.Duration
}

func (f MockFeed) Snapshot(_ context.Context) (domain.PriceSnapshot, error) {
	time.Sleep(f.Latency)
	currency := f.Currency
	if currency == "" {
		currency = "USD"
	}
	return domain.PriceSnapshot{
		Currency: currency,
		Price:    f.Price,
		AsOf:     time.Now(),
	}, nil
}
