package origin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"btcinvest/internal/domain/model"
)

const DefaultSymbol = "BTC-BRL"

// HTTPOrigin reads the current quote from a tickers API:
// GET {base}/tickers?symbols=BTC-BRL -> [{"pair":"BTC-BRL","buy":"66751.3254","sell":"65250.1542",...}]
type HTTPOrigin struct {
	baseURL string
	symbol  string
	client  *http.Client
	log     *slog.Logger
}

type rawTicker struct {
	Pair string `json:"pair"`
	High string `json:"high"`
	Low  string `json:"low"`
	Vol  string `json:"vol"`
	Last string `json:"last"`
	Buy  string `json:"buy"`
	Sell string `json:"sell"`
	Open string `json:"open"`
	Date int64  `json:"date"`
}

func NewHTTPOrigin(baseURL, symbol string, timeout time.Duration, log *slog.Logger) *HTTPOrigin {
	if symbol == "" {
		symbol = DefaultSymbol
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPOrigin{
		baseURL: strings.TrimRight(baseURL, "/"),
		symbol:  symbol,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (o *HTTPOrigin) Name() string { return "http-tickers" }

// FetchCurrentPrice never retries; every failure is reported as model.ErrOriginUnavailable.
func (o *HTTPOrigin) FetchCurrentPrice(ctx context.Context) (model.PriceQuote, error) {
	const op = "origin.FetchCurrentPrice"

	endpoint := fmt.Sprintf("%s/tickers?symbols=%s", o.baseURL, url.QueryEscape(o.symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.PriceQuote{}, model.NewError(model.KindOriginUnavailable, op, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return model.PriceQuote{}, model.NewError(model.KindOriginUnavailable, op, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return model.PriceQuote{}, model.NewError(model.KindOriginUnavailable, op, fmt.Errorf("unexpected status code %d", resp.StatusCode))
	}

	var tickers []rawTicker
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&tickers); err != nil {
		return model.PriceQuote{}, model.NewError(model.KindOriginUnavailable, op, fmt.Errorf("failed to decode response: %w", err))
	}
	if len(tickers) == 0 {
		return model.PriceQuote{}, model.NewError(model.KindOriginUnavailable, op, fmt.Errorf("empty ticker list for %s", o.symbol))
	}

	quote, err := parseTicker(tickers[0])
	if err != nil {
		return model.PriceQuote{}, model.NewError(model.KindOriginUnavailable, op, err)
	}

	o.log.Debug("fetched price from origin", "symbol", o.symbol, "buy", quote.PurchasePrice, "sell", quote.SalePrice)
	return quote, nil
}

func parseTicker(t rawTicker) (model.PriceQuote, error) {
	buy, err := strconv.ParseFloat(strings.TrimSpace(t.Buy), 64)
	if err != nil {
		return model.PriceQuote{}, fmt.Errorf("received invalid prices: purchase %q / sale %q", t.Buy, t.Sell)
	}
	sell, err := strconv.ParseFloat(strings.TrimSpace(t.Sell), 64)
	if err != nil {
		return model.PriceQuote{}, fmt.Errorf("received invalid prices: purchase %q / sale %q", t.Buy, t.Sell)
	}

	q := model.PriceQuote{PurchasePrice: buy, SalePrice: sell}
	if err := q.Validate(); err != nil {
		return model.PriceQuote{}, fmt.Errorf("received invalid prices: %w", err)
	}
	return q, nil
}
