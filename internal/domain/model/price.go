package model

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// PriceCacheKey is the well-known cache key for the current BTC quote.
const PriceCacheKey = "btc-price"

// PriceQuote is the current buy/sell quote. Values are kept unrounded until presentation.
type PriceQuote struct {
	PurchasePrice float64 `json:"purchasePrice"`
	SalePrice     float64 `json:"salePrice"`
}

// Validate reports whether both prices are finite numbers.
func (q PriceQuote) Validate() error {
	if !isFinite(q.PurchasePrice) {
		return fmt.Errorf("purchase price is not a finite number: %v", q.PurchasePrice)
	}
	if !isFinite(q.SalePrice) {
		return fmt.Errorf("sale price is not a finite number: %v", q.SalePrice)
	}
	return nil
}

// Rounded returns the quote with both prices rounded half-up to two decimals.
func (q PriceQuote) Rounded() PriceQuote {
	return PriceQuote{
		PurchasePrice: Round2(q.PurchasePrice),
		SalePrice:     Round2(q.SalePrice),
	}
}

// CachePopulationMessage is published on a cache miss and written verbatim into the cache by the populator.
type CachePopulationMessage struct {
	Key           string  `json:"key"`
	PurchasePrice float64 `json:"purchasePrice"`
	SalePrice     float64 `json:"salePrice"`
}

func NewCachePopulationMessage(key string, q PriceQuote) CachePopulationMessage {
	return CachePopulationMessage{
		Key:           key,
		PurchasePrice: q.PurchasePrice,
		SalePrice:     q.SalePrice,
	}
}

func (m CachePopulationMessage) Quote() PriceQuote {
	return PriceQuote{PurchasePrice: m.PurchasePrice, SalePrice: m.SalePrice}
}

// cachedQuote uses pointers so a payload missing a price is told apart from a zero price.
type cachedQuote struct {
	Key           string   `json:"key"`
	PurchasePrice *float64 `json:"purchasePrice"`
	SalePrice     *float64 `json:"salePrice"`
}

// ParseCachePopulationMessage decodes a queue payload or cached value.
// The key is not required here; callers that need it check it themselves.
func ParseCachePopulationMessage(raw string) (CachePopulationMessage, error) {
	var cq cachedQuote
	if err := json.Unmarshal([]byte(raw), &cq); err != nil {
		return CachePopulationMessage{}, fmt.Errorf("failed to unmarshal price payload: %w", err)
	}
	if cq.PurchasePrice == nil || cq.SalePrice == nil {
		return CachePopulationMessage{}, fmt.Errorf("price payload is missing purchasePrice or salePrice")
	}

	msg := CachePopulationMessage{
		Key:           cq.Key,
		PurchasePrice: *cq.PurchasePrice,
		SalePrice:     *cq.SalePrice,
	}
	if err := msg.Quote().Validate(); err != nil {
		return CachePopulationMessage{}, err
	}
	return msg, nil
}

// Round2 rounds half away from zero to two decimals on the shortest decimal form of v,
// so 1.005 becomes 1.01 rather than the 1.00 a naive float multiply would give.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
