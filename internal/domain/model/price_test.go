package model

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound2(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{537963.391, 537963.39},
		{539677.66989998, 539677.67},
		{66751.3254, 66751.33},
		{65250.1542, 65250.15},
		{1.005, 1.01},
		{2.675, 2.68},
		{-1.005, -1.01},
		{10, 10},
		{0, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Round2(tc.in), "Round2(%v)", tc.in)
	}
}

func TestParseCachePopulationMessage(t *testing.T) {
	msg, err := ParseCachePopulationMessage(`{"key":"btc-price","purchasePrice":537963.391,"salePrice":539677.66989998}`)
	require.NoError(t, err)
	assert.Equal(t, "btc-price", msg.Key)
	assert.Equal(t, 537963.391, msg.PurchasePrice)
	assert.Equal(t, 539677.66989998, msg.SalePrice)
}

func TestParseCachePopulationMessage_WithoutKey(t *testing.T) {
	msg, err := ParseCachePopulationMessage(`{"purchasePrice":1.5,"salePrice":2}`)
	require.NoError(t, err)
	assert.Empty(t, msg.Key)
	assert.Equal(t, PriceQuote{PurchasePrice: 1.5, SalePrice: 2}, msg.Quote())
}

func TestParseCachePopulationMessage_Invalid(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":      `not-json`,
		"missing sale":  `{"key":"btc-price","purchasePrice":1}`,
		"missing buy":   `{"key":"btc-price","salePrice":1}`,
		"string prices": `{"key":"btc-price","purchasePrice":"abc","salePrice":"1"}`,
		"empty":         ``,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCachePopulationMessage(raw)
			assert.Error(t, err)
		})
	}
}

func TestPriceQuote_Validate(t *testing.T) {
	assert.NoError(t, PriceQuote{PurchasePrice: 1, SalePrice: 2}.Validate())
	assert.Error(t, PriceQuote{PurchasePrice: math.NaN(), SalePrice: 2}.Validate())
	assert.Error(t, PriceQuote{PurchasePrice: 1, SalePrice: math.Inf(1)}.Validate())
}

func TestCachePopulationMessage_RoundTripKeepsRounding(t *testing.T) {
	quotes := []PriceQuote{
		{PurchasePrice: 66751.3254, SalePrice: 65250.1542},
		{PurchasePrice: 0.1 + 0.2, SalePrice: 1e-9},
		{PurchasePrice: 123456789.987654321, SalePrice: 42},
	}
	for _, q := range quotes {
		raw, err := json.Marshal(NewCachePopulationMessage(PriceCacheKey, q))
		require.NoError(t, err)

		parsed, err := ParseCachePopulationMessage(string(raw))
		require.NoError(t, err)
		assert.Equal(t, q.Rounded(), parsed.Quote().Rounded())
	}
}

func TestError_Is(t *testing.T) {
	err := NewError(KindOriginUnavailable, "origin.Fetch", errors.New("boom"))
	wrapped := errors.Join(errors.New("outer"), err)

	assert.ErrorIs(t, err, ErrOriginUnavailable)
	assert.ErrorIs(t, wrapped, ErrOriginUnavailable)
	assert.NotErrorIs(t, err, ErrCacheUnavailable)
	assert.Equal(t, KindOriginUnavailable, KindOf(wrapped))
	assert.Contains(t, err.Error(), "origin.Fetch")
	assert.Contains(t, err.Error(), "boom")
}

func TestToCents(t *testing.T) {
	for amount, want := range map[float64]int64{
		10.5:          1050,
		1.005:         101,
		100:           10000,
		MaxDepositBRL: MaxDepositBRL * 100,
	} {
		got, err := ToCents(amount)
		require.NoError(t, err)
		assert.Equal(t, want, got, amount)
	}

	a := &Account{BalanceCents: 12345}
	assert.Equal(t, 123.45, a.BalanceBRL())
}

func TestToCents_OutOfRange(t *testing.T) {
	for _, amount := range []float64{0, -1, 0.001, MaxDepositBRL + 0.01, 1e17, 1e19, 1e300, math.Inf(1), math.NaN()} {
		cents, err := ToCents(amount)
		assert.ErrorIs(t, err, ErrValidation, amount)
		assert.Zero(t, cents)
	}
}

func TestNewAccount(t *testing.T) {
	acc, err := NewAccount("id-1", "Ana", " Ana@Example.com ", "hash")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", acc.Email)
	assert.Zero(t, acc.BalanceCents)

	_, err = NewAccount("id-2", "Bob", "not-an-email", "hash")
	assert.ErrorIs(t, err, ErrValidation)
}
