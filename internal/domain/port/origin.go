package port

import (
	"context"

	"btcinvest/internal/domain/model"
)

// PriceOriginPort fetches the current quote from an upstream source.
type PriceOriginPort interface {
	FetchCurrentPrice(ctx context.Context) (model.PriceQuote, error)
	Name() string
}
