package port

import (
	"context"

	"btcinvest/internal/domain/model"
)

// AccountStoragePort persists accounts. Finders return (nil, nil) when nothing matches.
type AccountStoragePort interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	FindAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	FindAccountByID(ctx context.Context, id string) (*model.Account, error)
	// AddToBalance atomically adds amountCents and returns the updated account, or nil if id is unknown.
	AddToBalance(ctx context.Context, id string, amountCents int64) (*model.Account, error)
	Ping(ctx context.Context) error
	Close() error
}
