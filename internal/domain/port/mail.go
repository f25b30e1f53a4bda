package port

import (
	"context"

	"btcinvest/internal/domain/model"
)

type MailerPort interface {
	SendDepositConfirmation(ctx context.Context, msg model.DepositConfirmation) error
}
