package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"btcinvest/internal/domain/model"
	"btcinvest/internal/domain/port"
)

const DefaultDepositEmailQueue = "new-deposit-confirmation-email-queue"

type SignUpInput struct {
	Name     string
	Email    string
	Password string
}

type AccountOptions struct {
	EmailQueue   string
	QueueTimeout time.Duration
}

type AccountUseCase struct {
	storage   port.AccountStoragePort
	hasher    port.PasswordHasher
	tokens    port.TokenIssuer
	publisher port.PublisherPort
	metrics   port.MetricsPort
	opts      AccountOptions
	logger    *slog.Logger
}

func NewAccountUseCase(storage port.AccountStoragePort, hasher port.PasswordHasher, tokens port.TokenIssuer, publisher port.PublisherPort, metrics port.MetricsPort, opts AccountOptions, logger *slog.Logger) *AccountUseCase {
	if opts.EmailQueue == "" {
		opts.EmailQueue = DefaultDepositEmailQueue
	}
	if opts.QueueTimeout <= 0 {
		opts.QueueTimeout = 2 * time.Second
	}
	return &AccountUseCase{
		storage:   storage,
		hasher:    hasher,
		tokens:    tokens,
		publisher: publisher,
		metrics:   metrics,
		opts:      opts,
		logger:    logger,
	}
}

func (uc *AccountUseCase) SignUp(ctx context.Context, in SignUpInput) (*model.Account, error) {
	const op = "usecase.SignUp"

	if len(in.Password) > model.MaxPasswordBytes {
		return nil, model.Errorf(model.KindValidation, op, "Password must be at most %d bytes", model.MaxPasswordBytes)
	}

	account, err := model.NewAccount(uuid.NewString(), in.Name, in.Email, "")
	if err != nil {
		return nil, err
	}

	existing, err := uc.storage.FindAccountByEmail(ctx, account.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if existing != nil {
		return nil, model.Errorf(model.KindEmailTaken, op, "Email already in use")
	}

	hash, err := uc.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	account.PasswordHash = hash

	if err := uc.storage.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	uc.logger.Info("account created", "account_id", account.ID)
	return account, nil
}

// SignIn does not tell an unknown email apart from a wrong password.
func (uc *AccountUseCase) SignIn(ctx context.Context, email, password string) (string, error) {
	const op = "usecase.SignIn"

	account, err := uc.storage.FindAccountByEmail(ctx, model.NormalizeEmail(email))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if account == nil || !uc.hasher.Verify(password, account.PasswordHash) {
		return "", model.Errorf(model.KindInvalidCredentials, op, "Invalid credentials")
	}

	token, err := uc.tokens.Issue(account.ID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

// Deposit credits the account and queues a confirmation e-mail. A failed publish does not undo the deposit.
func (uc *AccountUseCase) Deposit(ctx context.Context, userID string, amount float64) error {
	const op = "usecase.Deposit"

	cents, err := model.ToCents(amount)
	if err != nil {
		return err
	}

	account, err := uc.storage.AddToBalance(ctx, userID, cents)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if account == nil {
		return model.Errorf(model.KindAccountNotFound, op, "Account not found")
	}

	uc.logger.Info("deposit completed", "account_id", userID, "amount_cents", cents)

	confirmation := model.DepositConfirmation{
		UserEmail: account.Email,
		Subject:   fmt.Sprintf("Deposit of R$%s to %s", decimal.New(cents, -2).StringFixed(2), account.Name),
		Text:      "The requested amount was deposited in your account.",
	}
	if err := uc.publishConfirmation(ctx, confirmation); err != nil {
		uc.logger.Warn("confirmation mail was not queued", "account_id", userID, "error", err)
	}
	return nil
}

func (uc *AccountUseCase) publishConfirmation(ctx context.Context, c model.DepositConfirmation) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal confirmation: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, uc.opts.QueueTimeout)
	defer cancel()

	err = uc.publisher.Publish(ctx, uc.opts.EmailQueue, string(payload))
	uc.metrics.QueuePublish(uc.opts.EmailQueue, err)
	return err
}

// Balance returns the balance in BRL.
func (uc *AccountUseCase) Balance(ctx context.Context, userID string) (float64, error) {
	const op = "usecase.Balance"

	account, err := uc.storage.FindAccountByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if account == nil {
		uc.logger.Warn("account not found for balance", "account_id", userID)
		return 0, model.Errorf(model.KindAccountNotFound, op, "Account not found")
	}
	return account.BalanceBRL(), nil
}
