package model

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// MaxDepositBRL caps a single deposit; it keeps the cents value far below the int64 range.
	MaxDepositBRL = 1_000_000_000

	// MaxPasswordBytes is the longest password bcrypt accepts.
	MaxPasswordBytes = 72
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type Account struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	BalanceCents int64     `json:"-" db:"balance_cents"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// NewAccount builds an account with a zero balance. The email is normalised to lower case.
func NewAccount(id, name, email, passwordHash string) (*Account, error) {
	email = NormalizeEmail(email)
	if !ValidEmail(email) {
		return nil, Errorf(KindValidation, "model.NewAccount", "Invalid email")
	}
	now := time.Now().UTC()
	return &Account{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// BalanceBRL converts the stored cents into reais.
func (a *Account) BalanceBRL() float64 {
	return decimal.New(a.BalanceCents, -2).InexactFloat64()
}

// ToCents converts a BRL amount into integer cents, rounding half away from zero.
// The result is always in (0, MaxDepositBRL*100].
func ToCents(amount float64) (int64, error) {
	const op = "model.ToCents"

	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, Errorf(KindValidation, op, "Amount must be a number")
	}
	cents := decimal.NewFromFloat(amount).Shift(2).Round(0)
	if cents.Sign() <= 0 {
		return 0, Errorf(KindValidation, op, "Amount must be greater than zero")
	}
	if cents.GreaterThan(decimal.NewFromInt(MaxDepositBRL).Shift(2)) {
		return 0, Errorf(KindValidation, op, "Amount must not exceed %d", MaxDepositBRL)
	}
	return cents.IntPart(), nil
}

// DepositConfirmation is queued after a deposit and delivered by the mail dispatcher.
type DepositConfirmation struct {
	UserEmail string `json:"userEmail"`
	Subject   string `json:"subject"`
	Text      string `json:"text"`
}
