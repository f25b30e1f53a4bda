package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btcinvest/internal/domain/model"
)

type accountFixture struct {
	storage   *fakeStorage
	publisher *fakePublisher
	uc        *AccountUseCase
}

func newAccountFixture() *accountFixture {
	f := &accountFixture{storage: newFakeStorage(), publisher: &fakePublisher{}}
	f.uc = NewAccountUseCase(f.storage, plainHasher{}, fakeTokens{}, f.publisher, nopMetrics{}, AccountOptions{}, discardLogger())
	return f
}

func (f *accountFixture) signUp(t *testing.T) *model.Account {
	t.Helper()
	acc, err := f.uc.SignUp(context.Background(), SignUpInput{Name: "Ana", Email: " Ana@Example.com ", Password: "password123"})
	require.NoError(t, err)
	return acc
}

func TestSignUp(t *testing.T) {
	f := newAccountFixture()
	acc := f.signUp(t)

	assert.NotEmpty(t, acc.ID)
	assert.Equal(t, "ana@example.com", acc.Email)
	assert.Equal(t, "hashed:password123", acc.PasswordHash)
	assert.Zero(t, acc.BalanceCents)
	assert.Equal(t, 1, f.storage.creates)
}

func TestSignUp_EmailTaken(t *testing.T) {
	f := newAccountFixture()
	f.signUp(t)

	_, err := f.uc.SignUp(context.Background(), SignUpInput{Name: "Other", Email: "ana@example.com", Password: "password123"})
	assert.ErrorIs(t, err, model.ErrEmailTaken)
	assert.Equal(t, 1, f.storage.creates)
}

func TestSignUp_InvalidEmail(t *testing.T) {
	f := newAccountFixture()

	_, err := f.uc.SignUp(context.Background(), SignUpInput{Name: "Ana", Email: "not-an-email", Password: "password123"})
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Zero(t, f.storage.creates)
}

func TestSignUp_PasswordTooLong(t *testing.T) {
	f := newAccountFixture()

	// 40 runes but 80 bytes, past what bcrypt can hash.
	_, err := f.uc.SignUp(context.Background(), SignUpInput{Name: "Ana", Email: "ana@example.com", Password: strings.Repeat("é", 40)})
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Zero(t, f.storage.creates)
}

func TestSignIn(t *testing.T) {
	f := newAccountFixture()
	acc := f.signUp(t)

	token, err := f.uc.SignIn(context.Background(), "ANA@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "token-for-"+acc.ID, token)
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	f := newAccountFixture()
	f.signUp(t)

	_, err := f.uc.SignIn(context.Background(), "ana@example.com", "wrong-password")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	_, err = f.uc.SignIn(context.Background(), "nobody@example.com", "password123")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestSignIn_StorageError(t *testing.T) {
	f := newAccountFixture()
	f.storage.findErr = errors.New("db down")

	_, err := f.uc.SignIn(context.Background(), "ana@example.com", "password123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestDeposit(t *testing.T) {
	f := newAccountFixture()
	acc := f.signUp(t)

	require.NoError(t, f.uc.Deposit(context.Background(), acc.ID, 10.505))

	balance, err := f.uc.Balance(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.51, balance)

	require.Len(t, f.publisher.msgs, 1)
	assert.Equal(t, "new-deposit-confirmation-email-queue", f.publisher.msgs[0].queue)

	var c model.DepositConfirmation
	require.NoError(t, json.Unmarshal([]byte(f.publisher.msgs[0].payload), &c))
	assert.Equal(t, "ana@example.com", c.UserEmail)
	assert.Equal(t, "Deposit of R$10.51 to Ana", c.Subject)
}

func TestDeposit_PublishFailureDoesNotFail(t *testing.T) {
	f := newAccountFixture()
	acc := f.signUp(t)
	f.publisher.err = errors.New("broker down")

	require.NoError(t, f.uc.Deposit(context.Background(), acc.ID, 5))

	balance, err := f.uc.Balance(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, balance)
}

func TestDeposit_Errors(t *testing.T) {
	f := newAccountFixture()
	acc := f.signUp(t)

	assert.ErrorIs(t, f.uc.Deposit(context.Background(), acc.ID, 0), model.ErrValidation)
	assert.ErrorIs(t, f.uc.Deposit(context.Background(), acc.ID, -3), model.ErrValidation)
	assert.ErrorIs(t, f.uc.Deposit(context.Background(), acc.ID, 0.001), model.ErrValidation)
	assert.ErrorIs(t, f.uc.Deposit(context.Background(), "missing", 10), model.ErrAccountNotFound)
	assert.Empty(t, f.publisher.msgs)
}

func TestDeposit_AmountTooLarge(t *testing.T) {
	f := newAccountFixture()
	acc := f.signUp(t)

	for _, amount := range []float64{1e17, 1e19, 1e300} {
		assert.ErrorIs(t, f.uc.Deposit(context.Background(), acc.ID, amount), model.ErrValidation, amount)
	}

	balance, err := f.uc.Balance(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.Zero(t, balance)
	assert.Empty(t, f.publisher.msgs)
}

func TestBalance_NotFound(t *testing.T) {
	f := newAccountFixture()

	_, err := f.uc.Balance(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrAccountNotFound)
}
