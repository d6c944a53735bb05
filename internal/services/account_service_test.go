package services

import (
	"context"
	"testing"
	"time"

	"chatbill/internal/config"
	"chatbill/internal/models/db_models"
	"chatbill/internal/models/request_models"
	mem "chatbill/pkg/memcache"
	"chatbill/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAccountService(repo *fakeAccountRepo, mail *fakeMail) AccountServiceInterface {
	return NewAccountService(repo, mail, mem.NewTokens(), zap.NewNop())
}

func seedAccount(t *testing.T, repo *fakeAccountRepo, email, password string) *db_models.Account {
	t.Helper()
	hash, err := utils.HashPassword(password)
	require.NoError(t, err)
	acc := &db_models.Account{
		Email:        email,
		PasswordHash: hash,
		Role:         "user",
		Plan:         db_models.PlanFree,
	}
	repo.accounts[email] = acc
	return acc
}

func TestCreateAccountDefaults(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := newTestAccountService(repo, &fakeMail{})

	err := svc.CreateAccount(context.Background(), request_models.SignUpRequest{
		UserName: "alice",
		Email:    "alice@example.com",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)

	acc := repo.accounts["alice@example.com"]
	require.NotNil(t, acc)
	assert.Equal(t, db_models.PlanFree, acc.Plan)
	assert.False(t, acc.PaymentStatus)
	assert.Equal(t, "user", acc.Role)
	assert.Equal(t, config.DefaultModel, acc.SelectedModel)
	assert.Equal(t, config.DefaultHistoryLength, acc.ChatHistoryMaxLength)
	assert.Equal(t, config.DefaultInputLength, acc.InputTextLength)

	assert.NotEqual(t, "s3cret-pass", acc.PasswordHash)
	assert.NoError(t, utils.ComparePasswords(acc.PasswordHash, "s3cret-pass"))
}

func TestCreateAccountDuplicateEmail(t *testing.T) {
	repo := newFakeAccountRepo()
	seedAccount(t, repo, "alice@example.com", "whatever")
	svc := newTestAccountService(repo, &fakeMail{})

	err := svc.CreateAccount(context.Background(), request_models.SignUpRequest{
		UserName: "alice2",
		Email:    "alice@example.com",
		Password: "another",
	})
	assert.ErrorIs(t, err, utils.ErrEmailAlreadyExists)
}

func TestLoginSuccessResetsAttempts(t *testing.T) {
	repo := newFakeAccountRepo()
	acc := seedAccount(t, repo, "bob@example.com", "correct-horse")
	acc.LoginAttempts = 2
	svc := newTestAccountService(repo, &fakeMail{})

	token, err := svc.Login(context.Background(), request_models.LoginRequest{
		Email:    "bob@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Zero(t, acc.LoginAttempts)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newFakeAccountRepo()
	acc := seedAccount(t, repo, "bob@example.com", "correct-horse")
	svc := newTestAccountService(repo, &fakeMail{})

	_, err := svc.Login(context.Background(), request_models.LoginRequest{
		Email:    "bob@example.com",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, utils.ErrInvalidCredentials)
	assert.Equal(t, 1, acc.LoginAttempts)
}

func TestLoginLockoutAfterMaxAttempts(t *testing.T) {
	repo := newFakeAccountRepo()
	seedAccount(t, repo, "carol@example.com", "correct-horse")
	mail := &fakeMail{}
	svc := newTestAccountService(repo, mail)

	var err error
	for i := 0; i < config.MaxLoginAttempts; i++ {
		_, err = svc.Login(context.Background(), request_models.LoginRequest{
			Email:    "carol@example.com",
			Password: "wrong",
		})
	}
	assert.ErrorIs(t, err, utils.ErrAccountLocked)
	require.Len(t, mail.unlockTokens, 1)

	// Even the right password is rejected while the lockout holds.
	_, err = svc.Login(context.Background(), request_models.LoginRequest{
		Email:    "carol@example.com",
		Password: "correct-horse",
	})
	assert.ErrorIs(t, err, utils.ErrAccountLocked)
}

func TestLoginLockoutExpires(t *testing.T) {
	repo := newFakeAccountRepo()
	acc := seedAccount(t, repo, "dave@example.com", "correct-horse")
	acc.LoginAttempts = config.MaxLoginAttempts
	stale := time.Now().Add(-config.LockoutTime - time.Minute).Unix()
	acc.LastAttemptTime = &stale
	svc := newTestAccountService(repo, &fakeMail{})

	token, err := svc.Login(context.Background(), request_models.LoginRequest{
		Email:    "dave@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestLoginUnknownAccount(t *testing.T) {
	svc := newTestAccountService(newFakeAccountRepo(), &fakeMail{})

	_, err := svc.Login(context.Background(), request_models.LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	assert.ErrorIs(t, err, utils.ErrAccountNotFound)
}

func TestPasswordResetFlow(t *testing.T) {
	repo := newFakeAccountRepo()
	acc := seedAccount(t, repo, "erin@example.com", "old-pass")
	mail := &fakeMail{}
	svc := newTestAccountService(repo, mail)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "erin@example.com"))
	require.Len(t, mail.resetTokens, 1)
	token := mail.resetTokens[0]

	require.NoError(t, svc.ResetPassword(context.Background(), token, "new-pass"))
	assert.NoError(t, utils.ComparePasswords(acc.PasswordHash, "new-pass"))

	// The token is single-use.
	err := svc.ResetPassword(context.Background(), token, "third-pass")
	assert.ErrorIs(t, err, utils.ErrInvalidResetToken)
}

func TestRequestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	mail := &fakeMail{}
	svc := newTestAccountService(newFakeAccountRepo(), mail)

	// No error and no mail, so callers cannot probe for registered emails.
	assert.NoError(t, svc.RequestPasswordReset(context.Background(), "nobody@example.com"))
	assert.Empty(t, mail.resetTokens)
}

func TestUnlockAccountClearsLockout(t *testing.T) {
	repo := newFakeAccountRepo()
	seedAccount(t, repo, "frank@example.com", "correct-horse")
	mail := &fakeMail{}
	svc := newTestAccountService(repo, mail)

	for i := 0; i < config.MaxLoginAttempts; i++ {
		_, _ = svc.Login(context.Background(), request_models.LoginRequest{
			Email:    "frank@example.com",
			Password: "wrong",
		})
	}
	require.Len(t, mail.unlockTokens, 1)

	require.NoError(t, svc.UnlockAccount(context.Background(), mail.unlockTokens[0]))

	token, err := svc.Login(context.Background(), request_models.LoginRequest{
		Email:    "frank@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestUnlockAccountBadToken(t *testing.T) {
	svc := newTestAccountService(newFakeAccountRepo(), &fakeMail{})
	err := svc.UnlockAccount(context.Background(), "bogus")
	assert.ErrorIs(t, err, utils.ErrInvalidResetToken)
}
