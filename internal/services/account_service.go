package services

import (
	"context"
	"time"

	"chatbill/internal/config"
	"chatbill/internal/models/db_models"
	"chatbill/internal/models/request_models"
	"chatbill/internal/repositories"
	mem "chatbill/pkg/memcache"
	"chatbill/pkg/utils"

	"go.uber.org/zap"
)

type AccountServiceInterface interface {
	CreateAccount(ctx context.Context, request request_models.SignUpRequest) error
	Login(ctx context.Context, request request_models.LoginRequest) (string, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	UnlockAccount(ctx context.Context, token string) error
}

type AccountService struct {
	accountRepo repositories.AccountRepository
	mailService IMailService
	tokens      mem.TokenStore
	logger      *zap.Logger
}

func NewAccountService(
	accountRepo repositories.AccountRepository,
	mailService IMailService,
	tokens mem.TokenStore,
	logger *zap.Logger,
) AccountServiceInterface {
	return &AccountService{
		accountRepo: accountRepo,
		mailService: mailService,
		tokens:      tokens,
		logger:      logger,
	}
}

func (a *AccountService) CreateAccount(ctx context.Context, request request_models.SignUpRequest) error {
	existingAccount, err := a.accountRepo.FindByEmail(ctx, request.Email)
	if err != nil {
		return utils.ErrDatabaseError
	}
	if existingAccount != nil {
		return utils.ErrEmailAlreadyExists
	}

	hashedPassword, err := utils.HashPassword(request.Password)
	if err != nil {
		return utils.ErrDatabaseError
	}

	// New accounts start on the Free tier with auto-billing disabled; billing
	// state only changes once a payment method is set up.
	newAccount := &db_models.Account{
		UserName:             request.UserName,
		Email:                request.Email,
		PasswordHash:         hashedPassword,
		Role:                 "user",
		Plan:                 db_models.PlanFree,
		PaymentStatus:        false,
		SelectedModel:        config.DefaultModel,
		ChatHistoryMaxLength: config.DefaultHistoryLength,
		InputTextLength:      config.DefaultInputLength,
		SortOrder:            config.DefaultSortOrder,
	}

	if err := a.accountRepo.Insert(ctx, newAccount); err != nil {
		return utils.ErrDatabaseError
	}

	return nil
}

func (a *AccountService) Login(ctx context.Context, request request_models.LoginRequest) (string, error) {
	account, err := a.accountRepo.FindByEmail(ctx, request.Email)
	if err != nil {
		return "", utils.ErrDatabaseError
	}
	if account == nil {
		return "", utils.ErrAccountNotFound
	}

	if a.isLockedOut(account) {
		return "", utils.ErrAccountLocked
	}

	if err := utils.ComparePasswords(account.PasswordHash, request.Password); err != nil {
		return "", a.recordFailedAttempt(ctx, account)
	}

	if err := a.accountRepo.ResetLoginAttempts(ctx, account.Email); err != nil {
		a.logger.Warn("failed to reset login attempts",
			zap.String("email", account.Email), zap.Error(err))
	}

	token, err := utils.CreateToken(account.ID, account.Email, account.Role)
	if err != nil {
		return "", utils.ErrInvalidCredentials
	}

	return token, nil
}

func (a *AccountService) isLockedOut(account *db_models.Account) bool {
	if account.LoginAttempts < config.MaxLoginAttempts || account.LastAttemptTime == nil {
		return false
	}
	lockedUntil := time.Unix(*account.LastAttemptTime, 0).Add(config.LockoutTime)
	return time.Now().Before(lockedUntil)
}

func (a *AccountService) recordFailedAttempt(ctx context.Context, account *db_models.Account) error {
	attempts := account.LoginAttempts + 1
	if err := a.accountRepo.RecordFailedLogin(ctx, account.Email, attempts, time.Now()); err != nil {
		return utils.ErrDatabaseError
	}

	if attempts >= config.MaxLoginAttempts {
		a.sendUnlockMail(account.Email)
		return utils.ErrAccountLocked
	}
	return utils.ErrInvalidCredentials
}

func (a *AccountService) sendUnlockMail(email string) {
	token, err := utils.GenerateSecureToken(32)
	if err != nil {
		a.logger.Error("failed to generate unlock token", zap.Error(err))
		return
	}
	a.tokens.Set(token, email, config.LockoutTime)

	if err := a.mailService.SendUnlockNotice(email, token); err != nil {
		a.logger.Warn("unlock notice not sent", zap.String("email", email), zap.Error(err))
	}
}

func (a *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	account, err := a.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		return utils.ErrDatabaseError
	}
	if account == nil {
		// Do not reveal whether the email is registered.
		return nil
	}

	token, err := utils.GenerateSecureToken(32)
	if err != nil {
		return utils.ErrDatabaseError
	}
	a.tokens.Set(token, email, config.PasswordResetTTL)

	if err := a.mailService.SendPasswordReset(email, token); err != nil {
		a.logger.Warn("password reset mail not sent", zap.String("email", email), zap.Error(err))
	}
	return nil
}

func (a *AccountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	email := a.tokens.Consume(token)
	if email == "" {
		return utils.ErrInvalidResetToken
	}

	hashedPassword, err := utils.HashPassword(newPassword)
	if err != nil {
		return utils.ErrDatabaseError
	}

	if err := a.accountRepo.UpdatePassword(ctx, email, hashedPassword); err != nil {
		return utils.ErrDatabaseError
	}
	return a.accountRepo.ResetLoginAttempts(ctx, email)
}

func (a *AccountService) UnlockAccount(ctx context.Context, token string) error {
	email := a.tokens.Consume(token)
	if email == "" {
		return utils.ErrInvalidResetToken
	}
	if err := a.accountRepo.ResetLoginAttempts(ctx, email); err != nil {
		return utils.ErrDatabaseError
	}
	return nil
}
