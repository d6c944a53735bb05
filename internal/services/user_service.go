package services

import (
	"context"
	"encoding/json"
	"slices"

	"chatbill/internal/config"
	"chatbill/internal/models/response_models"
	"chatbill/internal/repositories"
	"chatbill/pkg/utils"
)

// UpdatableField is the closed set of preference fields a client may change.
// Anything outside this enum is rejected at the boundary; column names are
// never built from request input.
type UpdatableField string

const (
	FieldUserName      UpdatableField = "user_name"
	FieldDarkMode      UpdatableField = "darkmode"
	FieldModel         UpdatableField = "model"
	FieldInputLength   UpdatableField = "input_length"
	FieldHistoryLength UpdatableField = "history_length"
	FieldSortOrder     UpdatableField = "sort_order"
	FieldMonthlyCost   UpdatableField = "monthlycost"
)

type UserServiceInterface interface {
	UpdateField(ctx context.Context, email string, field UpdatableField, value json.RawMessage) error
	GetUserConfig(ctx context.Context, email string) (*response_models.UserConfig, error)
}

type UserService struct {
	accountRepo repositories.AccountRepository
}

func NewUserService(accountRepo repositories.AccountRepository) UserServiceInterface {
	return &UserService{
		accountRepo: accountRepo,
	}
}

func (u *UserService) UpdateField(ctx context.Context, email string, field UpdatableField, value json.RawMessage) error {
	switch field {
	case FieldUserName:
		return u.setString(ctx, email, "user_name", value)
	case FieldDarkMode:
		var v bool
		if err := json.Unmarshal(value, &v); err != nil {
			return utils.ErrUnknownField
		}
		return u.update(ctx, email, map[string]interface{}{"is_dark_mode": v})
	case FieldModel:
		var v string
		if err := json.Unmarshal(value, &v); err != nil || !slices.Contains(config.AvailableModels, v) {
			return utils.ErrUnknownField
		}
		return u.update(ctx, email, map[string]interface{}{"selected_model": v})
	case FieldInputLength:
		return u.setInt(ctx, email, "input_text_length", value)
	case FieldHistoryLength:
		return u.setInt(ctx, email, "chat_history_max_length", value)
	case FieldSortOrder:
		return u.setString(ctx, email, "sort_order", value)
	case FieldMonthlyCost:
		// Usage charges accumulate; the reconciler resets them on billing.
		var delta int64
		if err := json.Unmarshal(value, &delta); err != nil {
			return utils.ErrUnknownField
		}
		if err := u.accountRepo.IncrementMonthlyCost(ctx, email, delta); err != nil {
			return utils.ErrDatabaseError
		}
		return nil
	default:
		return utils.ErrUnknownField
	}
}

func (u *UserService) setString(ctx context.Context, email, column string, value json.RawMessage) error {
	var v string
	if err := json.Unmarshal(value, &v); err != nil {
		return utils.ErrUnknownField
	}
	return u.update(ctx, email, map[string]interface{}{column: v})
}

func (u *UserService) setInt(ctx context.Context, email, column string, value json.RawMessage) error {
	var v int
	if err := json.Unmarshal(value, &v); err != nil || v < 0 {
		return utils.ErrUnknownField
	}
	return u.update(ctx, email, map[string]interface{}{column: v})
}

func (u *UserService) update(ctx context.Context, email string, updates map[string]interface{}) error {
	if err := u.accountRepo.UpdatePreferences(ctx, email, updates); err != nil {
		return utils.ErrDatabaseError
	}
	return nil
}

func (u *UserService) GetUserConfig(ctx context.Context, email string) (*response_models.UserConfig, error) {
	account, err := u.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if account == nil {
		return nil, utils.ErrAccountNotFound
	}

	return &response_models.UserConfig{
		UserName:             account.UserName,
		IsDarkMode:           account.IsDarkMode,
		SelectedModel:        account.SelectedModel,
		ChatHistoryMaxLength: account.ChatHistoryMaxLength,
		InputTextLength:      account.InputTextLength,
		MonthlyCost:          account.MonthlyCost,
		Plan:                 string(account.Plan),
		SortOrder:            account.SortOrder,
	}, nil
}
