package services

import (
	"context"
	"encoding/json"
	"testing"

	"chatbill/internal/models/db_models"
	"chatbill/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateFieldDarkMode(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := NewUserService(repo)

	err := svc.UpdateField(context.Background(), "alice@example.com", FieldDarkMode, json.RawMessage(`true`))
	require.NoError(t, err)
	assert.Equal(t, true, repo.prefs["alice@example.com"]["is_dark_mode"])
}

func TestUpdateFieldModelValidated(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := NewUserService(repo)

	err := svc.UpdateField(context.Background(), "alice@example.com", FieldModel, json.RawMessage(`"gpt-4"`))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4", repo.prefs["alice@example.com"]["selected_model"])

	err = svc.UpdateField(context.Background(), "alice@example.com", FieldModel, json.RawMessage(`"llama-unknown"`))
	assert.ErrorIs(t, err, utils.ErrUnknownField)
}

func TestUpdateFieldMonthlyCostAccumulates(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := NewUserService(repo)

	require.NoError(t, svc.UpdateField(context.Background(), "bob@example.com", FieldMonthlyCost, json.RawMessage(`42`)))
	require.NoError(t, svc.UpdateField(context.Background(), "bob@example.com", FieldMonthlyCost, json.RawMessage(`8`)))
	assert.Equal(t, int64(50), repo.costDelta["bob@example.com"])
}

func TestUpdateFieldRejectsUnknownField(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := NewUserService(repo)

	// "plan" is a billing field; it must never be reachable through the
	// preference endpoint.
	err := svc.UpdateField(context.Background(), "alice@example.com", UpdatableField("plan"), json.RawMessage(`"Expert"`))
	assert.ErrorIs(t, err, utils.ErrUnknownField)
	assert.Empty(t, repo.prefs)
}

func TestUpdateFieldRejectsBadValues(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := NewUserService(repo)

	err := svc.UpdateField(context.Background(), "alice@example.com", FieldInputLength, json.RawMessage(`-5`))
	assert.ErrorIs(t, err, utils.ErrUnknownField)

	err = svc.UpdateField(context.Background(), "alice@example.com", FieldDarkMode, json.RawMessage(`"yes"`))
	assert.ErrorIs(t, err, utils.ErrUnknownField)
}

func TestGetUserConfig(t *testing.T) {
	repo := newFakeAccountRepo()
	repo.accounts["carol@example.com"] = &db_models.Account{
		Email:                "carol@example.com",
		UserName:             "carol",
		Plan:                 db_models.PlanStandard,
		SelectedModel:        "gpt-4",
		IsDarkMode:           true,
		ChatHistoryMaxLength: 500,
		InputTextLength:      120,
		MonthlyCost:          300,
		SortOrder:            "created_at DESC",
	}
	svc := NewUserService(repo)

	cfg, err := svc.GetUserConfig(context.Background(), "carol@example.com")
	require.NoError(t, err)
	assert.Equal(t, "carol", cfg.UserName)
	assert.Equal(t, "Standard", cfg.Plan)
	assert.True(t, cfg.IsDarkMode)
	assert.Equal(t, int64(300), cfg.MonthlyCost)
}

func TestGetUserConfigUnknownAccount(t *testing.T) {
	svc := NewUserService(newFakeAccountRepo())
	_, err := svc.GetUserConfig(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, utils.ErrAccountNotFound)
}
