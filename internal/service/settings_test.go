package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/revision-tracker/internal/apperror"
	"github.com/sakif/revision-tracker/internal/revision"
)

func currentDays(t *testing.T, svc *SettingsService) int {
	t.Helper()
	view, err := svc.Get(context.Background())
	require.NoError(t, err)
	return view.RevisionDays
}

func TestSettingsService_GetDefaults(t *testing.T) {
	svc := NewSettingsService(revision.NewSettings(nil), testLogger())
	view, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SettingsView{RevisionDays: 7, Allowed: []int{3, 7, 14}}, view)
}

func TestSettingsService_Update(t *testing.T) {
	store := &fakeThresholdStore{}
	svc := NewSettingsService(revision.NewSettings(store), testLogger())

	view, err := svc.Update(context.Background(), 14)
	require.NoError(t, err)
	assert.Equal(t, 14, view.RevisionDays)
	assert.Equal(t, 14, store.days, "the new value is persisted")

	_, err = svc.Update(context.Background(), 5)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Equal(t, 14, currentDays(t, svc), "a rejected value changes nothing")
}

func TestSettingsService_UpdateSaveFailure(t *testing.T) {
	store := &fakeThresholdStore{saveErr: errors.New("read-only database")}
	svc := NewSettingsService(revision.NewSettings(store), testLogger())

	_, err := svc.Update(context.Background(), 3)
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperror.ErrValidation)
	assert.Equal(t, 7, currentDays(t, svc))
}

func TestSettingsService_GetReadsThroughStore(t *testing.T) {
	store := &fakeThresholdStore{}
	svc := NewSettingsService(revision.NewSettings(store), testLogger())
	assert.Equal(t, 7, currentDays(t, svc))

	store.days, store.saved = 14, true
	assert.Equal(t, 14, currentDays(t, svc))
}

func TestSettingsService_UpdateBy(t *testing.T) {
	t.Run("no admins configured", func(t *testing.T) {
		svc := NewSettingsService(revision.NewSettings(&fakeThresholdStore{}), testLogger())
		assert.True(t, svc.CanUpdate("user-1"))

		view, err := svc.UpdateBy(context.Background(), "user-1", 3)
		require.NoError(t, err)
		assert.Equal(t, 3, view.RevisionDays)
	})

	t.Run("admins configured", func(t *testing.T) {
		store := &fakeThresholdStore{}
		svc := NewSettingsService(revision.NewSettings(store), testLogger(), "user-admin")

		_, err := svc.UpdateBy(context.Background(), "user-1", 3)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
		assert.False(t, store.saved, "a refused change is not persisted")

		view, err := svc.UpdateBy(context.Background(), "user-admin", 3)
		require.NoError(t, err)
		assert.Equal(t, 3, view.RevisionDays)
	})
}
