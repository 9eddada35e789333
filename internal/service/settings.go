package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/sakif/revision-tracker/internal/apperror"
	"github.com/sakif/revision-tracker/internal/revision"
)

// SettingsView is what the settings surface shows.
type SettingsView struct {
	RevisionDays int   `json:"revisionDays"`
	Allowed      []int `json:"allowed"`
}

// SettingsService exposes the revision threshold.
//
// The threshold is shared by every account on the server. When admins is
// non-empty only those user IDs may change it over HTTP; the CLI works on
// the database directly and is not restricted.
type SettingsService struct {
	settings *revision.Settings
	admins   []string
	logger   *slog.Logger
}

// NewSettingsService creates a SettingsService. With no admins any signed-in
// user may change the threshold.
func NewSettingsService(settings *revision.Settings, logger *slog.Logger, admins ...string) *SettingsService {
	return &SettingsService{settings: settings, admins: admins, logger: logger}
}

// Get returns the persisted threshold, so a change made by another process
// sharing the database is visible immediately.
func (s *SettingsService) Get(ctx context.Context) (SettingsView, error) {
	days, err := s.settings.Current(ctx)
	if err != nil {
		return SettingsView{}, fmt.Errorf("reading settings: %w", err)
	}
	return SettingsView{
		RevisionDays: days,
		Allowed:      revision.AllowedThresholds(),
	}, nil
}

// CanUpdate reports whether userID may change the shared threshold.
func (s *SettingsService) CanUpdate(userID string) bool {
	return len(s.admins) == 0 || slices.Contains(s.admins, userID)
}

// UpdateBy is Update on behalf of a signed-in user. Users outside the admin
// list get Forbidden.
func (s *SettingsService) UpdateBy(ctx context.Context, userID string, days int) (SettingsView, error) {
	if !s.CanUpdate(userID) {
		s.logger.Warn("revision threshold change refused",
			slog.String("userID", userID),
			slog.Int("days", days),
		)
		return SettingsView{}, apperror.Forbidden("only settings admins can change the revision threshold")
	}
	return s.Update(ctx, days)
}

// Update sets the threshold. A value outside the allowed set is a
// validation error and leaves the current threshold in place.
func (s *SettingsService) Update(ctx context.Context, days int) (SettingsView, error) {
	ok, err := s.settings.SetThresholdDays(ctx, days)
	if err != nil {
		return SettingsView{}, fmt.Errorf("updating settings: %w", err)
	}
	if !ok {
		s.logger.Warn("revision threshold rejected", slog.Int("days", days))
		return SettingsView{}, apperror.ValidationFailed("revisionDays",
			fmt.Sprintf("revisionDays must be one of %v", revision.AllowedThresholds()))
	}

	s.logger.Info("revision threshold changed", slog.Int("days", days))
	return s.Get(ctx)
}
