// Package revision decides when a question is due for another review and
// holds the user-chosen revision threshold.
//
// Everything time-sensitive takes `now` and the threshold as explicit
// arguments. The package never reads the wall clock and never talks to
// storage directly; persistence of the threshold goes through the
// ThresholdStore collaborator.
package revision

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// DefaultThresholdDays is used until a valid threshold has been chosen.
const DefaultThresholdDays = 7

// allowedThresholds is the fixed set the settings surface offers.
var allowedThresholds = []int{3, 7, 14}

// AllowedThresholds returns the legal threshold values in ascending order.
func AllowedThresholds() []int {
	return slices.Clone(allowedThresholds)
}

// IsAllowedThreshold reports whether days is one of the fixed choices.
func IsAllowedThreshold(days int) bool {
	return slices.Contains(allowedThresholds, days)
}

// ThresholdStore persists the threshold across restarts.
// The sqlite repository implements it.
type ThresholdStore interface {
	// LoadThresholdDays returns the persisted value and whether one exists.
	LoadThresholdDays(ctx context.Context) (int, bool, error)
	SaveThresholdDays(ctx context.Context, days int) error
}

// Settings is the process-wide revision threshold.
//
// The zero value is ready to use: it reports DefaultThresholdDays and keeps
// changes in memory only. NewSettings attaches a ThresholdStore.
type Settings struct {
	mu    sync.RWMutex
	days  int
	store ThresholdStore
}

// NewSettings returns a Settings backed by store. A nil store is allowed.
func NewSettings(store ThresholdStore) *Settings {
	return &Settings{store: store}
}

// Load reads the persisted threshold. A missing or illegal stored value keeps
// the default, the same way a corrupt preference would be ignored.
func (s *Settings) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	days, ok, err := s.store.LoadThresholdDays(ctx)
	if err != nil {
		return fmt.Errorf("revision: loading threshold: %w", err)
	}
	if !ok || !IsAllowedThreshold(days) {
		return nil
	}

	s.mu.Lock()
	s.days = days
	s.mu.Unlock()
	return nil
}

// Current re-reads the persisted threshold and returns it. Another process
// sharing the store, such as the CLI, may have changed it since Load.
func (s *Settings) Current(ctx context.Context) (int, error) {
	if err := s.Load(ctx); err != nil {
		return 0, err
	}
	return s.ThresholdDays(), nil
}

// ThresholdDays returns the last known threshold in days without touching
// the store.
func (s *Settings) ThresholdDays() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.days == 0 {
		return DefaultThresholdDays
	}
	return s.days
}

// SetThresholdDays changes the threshold.
//
// A value outside AllowedThresholds is ignored: it returns (false, nil) and the
// previous value stays in effect. A legal value is persisted first and only
// then becomes visible to readers, so a failed save changes nothing.
func (s *Settings) SetThresholdDays(ctx context.Context, days int) (bool, error) {
	if !IsAllowedThreshold(days) {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store != nil {
		if err := s.store.SaveThresholdDays(ctx, days); err != nil {
			return false, fmt.Errorf("revision: saving threshold: %w", err)
		}
	}
	s.days = days
	return true, nil
}
