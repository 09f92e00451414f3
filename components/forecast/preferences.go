package forecast

import (
	"context"
	"fmt"
	"sync"
)

// ViewerPreferences holds the per-viewer dashboard settings that survive a
// reload, currently just the saved company filter.
type ViewerPreferences struct {
	CompanyFilter string `json:"company_filter"`
}

// PreferenceStore persists per-viewer settings.
type PreferenceStore interface {
	Preferences(ctx context.Context, userID string) (ViewerPreferences, error)
	SavePreferences(ctx context.Context, userID string, prefs ViewerPreferences) error
}

// InMemoryPreferenceStore provides a concurrency-safe default store.
type InMemoryPreferenceStore struct {
	mu   sync.RWMutex
	data map[string]ViewerPreferences
}

// NewInMemoryPreferenceStore creates an empty preference store.
func NewInMemoryPreferenceStore() *InMemoryPreferenceStore {
	return &InMemoryPreferenceStore{
		data: make(map[string]ViewerPreferences),
	}
}

// Preferences returns stored settings or the zero value for unknown viewers.
func (s *InMemoryPreferenceStore) Preferences(_ context.Context, userID string) (ViewerPreferences, error) {
	if userID == "" {
		return ViewerPreferences{CompanyFilter: FilterAll}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if prefs, ok := s.data[userID]; ok {
		if prefs.CompanyFilter == "" {
			prefs.CompanyFilter = FilterAll
		}
		return prefs, nil
	}
	return ViewerPreferences{CompanyFilter: FilterAll}, nil
}

// SavePreferences persists settings for a viewer.
func (s *InMemoryPreferenceStore) SavePreferences(_ context.Context, userID string, prefs ViewerPreferences) error {
	if userID == "" {
		return fmt.Errorf("preference store requires viewer user id")
	}
	if prefs.CompanyFilter == "" {
		prefs.CompanyFilter = FilterAll
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[userID] = prefs
	return nil
}
