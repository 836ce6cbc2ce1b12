// Package settings gives cached, typed access to the persisted panel
// settings: the backend URL fallback, the last used intent and the theme.
package settings

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	KeyBackendURL = "backend_url"
	KeyLastIntent = "last_intent"
	KeyTheme      = "theme"
)

// Themes.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Store defines the storage operations the Manager needs.
// Implemented by storage.Store.
type Store interface {
	SetSetting(key, value string) error
	GetAllSettings() (map[string]string, error)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Settings is a typed view of the persisted keys.
type Settings struct {
	BackendURL string
	LastIntent string
	Theme      string
}

// Manager caches the settings read from the store.
type Manager struct {
	store Store
	clock Clock
	ttl   time.Duration

	mu       sync.RWMutex
	cached   *Settings
	cachedAt time.Time
}

// NewManager creates a Manager with a 60-second cache TTL.
func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		clock: realClock{},
		ttl:   60 * time.Second,
	}
}

// NewManagerWithClock creates a Manager with a custom clock (for testing).
func NewManagerWithClock(store Store, clock Clock, ttl time.Duration) *Manager {
	return &Manager{
		store: store,
		clock: clock,
		ttl:   ttl,
	}
}

// Get returns the current settings, from cache when fresh.
func (m *Manager) Get() (Settings, error) {
	m.mu.RLock()
	if m.cached != nil && m.clock.Now().Before(m.cachedAt.Add(m.ttl)) {
		s := *m.cached
		m.mu.RUnlock()
		return s, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached != nil && m.clock.Now().Before(m.cachedAt.Add(m.ttl)) {
		return *m.cached, nil
	}

	keys, err := m.store.GetAllSettings()
	if err != nil {
		return Settings{}, fmt.Errorf("loading settings: %w", err)
	}

	s := Settings{
		BackendURL: strings.TrimSpace(keys[KeyBackendURL]),
		LastIntent: keys[KeyLastIntent],
		Theme:      normalizeTheme(keys[KeyTheme]),
	}
	m.cached = &s
	m.cachedAt = m.clock.Now()
	return s, nil
}

// Set persists a key and invalidates the cache.
func (m *Manager) Set(key, value string) error {
	switch key {
	case KeyBackendURL, KeyLastIntent:
	case KeyTheme:
		if value != ThemeLight && value != ThemeDark {
			return fmt.Errorf("invalid theme %q", value)
		}
	default:
		return fmt.Errorf("unknown setting %q", key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.SetSetting(key, value); err != nil {
		return fmt.Errorf("setting %q: %w", key, err)
	}
	m.cached = nil
	return nil
}

// BackendURL returns the persisted backend URL, or "" when unset or
// unreadable.
func (m *Manager) BackendURL() string {
	s, err := m.Get()
	if err != nil {
		return ""
	}
	return s.BackendURL
}

func normalizeTheme(v string) string {
	if v == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}
