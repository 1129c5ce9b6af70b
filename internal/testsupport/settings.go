package testsupport

import (
	"testing"

	"fieldingest/internal/config"
	"fieldingest/internal/settings"
)

// MustOpenSettings opens a settings.Store for tests and registers cleanup.
func MustOpenSettings(t testing.TB, cfg *config.Config) *settings.Store {
	t.Helper()
	store, err := settings.Open(cfg)
	if err != nil {
		t.Fatalf("settings.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
