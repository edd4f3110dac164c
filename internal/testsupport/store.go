package testsupport

import (
	"testing"

	"rabc/internal/config"
	"rabc/internal/sessions"
)

// MustOpenSessions opens a sessions.Store for tests and registers cleanup.
func MustOpenSessions(t testing.TB, cfg *config.Config) *sessions.Store {
	t.Helper()

	store, err := sessions.Open(cfg)
	if err != nil {
		t.Fatalf("sessions.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
