package usecases_test

import (
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/voltrip/internal/core/domain"
	"github.com/samirrijal/voltrip/internal/core/usecases"
)

func TestSessionManager_Lifecycle(t *testing.T) {
	dir := usecases.NewDirectoryService(&mockDirectory{}, nil, 0, time.Second)
	m := usecases.NewSessionManager(&mockProvider{}, dir, nil, usecases.DefaultSessionConfig())

	a := m.Create()
	b := m.Create()
	if a.ID() == "" || a.ID() == b.ID() {
		t.Fatalf("expected distinct ids, got %q and %q", a.ID(), b.ID())
	}
	if m.Len() != 2 {
		t.Errorf("expected 2 sessions, got %d", m.Len())
	}

	got, err := m.Get(a.ID())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != a {
		t.Error("expected same session back")
	}

	if err := m.Delete(a.ID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.Get(a.ID()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if err := m.Delete(a.ID()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound on second delete, got %v", err)
	}
}
