package memory

import (
	"context"
	"testing"

	"hardbrain-quiz/internal/app"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()
	first := app.NewSession("chan-1", "voice", nil, app.Settings{}, app.SessionDeps{})
	second := app.NewSession("chan-1", "voice", nil, app.Settings{}, app.SessionDeps{})

	if !store.Add("chan-1", first) {
		t.Fatalf("expected first session to register")
	}
	if store.Add("chan-1", second) {
		t.Fatalf("expected live session to block a second one")
	}
	if got, ok := store.Get("chan-1"); !ok || got != first {
		t.Fatalf("expected first session present")
	}

	store.Remove("chan-1", second)
	if _, ok := store.Get("chan-1"); !ok {
		t.Fatalf("removing a different session must not drop the registration")
	}

	if err := first.End(context.Background()); err != nil {
		t.Fatalf("end: %v", err)
	}
	if !store.Add("chan-1", second) {
		t.Fatalf("expected finished session to be replaceable")
	}
	store.Remove("chan-1", second)
	if store.Len() != 0 {
		t.Fatalf("expected session removed")
	}
}
