package consensus

import (
	"errors"
	"testing"
)

func TestMemoryStoreCreateAndGet(t *testing.T) {
	store := NewMemoryStore()
	sess := NewSession("s1", "build a page")

	if err := store.Create(sess); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Create(sess); err == nil {
		t.Error("duplicate Create succeeded, want error")
	}

	got, err := store.Get("s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Task != "build a page" || got.Status != StatusRunning {
		t.Errorf("got %s/%s, want running session for the task", got.Task, got.Status)
	}

	if _, err := store.Get("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrSessionNotFound", err)
	}
}

func TestMemoryStoreSnapshotsAreIsolated(t *testing.T) {
	store := NewMemoryStore()
	sess := NewSession("s1", "task")
	sess.MergeFiles(map[string]string{"index.html": "<html>"})
	if err := store.Create(sess); err != nil {
		t.Fatalf("Create: %v", err)
	}

	snap, err := store.Get("s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	snap.Files["index.html"] = "mutated"
	snap.AddMessage("X", "mutated", KindSystem)

	again, err := store.Get("s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if again.Files["index.html"] != "<html>" {
		t.Error("mutating a snapshot leaked into the store")
	}
	if len(again.Transcript) != 0 {
		t.Error("snapshot transcript mutation leaked into the store")
	}
}

func TestMemoryStoreUpdateValidatesStatus(t *testing.T) {
	store := NewMemoryStore()
	sess := NewSession("s1", "task")
	if err := store.Create(sess); err != nil {
		t.Fatalf("Create: %v", err)
	}

	sess.Status = StatusCompleted
	if err := store.Update(sess); err != nil {
		t.Fatalf("Update to completed: %v", err)
	}

	// Terminal statuses never move again.
	sess.Status = StatusFailed
	err := store.Update(sess)
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Errorf("Update completed -> failed error = %v, want *InvalidTransitionError", err)
	}

	if err := store.Update(NewSession("ghost", "task")); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Update(unknown) error = %v, want ErrSessionNotFound", err)
	}
}
