package projects

import (
	"errors"
	"testing"

	"github.com/alantheprice/council/pkg/consensus"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := InitDB(":memory:")
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	return NewStore(db)
}

func TestUpsertProjectCreatesThenUpdates(t *testing.T) {
	store := newTestStore(t)

	first, err := store.UpsertProject("clock", "build a clock",
		map[string]string{"index.html": "v1"},
		[]consensus.Message{{Agent: "System", Content: "hi", Kind: consensus.KindSystem}})
	if err != nil {
		t.Fatalf("UpsertProject: %v", err)
	}
	if first.ID == "" {
		t.Fatal("project id not assigned")
	}

	second, err := store.UpsertProject("clock", "build a better clock",
		map[string]string{"index.html": "v2"}, nil)
	if err != nil {
		t.Fatalf("UpsertProject (update): %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("upsert created a new project: %s != %s", second.ID, first.ID)
	}
	if second.Task != "build a better clock" {
		t.Errorf("task = %q, want updated task", second.Task)
	}

	files, err := second.Files()
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if files["index.html"] != "v2" {
		t.Errorf("files = %v, want updated content", files)
	}

	list, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("projects = %d, want 1 after upsert", len(list))
	}
}

func TestGetProject(t *testing.T) {
	store := newTestStore(t)

	created, err := store.UpsertProject("clock", "task", nil, nil)
	if err != nil {
		t.Fatalf("UpsertProject: %v", err)
	}

	got, err := store.Get(created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "clock" {
		t.Errorf("name = %q, want clock", got.Name)
	}

	if _, err := store.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}

	byName, err := store.GetByName("clock")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if byName.ID != created.ID {
		t.Errorf("GetByName id = %s, want %s", byName.ID, created.ID)
	}
}

func TestSaveRunRoundTrip(t *testing.T) {
	store := newTestStore(t)

	project, err := store.UpsertProject("clock", "task", nil, nil)
	if err != nil {
		t.Fatalf("UpsertProject: %v", err)
	}

	sess := consensus.NewSession("sess-1", "build a clock")
	sess.MergeFiles(map[string]string{"index.html": "<html>"})
	sess.AddMessage("System", "👋 Starting consensus session", consensus.KindSystem)
	sess.Phase = consensus.PhaseDone
	sess.Status = consensus.StatusCompleted
	sess.TestResult = &consensus.TestResults{Passed: true}

	record, err := store.SaveRun(project.ID, sess)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if record.Status != "completed" || record.Phase != "done" || !record.Passed {
		t.Errorf("record = %+v, want completed/done/passed", record)
	}

	got, err := store.RunBySession("sess-1")
	if err != nil {
		t.Fatalf("RunBySession: %v", err)
	}
	files, err := got.Files()
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if files["index.html"] != "<html>" {
		t.Errorf("run files = %v", files)
	}
	transcript, err := got.Transcript()
	if err != nil {
		t.Fatalf("Transcript: %v", err)
	}
	if len(transcript) != 1 || transcript[0].Kind != consensus.KindSystem {
		t.Errorf("transcript = %+v", transcript)
	}

	// Saving the same session again updates in place.
	sess.Error = ""
	if _, err := store.SaveRun(project.ID, sess); err != nil {
		t.Fatalf("SaveRun (again): %v", err)
	}
	runs, err := store.Runs(project.ID)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("runs = %d, want 1 after re-save", len(runs))
	}
}

func TestRunBySessionMissing(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.RunBySession("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
