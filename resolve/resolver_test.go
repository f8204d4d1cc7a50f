package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/jonwraymond/scopectx/hierarchy"
	"github.com/jonwraymond/scopectx/store"
)

func seedStore(t *testing.T, recs ...*hierarchy.Record) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore()
	for _, rec := range recs {
		if _, err := s.Save(context.Background(), rec); err != nil {
			t.Fatalf("seed Save(%s/%s) failed: %v", rec.Level, rec.ID, err)
		}
	}
	return s
}

func TestResolver_FullChain(t *testing.T) {
	// GLOBAL={theme:dark}; PROJECT p1={theme:light, build:npm}; BRANCH b1={build:yarn}.
	s := seedStore(t,
		&hierarchy.Record{Level: hierarchy.LevelGlobal, ID: "u1", Owner: "u1",
			Data: map[string]hierarchy.Value{"theme": hierarchy.String("dark")}},
		&hierarchy.Record{Level: hierarchy.LevelProject, ID: "p1", Owner: "u1",
			Data: map[string]hierarchy.Value{"theme": hierarchy.String("light"), "build": hierarchy.String("npm")}},
		&hierarchy.Record{Level: hierarchy.LevelBranch, ID: "b1", Owner: "u1", ParentID: "p1",
			Data: map[string]hierarchy.Value{"build": hierarchy.String("yarn")}},
	)
	r := NewResolver(s)

	res, deps, err := r.Resolve(context.Background(), hierarchy.LevelBranch, "b1", "u1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	want := map[string]hierarchy.Value{"theme": hierarchy.String("light"), "build": hierarchy.String("yarn")}
	if !hierarchy.Map(res.Data).Equal(hierarchy.Map(want)) {
		t.Errorf("resolved data = %v, want %v", res.Data, want)
	}

	wantChain := []hierarchy.Level{hierarchy.LevelGlobal, hierarchy.LevelProject, hierarchy.LevelBranch}
	if len(res.Chain) != len(wantChain) {
		t.Fatalf("chain = %v, want %v", res.Chain, wantChain)
	}
	for i := range wantChain {
		if res.Chain[i] != wantChain[i] {
			t.Errorf("chain[%d] = %v, want %v", i, res.Chain[i], wantChain[i])
		}
	}
	if res.Depth != 3 {
		t.Errorf("depth = %d, want 3", res.Depth)
	}
	if res.ResolvedAt.IsZero() {
		t.Error("ResolvedAt not set")
	}

	if len(deps) != 3 {
		t.Fatalf("deps = %v, want 3 entries", deps)
	}
	for _, d := range deps {
		if d.Version != 1 {
			t.Errorf("dep %s/%s version = %d, want 1", d.Level, d.ID, d.Version)
		}
	}
}

func TestResolver_SoftMissingGlobal(t *testing.T) {
	// No GLOBAL record for u1; resolution still succeeds.
	s := seedStore(t,
		&hierarchy.Record{Level: hierarchy.LevelProject, ID: "p1", Owner: "u1",
			Data: map[string]hierarchy.Value{"theme": hierarchy.String("light"), "build": hierarchy.String("npm")}},
		&hierarchy.Record{Level: hierarchy.LevelBranch, ID: "b1", Owner: "u1", ParentID: "p1",
			Data: map[string]hierarchy.Value{"build": hierarchy.String("yarn")}},
	)
	r := NewResolver(s)

	res, deps, err := r.Resolve(context.Background(), hierarchy.LevelBranch, "b1", "u1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	want := map[string]hierarchy.Value{"theme": hierarchy.String("light"), "build": hierarchy.String("yarn")}
	if !hierarchy.Map(res.Data).Equal(hierarchy.Map(want)) {
		t.Errorf("resolved data = %v, want %v", res.Data, want)
	}
	if len(res.Chain) != 2 || res.Chain[0] != hierarchy.LevelProject || res.Chain[1] != hierarchy.LevelBranch {
		t.Errorf("chain = %v, want [project branch]", res.Chain)
	}
	if res.Depth != 2 {
		t.Errorf("depth = %d, want 2", res.Depth)
	}

	// The missing GLOBAL record is still a version-zero dependency so its
	// later creation invalidates this resolution.
	var foundGlobalDep bool
	for _, d := range deps {
		if d.Level == hierarchy.LevelGlobal && d.ID == "u1" {
			foundGlobalDep = true
			if d.Version != 0 {
				t.Errorf("missing-ancestor dep version = %d, want 0", d.Version)
			}
		}
	}
	if !foundGlobalDep {
		t.Errorf("deps %v lack the missing GLOBAL record", deps)
	}
}

func TestResolver_SoftMissingIntermediate(t *testing.T) {
	// TASK with a declared BRANCH parent that does not exist. The walk skips
	// to the owner's GLOBAL record.
	s := seedStore(t,
		&hierarchy.Record{Level: hierarchy.LevelGlobal, ID: "u1", Owner: "u1",
			Data: map[string]hierarchy.Value{"theme": hierarchy.String("dark")}},
		&hierarchy.Record{Level: hierarchy.LevelTask, ID: "t1", Owner: "u1", ParentID: "b-gone",
			Data: map[string]hierarchy.Value{"step": hierarchy.Number(1)}},
	)
	r := NewResolver(s)

	res, deps, err := r.Resolve(context.Background(), hierarchy.LevelTask, "t1", "u1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if len(res.Chain) != 2 || res.Chain[0] != hierarchy.LevelGlobal || res.Chain[1] != hierarchy.LevelTask {
		t.Errorf("chain = %v, want [global task]", res.Chain)
	}
	if v, _ := res.Data["theme"].AsString(); v != "dark" {
		t.Errorf("theme = %v, want dark (inherited from global)", res.Data["theme"])
	}

	var branchDep bool
	for _, d := range deps {
		if d.Level == hierarchy.LevelBranch && d.ID == "b-gone" && d.Version == 0 {
			branchDep = true
		}
	}
	if !branchDep {
		t.Errorf("deps %v lack the missing branch record", deps)
	}
}

func TestResolver_LeafMissing(t *testing.T) {
	r := NewResolver(store.NewMemoryStore())

	_, _, err := r.Resolve(context.Background(), hierarchy.LevelBranch, "nope", "u1")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Resolve = %v, want *NotFoundError", err)
	}
	if nf.Level != hierarchy.LevelBranch || nf.ID != "nope" {
		t.Errorf("NotFoundError = %+v", nf)
	}
}

func TestResolver_GlobalOnly(t *testing.T) {
	s := seedStore(t,
		&hierarchy.Record{Level: hierarchy.LevelGlobal, ID: "u1", Owner: "u1",
			Data: map[string]hierarchy.Value{"theme": hierarchy.String("dark")}},
	)
	r := NewResolver(s)

	res, deps, err := r.Resolve(context.Background(), hierarchy.LevelGlobal, "u1", "u1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Depth != 1 || len(res.Chain) != 1 {
		t.Errorf("global resolution chain = %v depth = %d", res.Chain, res.Depth)
	}
	if len(deps) != 1 {
		t.Errorf("deps = %v, want 1 entry", deps)
	}
}

// failingStore returns an infrastructure error from Find for non-leaf levels.
type failingStore struct {
	store.Store
	failLevel hierarchy.Level
	err       error
}

func (f *failingStore) Find(ctx context.Context, level hierarchy.Level, id, owner string) (*hierarchy.Record, error) {
	if level == f.failLevel {
		return nil, f.err
	}
	return f.Store.Find(ctx, level, id, owner)
}

func TestResolver_StoreErrorPropagates(t *testing.T) {
	inner := seedStore(t,
		&hierarchy.Record{Level: hierarchy.LevelBranch, ID: "b1", Owner: "u1", ParentID: "p1",
			Data: map[string]hierarchy.Value{}},
	)
	storeErr := errors.New("connection reset")
	r := NewResolver(&failingStore{Store: inner, failLevel: hierarchy.LevelProject, err: storeErr})

	_, _, err := r.Resolve(context.Background(), hierarchy.LevelBranch, "b1", "u1")
	if !errors.Is(err, storeErr) {
		t.Errorf("Resolve = %v, want the store error unchanged", err)
	}
}
