package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jonwraymond/scopectx/hierarchy"
)

func TestMemoryStore_FindSaveDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	// Find on empty store
	_, err := s.Find(ctx, hierarchy.LevelProject, "p1", "u1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Find on empty store = %v, want ErrNotFound", err)
	}

	rec := &hierarchy.Record{
		Level: hierarchy.LevelProject,
		ID:    "p1",
		Owner: "u1",
		Data:  map[string]hierarchy.Value{"build": hierarchy.String("npm")},
	}

	saved, err := s.Save(ctx, rec)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if saved.Version != 1 {
		t.Errorf("first Save version = %d, want 1", saved.Version)
	}
	if saved.UpdatedAt.IsZero() {
		t.Error("Save did not set UpdatedAt")
	}

	found, err := s.Find(ctx, hierarchy.LevelProject, "p1", "u1")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if v, _ := found.Data["build"].AsString(); v != "npm" {
		t.Errorf("found data = %v", found.Data)
	}

	ok, err := s.Delete(ctx, hierarchy.LevelProject, "p1", "u1")
	if err != nil || !ok {
		t.Fatalf("Delete = (%v, %v), want (true, nil)", ok, err)
	}

	_, err = s.Find(ctx, hierarchy.LevelProject, "p1", "u1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Find after Delete = %v, want ErrNotFound", err)
	}

	// Delete is idempotent
	ok, err = s.Delete(ctx, hierarchy.LevelProject, "p1", "u1")
	if err != nil || ok {
		t.Errorf("second Delete = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestMemoryStore_VersionBumps(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	rec := &hierarchy.Record{Level: hierarchy.LevelBranch, ID: "b1", Owner: "u1", Data: map[string]hierarchy.Value{}}
	for want := int64(1); want <= 3; want++ {
		saved, err := s.Save(ctx, rec)
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if saved.Version != want {
			t.Errorf("Save #%d version = %d, want %d", want, saved.Version, want)
		}
	}
}

func TestMemoryStore_OwnerPartitioning(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for _, owner := range []string{"u1", "u2"} {
		_, err := s.Save(ctx, &hierarchy.Record{
			Level: hierarchy.LevelGlobal,
			ID:    "defaults",
			Owner: owner,
			Data:  map[string]hierarchy.Value{"owner": hierarchy.String(owner)},
		})
		if err != nil {
			t.Fatalf("Save(%s) failed: %v", owner, err)
		}
	}

	// Same GLOBAL id, different owners, different records.
	for _, owner := range []string{"u1", "u2"} {
		rec, err := s.Find(ctx, hierarchy.LevelGlobal, "defaults", owner)
		if err != nil {
			t.Fatalf("Find(%s) failed: %v", owner, err)
		}
		if v, _ := rec.Data["owner"].AsString(); v != owner {
			t.Errorf("owner %s got record for %s", owner, v)
		}
	}

	// Unknown owner sees nothing.
	if _, err := s.Find(ctx, hierarchy.LevelGlobal, "defaults", "u3"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Find for unknown owner = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_List(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	seed := []struct {
		id, parent string
	}{
		{"feat-auth", "p1"},
		{"feat-cache", "p1"},
		{"fix-login", "p2"},
	}
	for _, row := range seed {
		_, err := s.Save(ctx, &hierarchy.Record{
			Level:    hierarchy.LevelBranch,
			ID:       row.id,
			Owner:    "u1",
			ParentID: row.parent,
			Data:     map[string]hierarchy.Value{},
		})
		if err != nil {
			t.Fatalf("Save(%s) failed: %v", row.id, err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"no filter", Filter{}, []string{"feat-auth", "feat-cache", "fix-login"}},
		{"id prefix", Filter{IDPrefix: "feat-"}, []string{"feat-auth", "feat-cache"}},
		{"parent", Filter{ParentID: "p2"}, []string{"fix-login"}},
		{"prefix and parent", Filter{IDPrefix: "feat-", ParentID: "p2"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := s.List(ctx, hierarchy.LevelBranch, "u1", tt.filter)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(recs) != len(tt.want) {
				t.Fatalf("List returned %d records, want %d", len(recs), len(tt.want))
			}
			for i, rec := range recs {
				if rec.ID != tt.want[i] {
					t.Errorf("List[%d] = %s, want %s", i, rec.ID, tt.want[i])
				}
			}
		})
	}
}

func TestMemoryStore_ReturnsClones(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Save(ctx, &hierarchy.Record{
		Level: hierarchy.LevelTask,
		ID:    "t1",
		Owner: "u1",
		Data:  map[string]hierarchy.Value{"k": hierarchy.Number(1)},
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	first, _ := s.Find(ctx, hierarchy.LevelTask, "t1", "u1")
	first.Data["k"] = hierarchy.Number(99)

	second, _ := s.Find(ctx, hierarchy.LevelTask, "t1", "u1")
	if v, _ := second.Data["k"].AsNumber(); v != 1 {
		t.Error("mutating a returned record leaked into the store")
	}
}

func TestMemoryStore_InvalidInput(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Save(ctx, nil); !errors.Is(err, ErrNilRecord) {
		t.Errorf("Save(nil) = %v, want ErrNilRecord", err)
	}
	if _, err := s.Save(ctx, &hierarchy.Record{Level: hierarchy.LevelTask}); !errors.Is(err, ErrEmptyID) {
		t.Errorf("Save(empty id) = %v, want ErrEmptyID", err)
	}
	if _, err := s.Find(ctx, hierarchy.LevelTask, "", "u1"); !errors.Is(err, ErrEmptyID) {
		t.Errorf("Find(empty id) = %v, want ErrEmptyID", err)
	}
	if _, err := s.Delete(ctx, hierarchy.LevelTask, "", "u1"); !errors.Is(err, ErrEmptyID) {
		t.Errorf("Delete(empty id) = %v, want ErrEmptyID", err)
	}
}
