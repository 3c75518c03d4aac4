package store

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/quillforge/aiengine/internal/domain"
	"github.com/quillforge/aiengine/internal/registry"
)

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := NewFileStore(path, nil)

	state := registry.State{
		Order: []domain.ProviderID{domain.ProviderGroq, domain.ProviderOpenAI},
		Providers: map[domain.ProviderID]registry.ProviderRecord{
			domain.ProviderGroq: {
				Enabled:       true,
				SelectedModel: "llama-3.3-70b-versatile",
				Validated:     true,
				Keys: []domain.Credential{
					{Secret: "gsk-test", Provider: domain.ProviderGroq, Validated: true},
				},
			},
		},
	}

	if err := s.Save(state); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, ok, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !ok {
		t.Fatal("Load() ok = false for an existing file")
	}
	if len(loaded.Order) != 2 || loaded.Order[0] != domain.ProviderGroq {
		t.Errorf("Order = %v", loaded.Order)
	}
	rec := loaded.Providers[domain.ProviderGroq]
	if !rec.Enabled || rec.SelectedModel != "llama-3.3-70b-versatile" {
		t.Errorf("record = %+v", rec)
	}
	if len(rec.Keys) != 1 || rec.Keys[0].Secret != "gsk-test" {
		t.Errorf("keys = %+v", rec.Keys)
	}
}

func TestFileStore_LoadMissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "nope.json"), nil)

	_, ok, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v for a missing file", err)
	}
	if ok {
		t.Error("Load() ok = true for a missing file")
	}
}

func TestFileStore_LoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	s := NewFileStore(path, nil)
	if _, _, err := s.Load(); err == nil {
		t.Error("Load() error = nil for a corrupt file")
	}
}

func TestFileStore_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.json")
	s := NewFileStore(path, nil)

	if err := s.Save(registry.State{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("state file not created: %v", err)
	}
}

func TestFileStore_RestrictsPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on windows")
	}

	path := filepath.Join(t.TempDir(), "state.json")
	s := NewFileStore(path, nil)
	if err := s.Save(registry.State{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}
}
