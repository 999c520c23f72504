package facestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/anttok/recognitiond/internal/vision"
)

type mockMirrorSetter struct {
	mirror *vision.FaceMirror
}

func (m *mockMirrorSetter) SetMirror(mirror *vision.FaceMirror) {
	m.mirror = mirror
}

func TestOpenMissingFileIsEmpty(t *testing.T) {
	mock := &mockMirrorSetter{}
	s, err := Open(filepath.Join(t.TempDir(), "missing.gob"), mock)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.Count() != 0 {
		t.Errorf("expected an empty store, got %d entries", s.Count())
	}
	if mock.mirror == nil {
		t.Error("expected the mirror to be published even for an empty store")
	}
}

func TestOpenCorruptFileReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faces.gob")
	if err := os.WriteFile(path, []byte("not a gob stream"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	_, err := Open(path, &mockMirrorSetter{})
	if err == nil {
		t.Error("expected corrupt face store data to surface an error, not load as empty")
	}
}

func TestAddPersistsAndUpdatesMirror(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faces.gob")
	mock := &mockMirrorSetter{}
	s, err := Open(path, mock)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	entry, err := s.Add("Alice", "p1", []float32{0.1, 0.2, 0.3}, "faces/p1/a.jpg")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if entry.Name != "Alice" || entry.PersonID != "p1" {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if s.Count() != 1 {
		t.Fatalf("expected 1 entry, got %d", s.Count())
	}
	if len(mock.mirror.Names) != 1 || mock.mirror.Names[0] != "Alice" {
		t.Errorf("expected mirror to reflect the new entry, got %+v", mock.mirror)
	}

	reopened, err := Open(path, &mockMirrorSetter{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Count() != 1 {
		t.Errorf("expected the entry to have persisted to disk, got %d entries", reopened.Count())
	}
}

func TestAddRejectsMismatchedEncodingDimension(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "faces.gob"), &mockMirrorSetter{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if _, err := s.Add("Alice", "p1", []float32{0.1, 0.2, 0.3}, ""); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if _, err := s.Add("Bob", "p2", []float32{0.1, 0.2}, ""); err == nil {
		t.Error("expected an encoding of a different dimension to be rejected")
	}
	if s.Count() != 1 {
		t.Errorf("expected the rejected add to leave the store untouched, got %d entries", s.Count())
	}
}

func TestListReturnsACopy(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "faces.gob"), &mockMirrorSetter{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.Add("Alice", "p1", []float32{0.1}, ""); err != nil {
		t.Fatalf("add: %v", err)
	}

	out := s.List()
	out[0].Name = "mutated"

	if s.List()[0].Name != "Alice" {
		t.Error("expected List to return an independent copy of the entries")
	}
}

func TestClearResetsStoreAndMirror(t *testing.T) {
	mock := &mockMirrorSetter{}
	s, err := Open(filepath.Join(t.TempDir(), "faces.gob"), mock)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.Add("Alice", "p1", []float32{0.1, 0.2}, ""); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if s.Count() != 0 {
		t.Errorf("expected store to be empty after Clear, got %d entries", s.Count())
	}
	if len(mock.mirror.Names) != 0 {
		t.Errorf("expected mirror to be cleared, got %+v", mock.mirror)
	}

	// The dimension lock resets too: a different dimension is now accepted.
	if _, err := s.Add("Bob", "p2", []float32{0.1, 0.2, 0.3}, ""); err != nil {
		t.Errorf("expected a fresh dimension to be accepted after Clear, got %v", err)
	}
}
