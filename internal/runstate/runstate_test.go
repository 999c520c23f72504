package runstate

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileIsInactive(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "missing.txt"))
	st := s.Load()
	if st.Active {
		t.Error("expected a missing run-state file to load as inactive")
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runstate.txt")
	s := NewStore(path)

	want := State{Active: true, Source: "rtsp://cam1", SourceType: SourceTypeRTSP}
	if err := s.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got := s.Load()
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestLoadCorruptFileIsInactive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runstate.txt")
	if err := os.WriteFile(path, []byte("not a valid record\n"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	s := NewStore(path)
	st := s.Load()
	if st.Active {
		t.Error("expected corrupt run-state to load as inactive")
	}
}

func TestSaveReplacesPreviousState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runstate.txt")
	s := NewStore(path)

	if err := s.Save(State{Active: true, Source: "a", SourceType: SourceTypeFile}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(State{Active: false, Source: "a", SourceType: SourceTypeFile}); err != nil {
		t.Fatalf("save: %v", err)
	}

	got := s.Load()
	if got.Active {
		t.Error("expected the later save to win")
	}
}
