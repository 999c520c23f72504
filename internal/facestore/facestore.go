// Package facestore implements the Face Store (component E): an
// appendable list of face entries persisted as a single blob file with
// atomic replace-on-write, plus the critical section that keeps the Face
// Recognizer's in-memory mirror in lockstep with the store.
package facestore

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/anttok/recognitiond/internal/vision"
)

// Entry is one Face Store row.
type Entry struct {
	Name          string
	PersonID      string
	Encoding      []float32
	ImageBlobPath string
	CreatedAt     time.Time
}

type fileFormat struct {
	Entries []Entry
}

// MirrorSetter is the subset of *vision.Recognizer the store needs to keep
// the in-memory mirror synchronized; declared as an interface so the store
// package does not import vision's concrete type for wiring convenience
// beyond what it actually uses.
type MirrorSetter interface {
	SetMirror(m *vision.FaceMirror)
}

// Store is an appendable list of face entries guarded by a process-wide
// lock. Persistence is a single gob-encoded file rewritten atomically
// (write-to-temp then rename) on every mutation.
type Store struct {
	mu       sync.Mutex
	path     string
	entries  []Entry
	encDim   int // 0 until the first entry fixes the store-wide dimension
	recognizer MirrorSetter
}

// Open loads path if it exists (an empty or missing file is treated as an
// empty store) and copies the loaded encodings directly into the
// recognizer's mirror — the Facade must never re-derive encodings from
// image files at load time.
func Open(path string, recognizer MirrorSetter) (*Store, error) {
	s := &Store{path: path, recognizer: recognizer}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.publishMirrorLocked()
			return s, nil
		}
		return nil, fmt.Errorf("read face store: %w", err)
	}
	if len(data) == 0 {
		s.publishMirrorLocked()
		return s, nil
	}

	var ff fileFormat
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&ff); err != nil {
		// Corruption is not defined as a recoverable state for the Face
		// Store in the spec (only Run-State treats corruption as
		// "inactive"); surface it so the operator can intervene.
		return nil, fmt.Errorf("decode face store: %w", err)
	}

	s.entries = ff.Entries
	if len(s.entries) > 0 {
		s.encDim = len(s.entries[0].Encoding)
	}
	s.publishMirrorLocked()
	return s, nil
}

// Add appends a new entry to both the store and the recognizer mirror
// within the same critical section, then persists atomically.
func (s *Store) Add(name, personID string, encoding []float32, imageBlobPath string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.encDim == 0 {
		s.encDim = len(encoding)
	} else if len(encoding) != s.encDim {
		return Entry{}, fmt.Errorf("encoding length %d does not match store dimension %d", len(encoding), s.encDim)
	}

	entry := Entry{
		Name:          name,
		PersonID:      personID,
		Encoding:      encoding,
		ImageBlobPath: imageBlobPath,
		CreatedAt:     time.Now(),
	}
	s.entries = append(s.entries, entry)

	if err := s.persistLocked(); err != nil {
		s.entries = s.entries[:len(s.entries)-1]
		return Entry{}, err
	}

	s.publishMirrorLocked()
	return entry, nil
}

// List returns a copy of all entries.
func (s *Store) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Count returns the number of entries.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Clear truncates the store and the recognizer mirror atomically.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.entries
	prevDim := s.encDim
	s.entries = nil
	s.encDim = 0

	if err := s.persistLocked(); err != nil {
		s.entries = prev
		s.encDim = prevDim
		return err
	}

	s.publishMirrorLocked()
	return nil
}

func (s *Store) persistLocked() error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(fileFormat{Entries: s.entries}); err != nil {
		return fmt.Errorf("encode face store: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".facestore-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func (s *Store) publishMirrorLocked() {
	if s.recognizer == nil {
		return
	}
	names := make([]string, len(s.entries))
	personIDs := make([]string, len(s.entries))
	encodings := make([][]float32, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.Name
		personIDs[i] = e.PersonID
		encodings[i] = e.Encoding
	}
	s.recognizer.SetMirror(&vision.FaceMirror{Names: names, PersonIDs: personIDs, Encodings: encodings})
}
