// Package runstate implements the Run-State Store (component H): a
// single durable record describing whether a video source is active,
// consulted exactly once at process startup to resume the background
// loop after a crash or restart.
package runstate

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// SourceType mirrors the ingestor's source classification.
type SourceType string

const (
	SourceTypeDevice  SourceType = "device"
	SourceTypeRTSP    SourceType = "rtsp"
	SourceTypeHTTP    SourceType = "http"
	SourceTypeRTMP    SourceType = "rtmp"
	SourceTypeFile    SourceType = "file"
	SourceTypeUnknown SourceType = "unknown"
)

// State is the one process-wide run-state record.
type State struct {
	Active     bool
	Source     string
	SourceType SourceType
}

// Store persists State as a small self-describing text record at a fixed
// path, replaced atomically (temp + rename) under a lock. Corruption is
// treated as "no active stream" rather than an error, per the store's
// crash-recovery contract.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the current state. A missing or corrupt file returns the
// zero State (inactive) rather than an error.
func (s *Store) Load() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		return State{}
	}
	defer f.Close()

	fields := map[string]string{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		fields[parts[0]] = parts[1]
	}
	if err := sc.Err(); err != nil {
		return State{}
	}

	active := fields["active"] == "true"
	if !active && fields["active"] != "false" {
		// Missing/garbled active field: treat as corruption -> inactive.
		return State{}
	}

	return State{
		Active:     active,
		Source:     fields["source"],
		SourceType: SourceType(fields["source_type"]),
	}
}

// Save atomically replaces the persisted record.
func (s *Store) Save(state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "active=%t\n", state.Active)
	fmt.Fprintf(&sb, "source=%s\n", state.Source)
	fmt.Fprintf(&sb, "source_type=%s\n", state.SourceType)

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create runstate dir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, ".runstate-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(sb.String()); err != nil {
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
