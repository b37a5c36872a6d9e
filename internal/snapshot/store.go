// Package snapshot persists universe snapshots by name.
package snapshot

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"sync"
	"time"

	"astral-server/internal/shared/errors"
	"astral-server/internal/universe"
)

type Info struct {
	Name    string    `json:"name"`
	Tick    uint64    `json:"tick"`
	Size    int       `json:"size_bytes"`
	SavedAt time.Time `json:"saved_at"`
}

type Store interface {
	Save(ctx context.Context, name string, snap universe.Snapshot) (Info, error)
	Load(ctx context.Context, name string) (universe.Snapshot, error)
	List(ctx context.Context) ([]Info, error)
	Delete(ctx context.Context, name string) error
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return errors.Validationf("snapshot name %q must be 1-64 letters, digits, '-' or '_'", name)
	}
	return nil
}

func Encode(snap universe.Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, errors.WrapInternal("failed to encode snapshot", err)
	}
	return data, nil
}

func Decode(data []byte) (universe.Snapshot, error) {
	var snap universe.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return universe.Snapshot{}, errors.WrapInternal("failed to decode snapshot", err)
	}
	return snap, nil
}

type memoryEntry struct {
	info Info
	data []byte
}

// MemoryStore keeps encoded snapshots in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Save(_ context.Context, name string, snap universe.Snapshot) (Info, error) {
	if err := ValidateName(name); err != nil {
		return Info{}, err
	}
	data, err := Encode(snap)
	if err != nil {
		return Info{}, err
	}
	info := Info{Name: name, Tick: snap.Tick, Size: len(data), SavedAt: time.Now().UTC()}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[name] = memoryEntry{info: info, data: data}
	return info, nil
}

func (s *MemoryStore) Load(_ context.Context, name string) (universe.Snapshot, error) {
	s.mu.RLock()
	entry, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return universe.Snapshot{}, errors.NotFoundf("snapshot %q not found", name)
	}
	return Decode(entry.data)
}

func (s *MemoryStore) List(_ context.Context) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Info, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[name]; !ok {
		return errors.NotFoundf("snapshot %q not found", name)
	}
	delete(s.entries, name)
	return nil
}
