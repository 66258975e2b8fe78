package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/kbukum/audiotranscriber/coordinator"
	"github.com/kbukum/audiotranscriber/record"
)

// Emitted is one record handed to a MemoryEmitter.
type Emitted struct {
	Tag    string
	Record *record.Record
}

// MemoryEmitter stores emitted records in order.
type MemoryEmitter struct {
	// FailOn makes Emit fail for records whose path equals this value.
	FailOn string

	mu      sync.Mutex
	emitted []Emitted
}

func (m *MemoryEmitter) Emit(_ context.Context, tag string, rec *record.Record) error {
	if m.FailOn != "" {
		if p, _ := rec.GetString("path"); p == m.FailOn {
			return fmt.Errorf("downstream rejected %s", p)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emitted = append(m.emitted, Emitted{Tag: tag, Record: rec.Clone()})
	return nil
}

// Records returns everything emitted so far.
func (m *MemoryEmitter) Records() []Emitted {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Emitted(nil), m.emitted...)
}

// MemoryDeadLetter stores dead letters.
type MemoryDeadLetter struct {
	mu      sync.Mutex
	letters []coordinator.Letter
}

func (m *MemoryDeadLetter) DeadLetter(_ context.Context, l coordinator.Letter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.letters = append(m.letters, l)
	return nil
}

// Letters returns the stored letters.
func (m *MemoryDeadLetter) Letters() []coordinator.Letter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]coordinator.Letter(nil), m.letters...)
}

// MemoryDeduper is a set of fingerprints.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (m *MemoryDeduper) Seen(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[key], nil
}

func (m *MemoryDeduper) Mark(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	m.seen[key] = true
	return nil
}

// MemoryArchive stores uploads by path.
type MemoryArchive struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (m *MemoryArchive) Upload(_ context.Context, path string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[path] = data
	return nil
}

// File returns an uploaded file.
func (m *MemoryArchive) File(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[path]
	return b, ok
}
