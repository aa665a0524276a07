package storage

import (
	"context"
	"slices"
	"sync"

	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/interfaces"
)

// Memory keeps attachments in a map. It is meant for tests and for
// short-lived servers. Like Filesystem, it ignores the content type.
type Memory struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemory returns an empty in-memory storage area.
func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte)}
}

func (m *Memory) Create(ctx context.Context, id string, content []byte, contentType interfaces.ContentType) error {
	if err := checkUUID(id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[id]; ok {
		return dcmerr.New(dcmerr.KindBadSequenceOfCalls, "attachment %s already exists", id)
	}
	m.files[id] = slices.Clone(content)
	return nil
}

func (m *Memory) Read(ctx context.Context, id string, contentType interfaces.ContentType) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[id]
	if !ok {
		return nil, dcmerr.New(dcmerr.KindInexistentFile, "no attachment %s", id)
	}
	return slices.Clone(data), nil
}

func (m *Memory) Remove(ctx context.Context, id string, contentType interfaces.ContentType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, id)
	return nil
}

// Len returns the number of attachments held.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}
