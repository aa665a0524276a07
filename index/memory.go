package index

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/caio-sobreiro/dicomcore/dicom"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/interfaces"
	"github.com/caio-sobreiro/dicomcore/types"
)

// Memory is a ResourceIndex held in maps.
type Memory struct {
	mu        sync.RWMutex
	resources map[string]*interfaces.Resource
	children  map[string][]string
}

// NewMemory returns an empty index.
func NewMemory() *Memory {
	return &Memory{
		resources: make(map[string]*interfaces.Resource),
		children:  make(map[string][]string),
	}
}

func (m *Memory) Create(ctx context.Context, id, parentID string, level types.ResourceLevel, mainTags *dicom.Dataset, metadata map[string]string) (bool, error) {
	if err := checkLevel(id, parentID, level); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.resources[id]; ok {
		if existing.Level != level {
			return false, dcmerr.New(dcmerr.KindInternalError, "resource %s exists as a %s", id, existing.Level)
		}
		return false, nil
	}
	if parentID != "" {
		parent, ok := m.resources[parentID]
		if !ok {
			return false, dcmerr.New(dcmerr.KindInexistentItem, "no parent resource %s", parentID)
		}
		if parent.Level != level-1 {
			return false, dcmerr.New(dcmerr.KindParameterOutOfRange, "a %s cannot be the parent of a %s", parent.Level, level)
		}
	}

	m.resources[id] = &interfaces.Resource{
		ID:       id,
		Level:    level,
		ParentID: parentID,
		MainTags: mainTagMap(mainTags),
		Metadata: maps.Clone(metadata),
	}
	if parentID != "" {
		m.children[parentID] = append(m.children[parentID], id)
	}
	return true, nil
}

func (m *Memory) Attach(ctx context.Context, id string, file interfaces.FileInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resources[id]
	if !ok {
		return dcmerr.New(dcmerr.KindInexistentItem, "no resource %s", id)
	}
	r.Files = append(r.Files, file)
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (*interfaces.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.resources[id]
	if !ok {
		return nil, dcmerr.New(dcmerr.KindInexistentItem, "no resource %s", id)
	}
	c := *r
	c.MainTags = maps.Clone(r.MainTags)
	c.Metadata = maps.Clone(r.Metadata)
	c.Files = slices.Clone(r.Files)
	return &c, nil
}

func (m *Memory) Lookup(ctx context.Context, level types.ResourceLevel, tag dicom.Tag, value string) ([]string, error) {
	key := tag.Format()
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for id, r := range m.resources {
		if v, ok := r.MainTags[key]; ok && r.Level == level && v == value {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (m *Memory) Children(ctx context.Context, id string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.resources[id]; !ok {
		return nil, dcmerr.New(dcmerr.KindInexistentItem, "no resource %s", id)
	}
	out := slices.Clone(m.children[id])
	slices.Sort(out)
	return out, nil
}

func (m *Memory) List(ctx context.Context, level types.ResourceLevel) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for id, r := range m.resources {
		if r.Level == level {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out, nil
}
