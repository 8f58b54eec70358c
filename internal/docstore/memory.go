package docstore

import "sync"

// MemoryBackend is a pure in-memory Backend, the docstore analogue of the
// teacher's MemoryFS: used by tests and by any caller that wants a
// versioned filesystem with no on-disk footprint at all.
type MemoryBackend struct {
	mu     sync.Mutex
	blocks map[string]map[string][]byte
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{blocks: make(map[string]map[string][]byte)}
}

func (m *MemoryBackend) SaveBlock(documentID, blockID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.blocks[documentID]
	if !ok {
		doc = make(map[string][]byte)
		m.blocks[documentID] = doc
	}
	doc[blockID] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryBackend) LoadBlocks(documentID string) (map[string][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.blocks[documentID]
	if !ok {
		return nil, nil
	}
	out := make(map[string][]byte, len(doc))
	for k, v := range doc {
		out[k] = append([]byte(nil), v...)
	}
	return out, nil
}

func (m *MemoryBackend) Close() error { return nil }
