package progress

import "sync"

// MemoryGateway is a Gateway backed by a map. It is used in tests and as a
// fallback when the database cannot be opened.
type MemoryGateway struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryGateway returns a gateway pre-filled with values (may be nil).
func NewMemoryGateway(values map[string]string) *MemoryGateway {
	m := &MemoryGateway{values: make(map[string]string, len(values))}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

func (m *MemoryGateway) Load(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryGateway) Save(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Update runs fn while holding the gateway lock. Writes are applied only
// when fn returns nil.
func (m *MemoryGateway) Update(fn func(kv Gateway) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{values: m.values, pending: make(map[string]string)}
	if err := fn(tx); err != nil {
		return err
	}
	for k, v := range tx.pending {
		m.values[k] = v
	}
	return nil
}

type memoryTx struct {
	values  map[string]string
	pending map[string]string
}

func (tx *memoryTx) Load(key string) (string, bool, error) {
	if v, ok := tx.pending[key]; ok {
		return v, true, nil
	}
	v, ok := tx.values[key]
	return v, ok, nil
}

func (tx *memoryTx) Save(key, value string) error {
	tx.pending[key] = value
	return nil
}
