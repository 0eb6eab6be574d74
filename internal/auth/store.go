package auth

import "sync"

// Namespace is the fixed key the session is persisted under.
const Namespace = "auth-storage"

// StoreKey is the key a session for profile (the API base URL) is stored
// under. Every backend uses it, so credentials never leak to another server.
func StoreKey(profile string) string {
	if profile == "" {
		return Namespace
	}
	return Namespace + "-" + profile
}

// Store persists session state across restarts.
type Store interface {
	// Load returns the saved state, or the zero State if nothing is saved.
	Load() (State, error)
	Save(State) error
	Clear() error
}

// MemoryStore keeps state in process memory. Used in tests and when no
// durable backend is wanted.
type MemoryStore struct {
	mu    sync.Mutex
	state State
	saves int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone(), nil
}

func (m *MemoryStore) Save(st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = st.clone()
	m.saves++
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = State{}
	return nil
}

// Saves returns how many times Save was called.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
