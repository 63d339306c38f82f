package tokenstore

import "sync"

// Memory is an in-process token slot. Used by tests and by callers that
// deliberately do not want the session to survive a restart.
type Memory struct {
	mu    sync.RWMutex
	token string
	set   bool
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.set {
		return "", ErrNoToken
	}
	return m.token, nil
}

func (m *Memory) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.set = true
	return nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.set = false
	return nil
}
