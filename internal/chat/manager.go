package chat

import (
	"sync"

	"github.com/inkwell-app/inkwell/internal/ai"
)

// Manager hands out one coordinator per conversation. Coordinators are
// created on first use and kept for the life of the process so the active
// session cache and pending queue survive across requests.
type Manager struct {
	store    Store
	provider ai.StreamProvider
	emitter  Emitter
	window   int

	mu     sync.Mutex
	coords map[string]*Coordinator
}

func NewManager(store Store, provider ai.StreamProvider, emitter Emitter, contextWindowSize int) *Manager {
	return &Manager{
		store:    store,
		provider: provider,
		emitter:  emitter,
		window:   contextWindowSize,
		coords:   make(map[string]*Coordinator),
	}
}

func (m *Manager) Coordinator(conversationID string) *Coordinator {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coords[conversationID]
	if !ok {
		c = NewCoordinator(conversationID, m.store, m.provider, m.emitter, m.window)
		m.coords[conversationID] = c
	}
	return c
}
