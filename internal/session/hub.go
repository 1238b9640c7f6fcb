package session

import "sync"

// Hub fans auth-state changes out to every open page of a session. Keys
// are session token ids.
type Hub struct {
	mu   sync.Mutex
	next uint64
	subs map[string]map[uint64]chan State
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[uint64]chan State)}
}

// Subscribe registers a listener for key. The returned function
// unsubscribes and closes the channel; calling it more than once is safe.
func (h *Hub) Subscribe(key string) (<-chan State, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	id := h.next
	ch := make(chan State, 4)
	if h.subs[key] == nil {
		h.subs[key] = make(map[uint64]chan State)
	}
	h.subs[key][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[key], id)
			if len(h.subs[key]) == 0 {
				delete(h.subs, key)
			}
			close(ch)
		})
	}
}

// Publish delivers state to every listener of key. A listener whose
// buffer is full misses the event rather than blocking the publisher.
func (h *Hub) Publish(key string, state State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[key] {
		select {
		case ch <- state:
		default:
		}
	}
}

// Subscribers returns the number of listeners for key.
func (h *Hub) Subscribers(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[key])
}
