package service

import "sync"

const subscriberBuffer = 8

// hub fans session states out to subscribers. A subscriber that falls behind misses
// intermediate states; the latest one is always queued.
type hub struct {
	mu   sync.Mutex
	subs map[string]map[chan *State]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[chan *State]struct{})}
}

func (h *hub) subscribe(id string) (<-chan *State, func()) {
	ch := make(chan *State, subscriberBuffer)
	h.mu.Lock()
	if h.subs[id] == nil {
		h.subs[id] = make(map[chan *State]struct{})
	}
	h.subs[id][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if set, ok := h.subs[id]; ok {
				if _, live := set[ch]; live {
					delete(set, ch)
					close(ch)
				}
				if len(set) == 0 {
					delete(h.subs, id)
				}
			}
		})
	}
}

func (h *hub) publish(id string, st *State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[id] {
		select {
		case ch <- st:
		default:
			// Drop the oldest queued state to make room.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- st:
			default:
			}
		}
	}
}

// close ends every subscription to id.
func (h *hub) close(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[id] {
		close(ch)
	}
	delete(h.subs, id)
}

// Subscribe streams the state of id after each change. The channel is closed by cancel or
// when the session is closed.
func (r *Registry) Subscribe(id string) (<-chan *State, func()) {
	return r.hub.subscribe(id)
}
