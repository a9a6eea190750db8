package workflow

import (
	"sync"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

// broadcaster fans state snapshots out to listeners.
type broadcaster struct {
	listeners []chan State
	closed    bool
	mu        sync.RWMutex
}

// AddListener adds a state listener. The channel is closed on RemoveListener or Close.
func (b *broadcaster) AddListener() chan State {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan State, constants.EventChannelBuffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes a state listener.
func (b *broadcaster) RemoveListener(ch chan State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

func (b *broadcaster) send(state State) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- state:
		default:
			// Listener buffer full, skip.
		}
	}
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, listener := range b.listeners {
		close(listener)
	}
	b.listeners = nil
	b.closed = true
}
