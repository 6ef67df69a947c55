package engine

import "sync"

// mailbox is an unbounded FIFO with a wake-up signal. Producers never block,
// which matters because audio callbacks may fire from inside the loop.
type mailbox struct {
	mu     sync.Mutex
	items  []any
	signal chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{signal: make(chan struct{}, 1)}
}

func (m *mailbox) push(v any) {
	m.mu.Lock()
	m.items = append(m.items, v)
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// drain removes and returns everything queued so far, oldest first.
func (m *mailbox) drain() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.items
	m.items = nil
	return items
}

func (m *mailbox) ready() <-chan struct{} {
	return m.signal
}
