package notify

import (
	"context"
	"sync"
)

// MessageShowReminder is the type of message pushed to tabs when a reminder fires.
const MessageShowReminder = "SHOW_REMINDER"

// TabMessage is delivered to every subscribed tab.
type TabMessage struct {
	Type         string       `json:"type"`
	Notification Notification `json:"notification"`
}

// Broadcaster fans notifications out to subscribed tabs.
// A tab that is not keeping up misses the message.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan TabMessage
	nextID int
	buffer int
}

// NewBroadcaster returns a Broadcaster whose subscriptions buffer up to buffer messages.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer < 1 {
		buffer = 1
	}
	return &Broadcaster{subs: make(map[int]chan TabMessage), buffer: buffer}
}

// Subscribe registers a tab. The returned cancel func unregisters it and closes the channel.
func (b *Broadcaster) Subscribe() (<-chan TabMessage, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan TabMessage, b.buffer)
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers returns the number of connected tabs.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Notify pushes a SHOW_REMINDER message to every subscribed tab.
func (b *Broadcaster) Notify(_ context.Context, n Notification) error {
	msg := TabMessage{Type: MessageShowReminder, Notification: n}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}
