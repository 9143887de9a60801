// Package eventbus provides in-memory pub/sub for run events, used to
// feed SSE streams without polling the database.
package eventbus

import (
	"sync"

	"github.com/hocy1609/spybot/model"
)

// Bus provides pub/sub for events keyed by topic (a run ID or a
// well-known stream name like "monitor").
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]chan *model.Event
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{
		subs: make(map[string][]chan *model.Event),
	}
}

// Subscribe creates a channel that receives events for a topic.
func (b *Bus) Subscribe(topic string) chan *model.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan *model.Event, 64)
	b.subs[topic] = append(b.subs[topic], ch)
	return ch
}

// Unsubscribe removes a channel from the topic's subscribers and closes it.
func (b *Bus) Unsubscribe(topic string, ch chan *model.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[topic]
	for i, s := range subs {
		if s == ch {
			b.subs[topic] = append(subs[:i], subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// Publish sends an event to all subscribers for its topic.
func (b *Bus) Publish(event *model.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[event.Topic] {
		select {
		case ch <- event:
		default:
			// Drop event if subscriber is too slow.
		}
	}
}
