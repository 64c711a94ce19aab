package broadcast

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/camm-community/camm-server/internal/models"
)

// Broadcaster is the in-memory registry of live subscriber channels plus the
// fan-out that pushes one AlertEvent to every registered channel. Delivery is
// best effort: a full or torn-down channel is skipped, never retried, and no
// event is replayed to a subscriber that attaches later.
type Broadcaster struct {
	subscribers map[uint64]chan *models.AlertEvent
	nextID      atomic.Uint64
	buffer      int
	mu          sync.RWMutex

	// pubMu serializes fan-outs so overlapping publishers enqueue their
	// events in the same order on every subscriber channel.
	pubMu sync.Mutex
}

func New(buffer int) *Broadcaster {
	if buffer < 1 {
		buffer = 64
	}
	return &Broadcaster{
		subscribers: make(map[uint64]chan *models.AlertEvent),
		buffer:      buffer,
	}
}

// Subscribe registers a new live connection and returns its connection id and
// receive channel. The channel is closed by Unsubscribe or Close, never by
// the receiver.
func (b *Broadcaster) Subscribe() (uint64, chan *models.AlertEvent) {
	id := b.nextID.Add(1)
	ch := make(chan *models.AlertEvent, b.buffer)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()

	return id, ch
}

// Unsubscribe removes a connection from the registry and closes its channel.
// Unsubscribing an id that is already gone is a no-op.
func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

// Publish fans ev out to every current subscriber and returns the number of
// subscribers attempted. Publishes are serialized, so all subscribers observe
// concurrent publishes in one order. A slow subscriber whose buffer is full
// has the event dropped; that never fails the publish for the others or for
// the caller.
func (b *Broadcaster) Publish(ev *models.AlertEvent) int {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			slog.Warn("dropping event for slow subscriber", "subscriber_id", id, "event_type", ev.Type)
		}
	}
	return len(b.subscribers)
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels, causing open streams to exit gracefully.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
