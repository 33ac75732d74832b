package events

import (
	"sync"

	"github.com/vadiminshakov/tokenswap/internal/domain"
)

const defaultBuffer = 64

// BalanceBroadcaster fans out wallet balance changes to all subscribers via buffered channels.
type BalanceBroadcaster struct {
	mu     sync.RWMutex
	subs   map[chan domain.BalanceUpdate]struct{}
	buffer int
}

// NewBalanceBroadcaster creates a broadcaster with the given per-subscriber buffer.
func NewBalanceBroadcaster(buffer int) *BalanceBroadcaster {
	if buffer < 1 {
		buffer = defaultBuffer
	}
	return &BalanceBroadcaster{
		subs:   make(map[chan domain.BalanceUpdate]struct{}),
		buffer: buffer,
	}
}

// Publish sends the update to all subscribers, dropping it for a reader that is behind.
func (b *BalanceBroadcaster) Publish(u domain.BalanceUpdate) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- u:
		default:
			// slow consumer
		}
	}
}

// Subscribe returns a channel that receives updates until Unsubscribe is called.
func (b *BalanceBroadcaster) Subscribe() chan domain.BalanceUpdate {
	ch := make(chan domain.BalanceUpdate, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the channel and closes it.
func (b *BalanceBroadcaster) Unsubscribe(ch chan domain.BalanceUpdate) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Subscribers returns the number of open subscriptions.
func (b *BalanceBroadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
