package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradeledger/pkg/logger"
)

// PositionClosedEvent is the payload contract for "trade closed"
// notifications: the affected position and the date the trade settles on,
// so consumers (e.g. a calendar summary) can refresh without polling.
type PositionClosedEvent struct {
	PositionID  uuid.UUID       `json:"position_id"`
	UserID      uuid.UUID       `json:"user_id"`
	Ticker      string          `json:"ticker"`
	SettledOn   time.Time       `json:"settled_on"` // calendar date
	RealizedPnL decimal.Decimal `json:"realized_pnl"`
	ClosedAt    time.Time       `json:"closed_at"`
}

// Bus is an in-process pub/sub channel for position-closed notifications.
// Publishing never blocks: a subscriber that cannot keep up misses events
// instead of stalling the ledger.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan PositionClosedEvent
	next int
	log  *logger.Logger
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[int]chan PositionClosedEvent),
		log:  logger.Get().With("component", "event_bus"),
	}
}

// Subscribe registers a buffered subscriber channel. The returned cancel
// function removes the subscription and closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan PositionClosedEvent, func()) {
	if buffer <= 0 {
		buffer = 16
	}

	b.mu.Lock()
	id := b.next
	b.next++
	ch := make(chan PositionClosedEvent, buffer)
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber.
func (b *Bus) Publish(event PositionClosedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.log.Warnw("subscriber buffer full, event dropped",
				"position_id", event.PositionID,
			)
		}
	}
}
