package events

import (
	"context"

	"tradeledger/internal/adapters/kafka"
	"tradeledger/pkg/logger"
)

// KafkaRelay forwards bus events to Kafka so consumers outside the
// process receive position-closed notifications without polling.
type KafkaRelay struct {
	bus      *Bus
	producer *kafka.Producer
	log      *logger.Logger
}

// NewKafkaRelay creates a relay between the in-process bus and Kafka.
func NewKafkaRelay(bus *Bus, producer *kafka.Producer) *KafkaRelay {
	return &KafkaRelay{
		bus:      bus,
		producer: producer,
		log:      logger.Get().With("component", "event_relay"),
	}
}

// Run subscribes to the bus and publishes every event until the context
// is cancelled. Publish failures are logged, not retried; the in-process
// bus stays authoritative for local subscribers.
func (r *KafkaRelay) Run(ctx context.Context) {
	ch, cancel := r.bus.Subscribe(64)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := r.producer.Publish(ctx, TopicPositionClosed, event.PositionID.String(), event); err != nil {
				r.log.Errorf("Failed to relay position closed event: %v", err)
			}
		}
	}
}
