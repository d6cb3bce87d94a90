package events

// Event topic constants
const (
	// Trading events
	TopicPositionClosed = "trading.position_closed"
)
