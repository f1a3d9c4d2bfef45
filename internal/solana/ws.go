package solana

import "context"

// WSClient defines the ledger WebSocket subscription interface.
type WSClient interface {
	// SubscribeLogs subscribes to logs mentioning the given address.
	SubscribeLogs(ctx context.Context, mention string) (<-chan LogEvent, error)

	// Close closes the WebSocket connection.
	Close() error
}

// LogEvent is one logsNotification message.
type LogEvent struct {
	Signature string
	Slot      int64
	Failed    bool
}
