package mqtt

import (
	"context"
)

// MessageHandler receives messages for a subscribed topic filter.
type MessageHandler func(ctx context.Context, topic string, payload []byte)

// Client is the subset of an MQTT v5 session the master's mirror needs.
type Client interface {
	// Start begins connecting in the background and returns at once.
	Start(ctx context.Context) error

	// Disconnect sends DISCONNECT and stops reconnecting.
	Disconnect(ctx context.Context)

	// AwaitConnection blocks until the first connection is up or ctx is done.
	AwaitConnection(ctx context.Context) error

	Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error

	// Subscribe routes messages matching topic to handler. Subscriptions are
	// replayed after every reconnect.
	Subscribe(ctx context.Context, topic string, qos int, handler MessageHandler) error
}
