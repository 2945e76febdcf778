package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrClosed is returned when publishing on a closed client.
	ErrClosed = errors.New("messaging: client closed")
	// ErrDestinationRequired is returned when the topic or subject is empty.
	ErrDestinationRequired = errors.New("messaging: destination is required")
)

// Messaging publishes messages to a destination (topic or subject).
type Messaging interface {
	io.Closer

	Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error)
}

// OutgoingMessage is a broker-agnostic message.
type OutgoingMessage struct {
	Body []byte

	// Key is used by Kafka for partitioning.
	Key []byte

	Headers []Header

	// Attributes are sent as Pub/Sub attributes.
	Attributes map[string]string
}

// Header is a message header. Duplicate keys are allowed.
type Header struct {
	Key   string
	Value []byte
}

// PublishResult carries optional broker metadata.
type PublishResult struct {
	MessageID string
	Topic     string
	Timestamp time.Time
}

func checkPublish(ctx context.Context, destination string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination == "" {
		return ErrDestinationRequired
	}
	return nil
}
