package messaging

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Published is a message captured by Memory.
type Published struct {
	Destination string
	Message     OutgoingMessage
}

// Memory records published messages in process.
type Memory struct {
	mu     sync.Mutex
	msgs   []Published
	closed bool
}

// NewMemory returns an empty in-process publisher.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := checkPublish(ctx, destination); err != nil {
		return PublishResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return PublishResult{}, ErrClosed
	}
	m.msgs = append(m.msgs, Published{Destination: destination, Message: msg})

	return PublishResult{
		MessageID: strconv.Itoa(len(m.msgs)),
		Topic:     destination,
		Timestamp: time.Now(),
	}, nil
}

// Messages returns a snapshot of everything published so far.
func (m *Memory) Messages() []Published {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Published(nil), m.msgs...)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
