package messaging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()

	res, err := m.Publish(ctx, "gettoken.audit", OutgoingMessage{
		Body:    []byte(`{"action":"getotp"}`),
		Headers: []Header{{Key: "cID", Value: []byte("abc")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "1", res.MessageID)
	assert.Equal(t, "gettoken.audit", res.Topic)

	_, err = m.Publish(ctx, "", OutgoingMessage{})
	assert.ErrorIs(t, err, ErrDestinationRequired)

	got := m.Messages()
	require.Len(t, got, 1)
	assert.Equal(t, "gettoken.audit", got[0].Destination)
	assert.Equal(t, "abc", string(got[0].Message.Headers[0].Value))

	require.NoError(t, m.Close())
	_, err = m.Publish(ctx, "gettoken.audit", OutgoingMessage{})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMemoryCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemory().Publish(ctx, "x", OutgoingMessage{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewFromDriver(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	m, err := NewFromDriver(ctx, "", FactoryOptions{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, m)

	_, err = NewFromDriver(ctx, "rabbit", FactoryOptions{})
	assert.ErrorIs(t, err, ErrUnknownDriver)

	_, err = NewFromDriver(ctx, DriverKafka, FactoryOptions{})
	assert.ErrorIs(t, err, ErrKafkaBrokersRequired)

	_, err = NewFromDriver(ctx, DriverNSQ, FactoryOptions{})
	assert.ErrorIs(t, err, ErrNSQProducerAddrRequired)

	_, err = NewFromDriver(ctx, DriverNATS, FactoryOptions{})
	assert.ErrorIs(t, err, ErrNATSURLRequired)

	_, err = NewFromDriver(ctx, DriverGooglePubSub, FactoryOptions{})
	assert.ErrorIs(t, err, ErrPubSubProjectIDRequired)
}

func TestKafkaClose(t *testing.T) {
	t.Parallel()

	k, err := NewKafka(KafkaConfig{Brokers: []string{"localhost:9092"}})
	require.NoError(t, err)
	require.NoError(t, k.Close())
	require.NoError(t, k.Close())

	_, err = k.Publish(context.Background(), "topic", OutgoingMessage{})
	assert.ErrorIs(t, err, ErrClosed)
}
