package kafka

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type readResult struct {
	msg kafka.Message
	err error
}

// scriptedReader returns its results in order, then blocks until ctx is done.
type scriptedReader struct {
	results []readResult
	closed  bool
}

func (r *scriptedReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.results) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	next := r.results[0]
	r.results = r.results[1:]
	return next.msg, next.err
}

func (r *scriptedReader) Close() error {
	r.closed = true
	return nil
}

func message(key string, offset int64) readResult {
	return readResult{msg: kafka.Message{Key: []byte(key), Value: []byte(`{}`), Offset: offset}}
}

func TestConsumer_SkipsMessageWhenHandlerFails(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	reader := &scriptedReader{results: []readResult{message("cart-1", 1), message("cart-2", 2)}}
	c := &Consumer{reader: reader, logger: zap.New(core)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var handled []string
	err := c.Consume(ctx, func(_ context.Context, key, _ []byte) error {
		handled = append(handled, string(key))
		if string(key) == "cart-1" {
			return errors.New("bad payload")
		}
		cancel()
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"cart-1", "cart-2"}, handled)
	require.Equal(t, 1, logs.FilterMessage("failed to handle message").Len())
	entry := logs.FilterMessage("failed to handle message").All()[0]
	assert.Equal(t, int64(1), entry.ContextMap()["offset"])
}

func TestConsumer_ReturnsWhenContextCancelled(t *testing.T) {
	c := &Consumer{reader: &scriptedReader{}, logger: zap.NewNop()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Consume(ctx, func(context.Context, []byte, []byte) error {
		t.Fatal("no message should be handled")
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestConsumer_RetriesReadErrorsAndStopsAtEOF(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	reader := &scriptedReader{results: []readResult{
		{err: errors.New("broker unavailable")},
		message("cart-1", 7),
		{err: io.EOF},
	}}
	c := &Consumer{reader: reader, logger: zap.New(core)}

	var handled int
	err := c.Consume(context.Background(), func(context.Context, []byte, []byte) error {
		handled++
		return nil
	})

	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 1, handled)
	assert.Equal(t, 1, logs.FilterMessage("failed to read message").Len())
}

func TestConsumer_CloseClosesReader(t *testing.T) {
	reader := &scriptedReader{}
	c := &Consumer{reader: reader, logger: zap.NewNop()}

	require.NoError(t, c.Close())
	assert.True(t, reader.closed)
}
