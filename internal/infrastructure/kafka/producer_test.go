package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestNewProducer_KeysHashToPartitions(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "storefront-cart-events")
	defer p.Close()

	assert.Equal(t, "storefront-cart-events", p.writer.Topic)
	assert.IsType(t, &kafka.Hash{}, p.writer.Balancer)
	assert.Equal(t, kafka.RequireOne, p.writer.RequiredAcks)
}

func TestProducer_PublishRejectsUnencodableEvent(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "storefront-cart-events")
	defer p.Close()

	err := p.Publish(context.Background(), "cart-1", make(chan int))

	assert.ErrorContains(t, err, "failed to marshal event")
}
