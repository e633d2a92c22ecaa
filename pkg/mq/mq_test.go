package mq

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeChannel 记录发布的消息
type fakeChannel struct {
	mu        sync.Mutex
	published []amqp.Publishing
	keys      []string
	err       error
	closed    bool
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.published = append(f.published, msg)
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

type bookEvent struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func TestPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisher(ch, "bookcatalog.events", zap.NewNop())

	err := p.Publish(context.Background(), Message{
		ID:         "evt-1",
		RoutingKey: "book.created",
		Body:       bookEvent{Type: "book.created", ID: "65a1b2c3d4e5f60718293a4b"},
	})
	require.NoError(t, err)

	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, "book.created", ch.keys[0])
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, "evt-1", msg.MessageId)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)

	var got bookEvent
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, "65a1b2c3d4e5f60718293a4b", got.ID)
}

func TestPublisher_PublishError(t *testing.T) {
	ch := &fakeChannel{err: amqp.ErrClosed}
	p := newPublisher(ch, "bookcatalog.events", nil)

	err := p.Publish(context.Background(), Message{RoutingKey: "book.deleted", Body: bookEvent{}})
	assert.ErrorIs(t, err, amqp.ErrClosed)
}

func TestPublisher_MarshalError(t *testing.T) {
	p := newPublisher(&fakeChannel{}, "x", nil)
	err := p.Publish(context.Background(), Message{RoutingKey: "k", Body: make(chan int)})
	assert.Error(t, err)
}

func TestPublisher_ContextCanceled(t *testing.T) {
	p := newPublisher(&fakeChannel{}, "x", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Publish(ctx, Message{RoutingKey: "k", Body: 1})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestPublisher_ConcurrentPublish(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisher(ch, "x", nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Publish(context.Background(), Message{RoutingKey: "book.updated", Body: i})
		}()
	}
	wg.Wait()
	assert.Len(t, ch.published, 20)
}

func TestPublisher_Close(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisher(ch, "x", nil)
	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}
