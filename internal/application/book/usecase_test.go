package book

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
	"github.com/xiebiao/bookcatalog/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/bookcatalog/pkg/metrics"
	"github.com/xiebiao/bookcatalog/pkg/mq"
)

// recordingPublisher 记录收到的事件
type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type useCases struct {
	list   *ListBooksUseCase
	get    *GetBookUseCase
	create *CreateBookUseCase
	update *UpdateBookUseCase
	del    *DeleteBookUseCase
}

func newUseCases(events EventPublisher, logger *zap.Logger) useCases {
	svc := book.NewService(memory.NewBookRepository())
	return useCases{
		list:   NewListBooksUseCase(svc),
		get:    NewGetBookUseCase(svc),
		create: NewCreateBookUseCase(svc, events, logger),
		update: NewUpdateBookUseCase(svc, events, logger),
		del:    NewDeleteBookUseCase(svc, events, logger),
	}
}

func mustRecord(t *testing.T, js string) *book.Record {
	t.Helper()
	rec, err := book.DecodeRecord([]byte(js))
	require.NoError(t, err)
	return rec
}

func strPtr(s string) *string { return &s }

func TestUseCases_Lifecycle(t *testing.T) {
	events := &recordingPublisher{}
	uc := newUseCases(events, zap.NewNop())
	ctx := context.Background()

	created, err := uc.create.Execute(ctx, mustRecord(t, `{"title":"A","author":"B","price":10}`))
	require.NoError(t, err)
	id := created.InsertedID.Hex()

	list, err := uc.list.Execute(ctx, ListBooksRequest{SearchTerm: strPtr("a")})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	updated, err := uc.update.Execute(ctx, id, mustRecord(t, `{"price":20}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.ModifiedCount)

	again, err := uc.update.Execute(ctx, id, mustRecord(t, `{"price":20}`))
	require.NoError(t, err)
	assert.Equal(t, int64(0), again.ModifiedCount)

	got, err := uc.get.Execute(ctx, id)
	require.NoError(t, err)
	body, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"_id":"`+id+`","title":"A","author":"B","price":20}`, string(body))

	deleted, err := uc.del.Execute(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted.DeletedCount)

	deleted, err = uc.del.Execute(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted.DeletedCount)

	// 无变化的更新和重复删除不发布事件
	assert.Equal(t, []string{EventBookCreated, EventBookUpdated, EventBookDeleted}, events.types())

	for _, e := range events.events {
		assert.Equal(t, created.InsertedID, e.BookID)
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.OccurredAt.IsZero())
	}
	require.NotNil(t, events.events[0].Record)
	assert.Equal(t, []string{"_id", "title", "author", "price"}, events.events[0].Record.Keys())
	require.NotNil(t, events.events[1].Changes)
	assert.Equal(t, []string{"price"}, events.events[1].Changes.Keys())
	assert.Nil(t, events.events[2].Record)
}

func TestUseCases_ErrorsDoNotPublish(t *testing.T) {
	events := &recordingPublisher{}
	uc := newUseCases(events, zap.NewNop())
	ctx := context.Background()

	_, err := uc.update.Execute(ctx, "bad-id", mustRecord(t, `{"x":1}`))
	assert.ErrorIs(t, err, book.ErrInvalidIdentifier)

	_, err = uc.del.Execute(ctx, "bad-id")
	assert.ErrorIs(t, err, book.ErrInvalidIdentifier)

	_, err = uc.create.Execute(ctx, mustRecord(t, `{"_id":42}`))
	assert.ErrorIs(t, err, book.ErrInvalidIdentifier)

	assert.Empty(t, events.types())
}

func TestUseCases_PublishFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	events := &recordingPublisher{err: errors.New("broker down")}
	uc := newUseCases(events, zap.New(core))

	res, err := uc.create.Execute(context.Background(), mustRecord(t, `{"title":"A"}`))
	require.NoError(t, err, "事件发布失败不影响请求结果")
	assert.True(t, res.Acknowledged)

	entries := logs.FilterMessage("图书变更事件发布失败").All()
	require.Len(t, entries, 1)
	assert.Equal(t, EventBookCreated, entries[0].ContextMap()["type"])
	assert.Equal(t, res.InsertedID.Hex(), entries[0].ContextMap()["book_id"])
}

// fakeMessagePublisher 记录发出的消息
type fakeMessagePublisher struct {
	msgs    []mq.Message
	ctxErr  error
	hasDead bool
}

func (f *fakeMessagePublisher) Publish(ctx context.Context, msg mq.Message) error {
	f.msgs = append(f.msgs, msg)
	f.ctxErr = ctx.Err()
	_, f.hasDead = ctx.Deadline()
	return nil
}

func TestMQPublisher(t *testing.T) {
	metrics.InitMetrics()
	fake := &fakeMessagePublisher{}
	p := &MQPublisher{publisher: fake, timeout: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	event := newEvent(EventBookDeleted, book.NewID())
	require.NoError(t, p.Publish(ctx, event))

	require.Len(t, fake.msgs, 1)
	assert.Equal(t, event.ID, fake.msgs[0].ID)
	assert.Equal(t, EventBookDeleted, fake.msgs[0].RoutingKey)
	assert.NoError(t, fake.ctxErr, "请求上下文取消后事件仍然发布")
	assert.True(t, fake.hasDead)

	body, err := json.Marshal(fake.msgs[0].Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"type":"book.deleted"`)
	assert.Contains(t, string(body), `"bookId":"`+event.BookID.Hex()+`"`)
	assert.NotContains(t, string(body), `"record"`)
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), newEvent(EventBookCreated, book.NewID())))
}
