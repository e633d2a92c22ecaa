package book

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
	"github.com/xiebiao/bookcatalog/pkg/metrics"
	"github.com/xiebiao/bookcatalog/pkg/mq"
)

// 变更事件类型(同时作为routing key)
const (
	EventBookCreated = "book.created"
	EventBookUpdated = "book.updated"
	EventBookDeleted = "book.deleted"
)

// Event 图书变更事件
// 说明:
//   - created 携带完整记录
//   - updated 携带本次合并的字段(不是更新后的完整记录)
//   - deleted 只有标识
type Event struct {
	ID         string       `json:"id"`
	Type       string       `json:"type"`
	BookID     book.ID      `json:"bookId"`
	OccurredAt time.Time    `json:"occurredAt"`
	Record     *book.Record `json:"record,omitempty"`
	Changes    *book.Record `json:"changes,omitempty"`
}

// newEvent 创建事件,分配事件ID
func newEvent(eventType string, id book.ID) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		BookID:     id,
		OccurredAt: time.Now().UTC(),
	}
}

// EventPublisher 变更事件发布接口
// 发布失败只记录日志,不影响已经完成的存储操作
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher 不发布任何事件(events.enabled=false)
type NopPublisher struct{}

// Publish 丢弃事件
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// messagePublisher mq.Publisher 中用到的部分
type messagePublisher interface {
	Publish(ctx context.Context, msg mq.Message) error
}

// MQPublisher 通过RabbitMQ发布事件
type MQPublisher struct {
	publisher messagePublisher
	timeout   time.Duration
}

// NewMQPublisher 创建RabbitMQ事件发布者
// timeout 为单次发布的超时,0表示只跟随请求上下文
func NewMQPublisher(publisher *mq.Publisher, timeout time.Duration) *MQPublisher {
	metrics.InitMetrics()
	return &MQPublisher{publisher: publisher, timeout: timeout}
}

// Publish 发布事件,routing key 为事件类型
func (p *MQPublisher) Publish(ctx context.Context, event Event) error {
	// 请求已经结束(客户端断开)时事件仍要发出去
	ctx = context.WithoutCancel(ctx)
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	err := p.publisher.Publish(ctx, mq.Message{
		ID:         event.ID,
		RoutingKey: event.Type,
		Body:       event,
	})
	metrics.IncEventPublished(event.Type, err)
	return err
}

// publish 发布事件,失败时记录日志
func publish(ctx context.Context, publisher EventPublisher, logger *zap.Logger, event Event) {
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn("图书变更事件发布失败",
			zap.String("event_id", event.ID),
			zap.String("type", event.Type),
			zap.String("book_id", event.BookID.Hex()),
			zap.Error(err),
		)
	}
}
