// Package messaging 通过 Redis Stream 发布建议生命周期事件
package messaging

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"campaign-ai-api/internal/domain/service"
	"campaign-ai-api/pkg/metrics"
)

var tracer = otel.Tracer("messaging")

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{client: client, maxLen: maxLen}
}

// Publish 发布消息到指定流
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	values, err := msg.values()
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: values,
	}).Result()
	if err != nil {
		span.RecordError(err)
		metrics.RedisStreamPublished.WithLabelValues(string(stream), "error").Inc()
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	metrics.RedisStreamPublished.WithLabelValues(string(stream), "success").Inc()
	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishSuggestionEvent 发布建议生命周期事件
func (p *Producer) PublishSuggestionEvent(ctx context.Context, event service.SuggestionEvent) error {
	msg, err := NewMessage(event.Kind, event.ContextRef.ID, event)
	if err != nil {
		return err
	}
	msg.SetMetadata("suggestion_id", event.SuggestionID)
	msg.SetMetadata("version", strconv.FormatInt(event.Version, 10))

	_, err = p.Publish(ctx, StreamSuggestionLifecycle, msg)
	return err
}
