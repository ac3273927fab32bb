package queue

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/clearfunnel/attribution-engine/internal/domain"
)

// QueuePublisher publishes raw conversion events for asynchronous
// processing.
type QueuePublisher interface {
	PublishEvent(ctx context.Context, event *domain.ConversionEvent) error
}

// QueueConsumer consumes raw conversion event messages from a queue.
type QueueConsumer interface {
	ReceiveMessages(ctx context.Context, input *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, input *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error)
	QueueURL() string
}
