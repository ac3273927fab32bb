package consumer

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/clearfunnel/attribution-engine/internal/queue"
)

// receiveRetryDelay spaces out polls after a failed receive so a broken
// queue connection does not spin the loop.
const receiveRetryDelay = time.Second

// ReceiverConfig configures the SQS receiver.
type ReceiverConfig struct {
	MaxMessages     int32
	WaitTimeSeconds int32
	BufferSize      int
}

// Receiver long-polls SQS and feeds raw messages to the next stage.
type Receiver struct {
	consumer queue.QueueConsumer
	config   ReceiverConfig
	log      *zap.Logger
}

// NewReceiver creates a new SQS receiver.
func NewReceiver(consumer queue.QueueConsumer, config ReceiverConfig, log *zap.Logger) *Receiver {
	return &Receiver{
		consumer: consumer,
		config:   config,
		log:      log,
	}
}

// Start polls the queue until ctx is cancelled, forwarding every received
// message downstream. The output channel is closed on return.
func (r *Receiver) Start(ctx context.Context, out chan<- types.Message) {
	defer close(out)

	for ctx.Err() == nil {
		batch, err := r.poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			r.log.Error("Error receiving messages from SQS", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(receiveRetryDelay):
			}
			continue
		}

		if len(batch) == 0 {
			continue
		}
		r.log.Debug("Received messages from SQS", zap.Int("message_count", len(batch)))

		for _, msg := range batch {
			select {
			case <-ctx.Done():
				r.log.Info("Receiver shutting down while sending messages")
				return
			case out <- msg:
			}
		}
	}

	r.log.Info("Receiver shutting down")
}

// poll issues one long-poll receive. Conversion payloads travel in the
// message body, so no message attributes are requested.
func (r *Receiver) poll(ctx context.Context) ([]types.Message, error) {
	result, err := r.consumer.ReceiveMessages(ctx, &awssqs.ReceiveMessageInput{
		QueueUrl:            aws.String(r.consumer.QueueURL()),
		MaxNumberOfMessages: r.config.MaxMessages,
		WaitTimeSeconds:     r.config.WaitTimeSeconds,
	})
	if err != nil {
		return nil, err
	}
	return result.Messages, nil
}
