package consumer

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/clearfunnel/attribution-engine/internal/queue"
)

// Consumer orchestrates the queue-driven ingestion pipeline: receive SQS
// messages, parse them into conversion events, run each through the
// decisioning pipeline.
type Consumer struct {
	receiver  *Receiver
	parser    *ParserStage
	processor *Processor
}

// NewConsumer creates a new consumer with a staged pipeline architecture.
func NewConsumer(queueConsumer queue.QueueConsumer, processor EventProcessor, log *zap.Logger) *Consumer {
	receiver := NewReceiver(queueConsumer, ReceiverConfig{
		MaxMessages:     10,
		WaitTimeSeconds: 20,
		BufferSize:      100,
	}, log)

	parserStage := NewParserStage(queueConsumer, NewJSONEventParser(), log)

	return &Consumer{
		receiver:  receiver,
		parser:    parserStage,
		processor: NewProcessor(processor, log),
	}
}

// Start begins the consumer pipeline and blocks until all stages exit.
func (c *Consumer) Start(ctx context.Context) error {
	messageChan := make(chan types.Message, 100)
	envelopeChan := make(chan *Envelope, 100)

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		c.receiver.Start(ctx, messageChan)
	}()

	go func() {
		defer wg.Done()
		c.parser.Start(ctx, messageChan, envelopeChan)
	}()

	go func() {
		defer wg.Done()
		c.processor.Start(ctx, envelopeChan)
	}()

	wg.Wait()
	return nil
}
