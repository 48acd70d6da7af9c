package kafka

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// GroupConsumer reads a topic within a consumer group, committing offsets
// only after the handler's materialization write succeeded. Duplicates
// under redelivery are the handler's problem (at-least-once).
type GroupConsumer struct {
	reader *kafka.Reader
	topic  string
}

// NewGroupConsumer creates a consumer group reader for topic.
func NewGroupConsumer(brokers []string, topic, groupID string) *GroupConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // synchronous commits
		StartOffset:    kafka.FirstOffset,
	})
	return &GroupConsumer{reader: reader, topic: topic}
}

// Run fetches messages and feeds them to handler until ctx is cancelled.
// A handler error leaves the offset uncommitted so the message redelivers;
// the loop logs and backs off rather than advancing past a failed write.
func (c *GroupConsumer) Run(ctx context.Context, handler func(ctx context.Context, key, value []byte) error) {
	log.Printf("[KAFKA] Consumer started: topic=%s group=%s", c.topic, c.reader.Config().GroupID)
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return
			}
			log.Printf("[KAFKA] Fetch error on %s: %v", c.topic, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		if err := handler(ctx, msg.Key, msg.Value); err != nil {
			log.Printf("[KAFKA] Handler error on %s offset %d (will redeliver): %v", c.topic, msg.Offset, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Printf("[KAFKA] Commit error on %s offset %d: %v", c.topic, msg.Offset, err)
		}
	}
}

// Close closes the underlying reader.
func (c *GroupConsumer) Close() error {
	return c.reader.Close()
}

// PartitionConsumer reads a single partition from an explicit offset. The
// matchmaking aggregator uses it so that the consumed offset can be
// committed atomically with the state snapshot, outside Kafka's own group
// offset storage.
type PartitionConsumer struct {
	reader *kafka.Reader
}

// NewPartitionConsumer creates a reader over one partition, positioned at
// offset (pass 0 to start from the beginning).
func NewPartitionConsumer(brokers []string, topic string, partition int, offset int64) (*PartitionConsumer, error) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: partition,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	if err := reader.SetOffset(offset); err != nil {
		reader.Close()
		return nil, err
	}
	return &PartitionConsumer{reader: reader}, nil
}

// Fetch returns the next message and its offset.
func (c *PartitionConsumer) Fetch(ctx context.Context) (kafka.Message, error) {
	return c.reader.FetchMessage(ctx)
}

// Close closes the underlying reader.
func (c *PartitionConsumer) Close() error {
	return c.reader.Close()
}
