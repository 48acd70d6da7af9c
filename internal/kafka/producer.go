package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"gomoku-platform/backend/internal/events"
)

// shadowRetries bounds retries on the asynchronous shadow path before a
// message is routed to the dead-letter topic.
const shadowRetries = 3

// shadowRetryBackoff is the pause between shadow publish attempts.
const shadowRetryBackoff = 200 * time.Millisecond

// publishTimeout bounds a single synchronous publish.
const publishTimeout = 5 * time.Second

// ProducerStats tracks publish outcomes.
type ProducerStats struct {
	MessagesSent    int64     `json:"messages_sent"`
	MessagesErrored int64     `json:"messages_errored"`
	DeadLettered    int64     `json:"dead_lettered"`
	LastError       string    `json:"last_error,omitempty"`
	LastErrorTime   time.Time `json:"last_error_time,omitempty"`
}

// Producer publishes event envelopes to the log. Queue events go through
// PublishSync and must not be lost before acknowledgment; move and match
// mirrors go through PublishAsync, which never blocks the caller and
// dead-letters after bounded retries.
type Producer struct {
	writer *kafka.Writer

	mu    sync.Mutex
	stats ProducerStats
	wg    sync.WaitGroup
}

// NewProducer creates a producer for the given brokers. The writer keys
// partitions by message key via the hash balancer and waits for full ISR
// acknowledgment so a retried publish cannot reorder within a partition.
func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		ErrorLogger:  kafka.LoggerFunc(log.Printf),
	}
	return &Producer{writer: writer}
}

// PublishSync marshals v and writes it to topic under key, blocking until
// the log acknowledges or the context expires.
func (p *Producer) PublishSync(ctx context.Context, topic, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event for %s: %w", topic, err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	})
	p.record(err, false)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// PublishAsync writes on the shadow path: the caller returns immediately
// and a background attempt retries a bounded number of times before
// routing the payload to the dead-letter topic. Shadow failures never
// fail the foreground operation; authoritative state lives in the
// session store.
func (p *Producer) PublishAsync(topic, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[KAFKA] Failed to marshal shadow event for %s: %v", topic, err)
		p.record(err, false)
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		msg := kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: data,
			Time:  time.Now(),
		}

		var lastErr error
		for attempt := 0; attempt < shadowRetries; attempt++ {
			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			lastErr = p.writer.WriteMessages(ctx, msg)
			cancel()
			if lastErr == nil {
				p.record(nil, false)
				return
			}
			time.Sleep(shadowRetryBackoff)
		}

		log.Printf("[KAFKA] Shadow publish to %s failed after %d attempts, dead-lettering: %v",
			topic, shadowRetries, lastErr)
		p.record(lastErr, true)

		dlctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		dead := kafka.Message{
			Topic:   events.TopicDeadLetter,
			Key:     []byte(key),
			Value:   data,
			Headers: []kafka.Header{{Key: "origin-topic", Value: []byte(topic)}},
			Time:    time.Now(),
		}
		if err := p.writer.WriteMessages(dlctx, dead); err != nil {
			log.Printf("[KAFKA] Dead-letter publish failed, dropping event from %s: %v", topic, err)
		}
	}()
}

// Stats returns a copy of the producer counters.
func (p *Producer) Stats() ProducerStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Close flushes pending shadow publishes and closes the writer.
func (p *Producer) Close() error {
	p.wg.Wait()
	return p.writer.Close()
}

func (p *Producer) record(err error, deadLettered bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.stats.MessagesErrored++
		p.stats.LastError = err.Error()
		p.stats.LastErrorTime = time.Now()
		if deadLettered {
			p.stats.DeadLettered++
		}
		return
	}
	p.stats.MessagesSent++
}
