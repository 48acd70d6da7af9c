package kafka

import (
	"fmt"
	"log"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"gomoku-platform/backend/internal/events"
)

// EnsureTopics provisions the event log topics on startup. queue-events
// gets a single partition so ordering is total; the per-game topics get
// eventPartitions. Existing topics are left untouched.
func EnsureTopics(brokers []string, eventPartitions int, retention time.Duration) error {
	if len(brokers) == 0 {
		return fmt.Errorf("no brokers configured")
	}

	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("resolve controller: %w", err)
	}

	ctrlConn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer ctrlConn.Close()

	retentionMs := strconv.FormatInt(retention.Milliseconds(), 10)
	dlqRetentionMs := strconv.FormatInt((30 * 24 * time.Hour).Milliseconds(), 10)

	configs := []kafka.TopicConfig{
		{
			Topic:             events.TopicQueueEvents,
			NumPartitions:     1,
			ReplicationFactor: 1,
			ConfigEntries: []kafka.ConfigEntry{
				{ConfigName: "retention.ms", ConfigValue: retentionMs},
			},
		},
		{
			Topic:             events.TopicMatchMade,
			NumPartitions:     eventPartitions,
			ReplicationFactor: 1,
			ConfigEntries: []kafka.ConfigEntry{
				{ConfigName: "retention.ms", ConfigValue: retentionMs},
			},
		},
		{
			Topic:             events.TopicGameMoves,
			NumPartitions:     eventPartitions,
			ReplicationFactor: 1,
			ConfigEntries: []kafka.ConfigEntry{
				{ConfigName: "retention.ms", ConfigValue: retentionMs},
			},
		},
		{
			Topic:             events.TopicDeadLetter,
			NumPartitions:     1,
			ReplicationFactor: 1,
			ConfigEntries: []kafka.ConfigEntry{
				{ConfigName: "retention.ms", ConfigValue: dlqRetentionMs},
			},
		},
	}

	if err := ctrlConn.CreateTopics(configs...); err != nil {
		return fmt.Errorf("create topics: %w", err)
	}

	log.Printf("[KAFKA] Topics ensured: %s(1), %s(%d), %s(%d), %s(1)",
		events.TopicQueueEvents, events.TopicMatchMade, eventPartitions,
		events.TopicGameMoves, eventPartitions, events.TopicDeadLetter)
	return nil
}
