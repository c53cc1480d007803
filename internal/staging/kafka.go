package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"mdm/internal/record"
	"mdm/pkg/platform/sentinel"
)

// Kafka implements Channel on a Kafka cluster. Topics are single-partition,
// so ordering within a topic is total. Snapshots use a throwaway consumer
// pinned to the earliest offset and read until no record arrives within the
// idle timeout.
type Kafka struct {
	brokers []string
	client  *kgo.Client
	admin   *kadm.Client
	idle    time.Duration
	logger  *slog.Logger
}

// NewKafka connects to the brokers and verifies reachability. An unreachable
// channel is fatal for the run, so failures wrap ErrUnavailable.
func NewKafka(ctx context.Context, brokers []string, idle time.Duration, logger *slog.Logger) (*Kafka, error) {
	client, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return nil, fmt.Errorf("new staging client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping staging channel: %w: %v", sentinel.ErrUnavailable, err)
	}
	return &Kafka{
		brokers: brokers,
		client:  client,
		admin:   kadm.NewClient(client),
		idle:    idle,
		logger:  logger,
	}, nil
}

// Close releases the underlying client.
func (k *Kafka) Close() {
	k.client.Close()
}

// Reset deletes and recreates the topics with a single partition each.
func (k *Kafka) Reset(ctx context.Context, topics ...string) error {
	deletes, err := k.admin.DeleteTopics(ctx, topics...)
	if err != nil {
		return fmt.Errorf("delete staging topics: %w", err)
	}
	for _, resp := range deletes {
		if resp.Err != nil && !errors.Is(resp.Err, kerr.UnknownTopicOrPartition) {
			return fmt.Errorf("delete staging topic %s: %w", resp.Topic, resp.Err)
		}
	}

	creates, err := k.admin.CreateTopics(ctx, 1, 1, nil, topics...)
	if err != nil {
		return fmt.Errorf("create staging topics: %w", err)
	}
	for _, resp := range creates {
		if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create staging topic %s: %w", resp.Topic, resp.Err)
		}
	}

	k.logger.Info("staging topics reset", "topics", topics)
	return nil
}

// Publish appends one envelope, waiting for the write to be acknowledged.
func (k *Kafka) Publish(ctx context.Context, topic string, env record.Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	rec := &kgo.Record{
		Topic: topic,
		Key:   []byte(topic),
		Value: value,
	}
	if err := k.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Snapshot replays the topic from the earliest offset until the channel goes
// idle. Malformed messages and transport errors are logged and the snapshot
// degrades to whatever was read, so a downstream stage runs on a partial set
// rather than aborting the pipeline.
func (k *Kafka) Snapshot(ctx context.Context, topic string) ([]record.Envelope, error) {
	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(k.brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		return nil, fmt.Errorf("new snapshot consumer for %s: %w", topic, err)
	}
	defer consumer.Close()

	var envelopes []record.Envelope
	for {
		pollCtx, cancel := context.WithTimeout(ctx, k.idle)
		fetches := consumer.PollFetches(pollCtx)
		cancel()

		for _, fetchErr := range fetches.Errors() {
			if errors.Is(fetchErr.Err, context.DeadlineExceeded) || errors.Is(fetchErr.Err, context.Canceled) {
				continue
			}
			k.logger.Warn("staging read failure, snapshot degraded",
				"topic", topic,
				"partition", fetchErr.Partition,
				"error", fetchErr.Err,
			)
			return envelopes, nil
		}

		read := 0
		fetches.EachRecord(func(r *kgo.Record) {
			read++
			var env record.Envelope
			if err := json.Unmarshal(r.Value, &env); err != nil {
				k.logger.Warn("skipping malformed staging message",
					"topic", topic,
					"offset", r.Offset,
					"error", err,
				)
				return
			}
			envelopes = append(envelopes, env)
		})

		// No record within the idle timeout means the topic is drained.
		if read == 0 {
			return envelopes, nil
		}
	}
}
