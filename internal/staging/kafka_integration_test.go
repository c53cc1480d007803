//go:build integration

package staging_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"mdm/internal/record"
	"mdm/internal/staging"
	"mdm/pkg/testutil/containers"
)

type KafkaChannelSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	channel  *staging.Kafka
}

func TestKafkaChannelSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaChannelSuite))
}

func (s *KafkaChannelSuite) SetupSuite() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	s.redpanda = containers.NewRedpandaContainer(s.T())

	ch, err := staging.NewKafka(context.Background(), []string{s.redpanda.Broker}, 2*time.Second, logger)
	s.Require().NoError(err)
	s.channel = ch
}

func (s *KafkaChannelSuite) TearDownSuite() {
	if s.channel != nil {
		s.channel.Close()
	}
}

func (s *KafkaChannelSuite) SetupTest() {
	err := s.channel.Reset(context.Background(), record.Topics()...)
	s.Require().NoError(err)
}

func (s *KafkaChannelSuite) TestPublishSnapshotRoundtrip() {
	ctx := context.Background()

	envelopes := []record.Envelope{
		{Source: record.SourceScheduling, Data: map[string]any{"nom": "Dubois", "prenom": "Marie"}},
		{Source: record.SourceERP, Data: map[string]any{"nom": "DUBOIS", "date_naissance": "01/01/1980"}},
		{Source: record.SourceBilling, Data: map[string]any{"nom_famille": "Dubois"}},
	}
	for _, env := range envelopes {
		s.Require().NoError(s.channel.Publish(ctx, "patients", env))
	}

	got, err := s.channel.Snapshot(ctx, "patients")
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	for i, env := range envelopes {
		s.Equal(env.Source, got[i].Source, "single partition keeps publish order")
		s.Equal(env.Data["nom"], got[i].Data["nom"])
	}
}

func (s *KafkaChannelSuite) TestSnapshotEmptyTopic() {
	got, err := s.channel.Snapshot(context.Background(), "clinicians")
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *KafkaChannelSuite) TestSnapshotReadsFromStartEveryTime() {
	ctx := context.Background()

	s.Require().NoError(s.channel.Publish(ctx, "services", record.Envelope{
		Source: record.SourceERP,
		Data:   map[string]any{"nom_service": "Cardiologie"},
	}))

	first, err := s.channel.Snapshot(ctx, "services")
	s.Require().NoError(err)
	s.Require().Len(first, 1)

	// A second snapshot replays the full topic, it does not resume.
	second, err := s.channel.Snapshot(ctx, "services")
	s.Require().NoError(err)
	s.Len(second, 1)
}

func (s *KafkaChannelSuite) TestResetDropsMessages() {
	ctx := context.Background()

	s.Require().NoError(s.channel.Publish(ctx, "patients", record.Envelope{
		Source: record.SourceERP,
		Data:   map[string]any{"nom": "DUBOIS"},
	}))
	s.Require().NoError(s.channel.Reset(ctx, "patients"))

	got, err := s.channel.Snapshot(ctx, "patients")
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *KafkaChannelSuite) TestSnapshotSkipsMalformedMessages() {
	ctx := context.Background()

	producer, err := kgo.NewClient(kgo.SeedBrokers(s.redpanda.Broker))
	s.Require().NoError(err)
	defer producer.Close()

	err = producer.ProduceSync(ctx, &kgo.Record{
		Topic: "patients",
		Value: []byte("not json"),
	}).FirstErr()
	s.Require().NoError(err)

	s.Require().NoError(s.channel.Publish(ctx, "patients", record.Envelope{
		Source: record.SourceERP,
		Data:   map[string]any{"nom": "DUBOIS"},
	}))

	got, err := s.channel.Snapshot(ctx, "patients")
	s.Require().NoError(err)
	s.Require().Len(got, 1, "malformed message is skipped, not fatal")
	s.Equal(record.SourceERP, got[0].Source)
}
