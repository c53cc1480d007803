// Package staging is the durable buffer between source ingestion and
// consolidation: append-only topics, replayable from the start on every run.
package staging

import (
	"context"

	"mdm/internal/record"
)

// Channel decouples publish time from consolidation time. Publishing is
// at-least-once; a snapshot always replays a topic from the beginning and
// reads until the channel goes idle, so the consumer sees a full, ordered
// view of everything published for that entity type.
type Channel interface {
	// Reset deletes and recreates the given topics so a run consumes
	// exactly what it published.
	Reset(ctx context.Context, topics ...string) error

	// Publish appends one envelope to a topic.
	Publish(ctx context.Context, topic string, env record.Envelope) error

	// Snapshot replays a topic from the start and returns every envelope in
	// publish order. Read failures degrade to a partial (possibly empty)
	// snapshot rather than an error; an empty topic is not an error.
	Snapshot(ctx context.Context, topic string) ([]record.Envelope, error)
}
