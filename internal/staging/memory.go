package staging

import (
	"context"
	"sync"

	"mdm/internal/record"
)

// Memory is an in-process Channel for tests and broker-less wiring. It keeps
// the same semantics as the Kafka implementation: append-only per topic,
// snapshots replay from the start in publish order.
type Memory struct {
	mu     sync.Mutex
	topics map[string][]record.Envelope
}

func NewMemory() *Memory {
	return &Memory{topics: make(map[string][]record.Envelope)}
}

func (m *Memory) Reset(_ context.Context, topics ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, topic := range topics {
		m.topics[topic] = nil
	}
	return nil
}

func (m *Memory) Publish(_ context.Context, topic string, env record.Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topics[topic] = append(m.topics[topic], env)
	return nil
}

func (m *Memory) Snapshot(_ context.Context, topic string) ([]record.Envelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]record.Envelope, len(m.topics[topic]))
	copy(out, m.topics[topic])
	return out, nil
}
