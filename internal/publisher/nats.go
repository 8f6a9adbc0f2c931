package publisher

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/blockedby/listingbot/internal/eventlog"
	botnats "github.com/blockedby/listingbot/internal/nats"
)

// NATSClient interface to allow mocking
type NATSClient interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher implements eventlog.Mirror
type NATSPublisher struct {
	js     NATSClient
	prefix string
}

var _ eventlog.Mirror = (*NATSPublisher)(nil)

// NewNATSPublisher creates a new publisher
func NewNATSPublisher(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{js: conn, prefix: botnats.SubjectPrefix}
}

// Subject returns the subject records of kind are published on.
func (p *NATSPublisher) Subject(kind string) string {
	return p.prefix + "." + kind
}

// Mirror publishes an appended log line on botlog.<kind>
func (p *NATSPublisher) Mirror(_ context.Context, kind string, line []byte) error {
	if err := p.js.Publish(p.Subject(kind), line); err != nil {
		return fmt.Errorf("publish %s record: %w", kind, err)
	}
	return nil
}
