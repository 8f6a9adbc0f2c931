package publisher

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/blockedby/listingbot/internal/eventlog"
	"github.com/blockedby/listingbot/internal/events"
)

// MockNATSClient mocks the nats client operations we need
type MockNATSClient struct {
	PublishedSubject string
	PublishedData    []byte
	PublishError     error
}

func (m *MockNATSClient) Publish(subject string, data []byte) error {
	m.PublishedSubject = subject
	m.PublishedData = data
	return m.PublishError
}

func TestNATSPublisher_Mirror(t *testing.T) {
	mock := &MockNATSClient{}
	pub := &NATSPublisher{js: mock, prefix: "botlog"}

	err := pub.Mirror(context.Background(), "chat_event", []byte(`{"kind":"chat_event"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mock.PublishedSubject != "botlog.chat_event" {
		t.Errorf("subject = %s, want botlog.chat_event", mock.PublishedSubject)
	}

	if len(mock.PublishedData) == 0 {
		t.Error("payload should not be empty")
	}
}

func TestNATSPublisher_MirrorError(t *testing.T) {
	mock := &MockNATSClient{PublishError: errors.New("no responders")}
	pub := &NATSPublisher{js: mock, prefix: "botlog"}

	err := pub.Mirror(context.Background(), "debug_info", []byte(`{}`))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestNATSPublisher_AsEventLogMirror(t *testing.T) {
	mock := &MockNATSClient{}
	pub := &NATSPublisher{js: mock, prefix: "botlog"}

	var buf bytes.Buffer
	w := eventlog.New(&buf, eventlog.WithMirror(pub))

	if err := w.Append(context.Background(), events.NewDebugInfo("hello")); err != nil {
		t.Fatalf("append: %v", err)
	}

	if mock.PublishedSubject != "botlog.debug_info" {
		t.Errorf("subject = %s, want botlog.debug_info", mock.PublishedSubject)
	}
	if !bytes.Equal(bytes.TrimSuffix(buf.Bytes(), []byte("\n")), mock.PublishedData) {
		t.Errorf("published %s, log has %s", mock.PublishedData, buf.Bytes())
	}
}
