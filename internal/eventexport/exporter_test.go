package eventexport

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"leadbridge/internal/events"
	"leadbridge/platform/logger"
	"leadbridge/platform/metrics"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type testWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *testWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *testWriter) Close() error {
	w.closed = true
	return nil
}

type exportConfig struct {
	brokers []string
}

func (c exportConfig) GetKafkaBrokers() []string   { return c.brokers }
func (c exportConfig) GetKafkaEventsTopic() string { return "leadbridge.events" }
func (c exportConfig) IsEventExportEnabled() bool  { return len(c.brokers) > 0 }

func TestHandleWritesEnvelopeKeyedByLead(t *testing.T) {
	w := &testWriter{}
	exp := NewWithWriter(w, metrics.New(), logger.New("development"))
	lead := uuid.New()
	deal := uuid.New()
	at := time.Date(2025, 5, 6, 8, 30, 0, 0, time.UTC)

	event := events.DealCreated{BaseEvent: events.BaseEvent{Timestamp: at}, DealID: deal, LeadID: lead, LoanAmount: 3_500_000, Bank: "ČS"}
	if err := exp.Handle(context.Background(), event); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != lead.String() {
		t.Fatalf("expected lead key, got %q", msg.Key)
	}
	if !msg.Time.Equal(at) || len(msg.Headers) != 1 || string(msg.Headers[0].Value) != "deals.deal.created" {
		t.Fatalf("unexpected message metadata %+v", msg)
	}

	var env Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Name != "deals.deal.created" || !env.OccurredAt.Equal(at) {
		t.Fatalf("unexpected envelope %+v", env)
	}
	var payload events.DealCreated
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.LoanAmount != 3_500_000 || payload.Bank != "ČS" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestPartitionKeyFallsBackToUser(t *testing.T) {
	user := uuid.New()
	payload, _ := json.Marshal(events.UserLoggedIn{UserID: user})
	if got := partitionKey(payload); got != user.String() {
		t.Fatalf("expected %s, got %q", user, got)
	}
}

func TestHandleSwallowsWriteErrors(t *testing.T) {
	exp := NewWithWriter(&testWriter{err: errors.New("broker down")}, nil, logger.New("development"))
	if err := exp.Handle(context.Background(), events.LeadCreated{LeadID: uuid.New()}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestDisabledExporterIsNil(t *testing.T) {
	exp := New(exportConfig{}, nil, logger.New("development"))
	if exp != nil {
		t.Fatalf("expected nil exporter without brokers")
	}
	bus := events.NewInMemoryBus(logger.New("development"))
	exp.RegisterHandlers(bus)
	if err := exp.Close(); err != nil {
		t.Fatalf("Close on nil exporter: %v", err)
	}

	if New(exportConfig{brokers: []string{"localhost:9092"}}, nil, logger.New("development")) == nil {
		t.Fatalf("expected an exporter when brokers are set")
	}
}

func TestRegisteredExporterSeesEveryEvent(t *testing.T) {
	w := &testWriter{}
	bus := events.NewInMemoryBus(logger.New("development"))
	NewWithWriter(w, nil, logger.New("development")).RegisterHandlers(bus)

	if err := bus.PublishSync(context.Background(), events.NoteAdded{LeadID: uuid.New()}); err != nil {
		t.Fatalf("PublishSync: %v", err)
	}
	if err := bus.PublishSync(context.Background(), events.CallbackDue{LeadID: uuid.New()}); err != nil {
		t.Fatalf("PublishSync: %v", err)
	}
	if len(w.msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(w.msgs))
	}
}
