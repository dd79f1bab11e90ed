// Package eventexport mirrors every domain event to a Kafka topic so
// downstream reporting can consume lead activity without touching the database.
package eventexport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"leadbridge/internal/events"
	"leadbridge/platform/config"
	"leadbridge/platform/logger"
	"leadbridge/platform/metrics"

	"github.com/segmentio/kafka-go"
)

const writeTimeout = 10 * time.Second

// MessageWriter is the part of *kafka.Writer the exporter needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Envelope is the message value written for each event.
type Envelope struct {
	Name       string          `json:"name"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

type Exporter struct {
	writer  MessageWriter
	metrics *metrics.Metrics
	log     *logger.Logger
}

// New returns nil when export is not configured.
func New(cfg config.EventExportConfig, m *metrics.Metrics, log *logger.Logger) *Exporter {
	if !cfg.IsEventExportEnabled() {
		return nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.GetKafkaBrokers()...),
		Topic:        cfg.GetKafkaEventsTopic(),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	return NewWithWriter(writer, m, log)
}

func NewWithWriter(w MessageWriter, m *metrics.Metrics, log *logger.Logger) *Exporter {
	return &Exporter{writer: w, metrics: m, log: log}
}

// RegisterHandlers subscribes to every event name. Nil-safe.
func (e *Exporter) RegisterHandlers(bus events.Bus) {
	if e == nil {
		return
	}
	bus.Subscribe(events.Wildcard, e)
}

func (e *Exporter) Close() error {
	if e == nil {
		return nil
	}
	return e.writer.Close()
}

// Handle writes one message per event. Failures are logged and counted;
// the bus never retries.
func (e *Exporter) Handle(ctx context.Context, event events.Event) error {
	msg, err := buildMessage(event)
	if err == nil {
		ctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err = e.writer.WriteMessages(ctx, msg)
		cancel()
	}
	e.metrics.EventExported(event.EventName(), err)
	if err != nil {
		e.log.Error("event export failed", "event", event.EventName(), "error", err)
	}
	return nil
}

func buildMessage(event events.Event) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal %s: %w", event.EventName(), err)
	}
	value, err := json.Marshal(Envelope{Name: event.EventName(), OccurredAt: event.OccurredAt(), Payload: payload})
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(partitionKey(payload)),
		Value: value,
		Time:  event.OccurredAt(),
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(event.EventName())},
		},
	}, nil
}

// partitionKey keeps the events of one lead (or deal, or user) in order on
// a single partition.
func partitionKey(payload []byte) string {
	var ids struct {
		LeadID string `json:"leadId"`
		DealID string `json:"dealId"`
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(payload, &ids); err != nil {
		return ""
	}
	switch {
	case ids.LeadID != "":
		return ids.LeadID
	case ids.DealID != "":
		return ids.DealID
	default:
		return ids.UserID
	}
}

var _ events.Handler = (*Exporter)(nil)
