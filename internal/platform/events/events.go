// Package events publishes appointment domain events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Event types.
const (
	AppointmentCreated       = "created"
	AppointmentStatusChanged = "status_changed"
	AppointmentCancelled     = "cancelled"
	AppointmentRescheduled   = "rescheduled"
	AppointmentDeleted       = "deleted"
	ReminderRecorded         = "reminder_recorded"
)

type Event struct {
	ID             uuid.UUID   `json:"event_id"`
	Type           string      `json:"event_type"`
	AppointmentID  uuid.UUID   `json:"appointment_id"`
	PractitionerID uuid.UUID   `json:"practitioner_id"`
	OccurredAt     time.Time   `json:"occurred_at"`
	Data           interface{} `json:"data,omitempty"`
}

// Publisher delivers events after the originating write has committed.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Noop discards events; it is used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []string {
	events := r.Events()
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per event to "<prefix>.appointment.<type>",
// keyed by practitioner so a practitioner's events stay ordered.
type KafkaPublisher struct {
	writer messageWriter
	prefix string
	logger zerolog.Logger
}

type KafkaConfig struct {
	Brokers     string
	TopicPrefix string
}

func NewKafkaPublisher(cfg KafkaConfig, logger zerolog.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(SplitBrokers(cfg.Brokers)...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return newKafkaPublisher(w, cfg.TopicPrefix, logger)
}

func newKafkaPublisher(w messageWriter, prefix string, logger zerolog.Logger) *KafkaPublisher {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = "odonto"
	}
	return &KafkaPublisher{writer: w, prefix: prefix, logger: logger.With().Str("component", "events").Logger()}
}

func (p *KafkaPublisher) Topic(eventType string) string {
	return p.prefix + ".appointment." + eventType
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", ev.Type, err)
	}

	msg := kafka.Message{
		Topic: p.Topic(ev.Type),
		Key:   []byte(ev.PractitionerID.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(ev.ID.String())},
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	}
	msg.Headers = InjectTraceHeaders(ctx, msg.Headers)

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s: %w", msg.Topic, err)
	}
	p.logger.Debug().Str("topic", msg.Topic).Str("event_id", ev.ID.String()).Msg("event published")
	return nil
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }

// SplitBrokers parses a comma separated broker list.
func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// InjectTraceHeaders appends W3C trace context to the message headers.
func InjectTraceHeaders(ctx context.Context, headers []kafka.Header) []kafka.Header {
	carrier := &headerCarrier{headers: headers}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier.headers
}

// ExtractTraceContext restores the producer's trace context on the consumer
// side.
func ExtractTraceContext(ctx context.Context, msg kafka.Message) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, &headerCarrier{headers: msg.Headers})
}

type headerCarrier struct {
	headers []kafka.Header
}

var _ propagation.TextMapCarrier = (*headerCarrier)(nil)

func (c *headerCarrier) Get(key string) string {
	for _, h := range c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

func (c *headerCarrier) Set(key, value string) {
	for i := range c.headers {
		if c.headers[i].Key == key {
			c.headers[i].Value = []byte(value)
			return
		}
	}
	c.headers = append(c.headers, kafka.Header{Key: key, Value: []byte(value)})
}
