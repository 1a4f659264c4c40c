package notify

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"trainer-scheduler/internal/scheduling"
)

const EventType = "booking.notification.v1"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes notifications for an external delivery service.
type KafkaNotifier struct {
	writer messageWriter
}

func NewKafkaNotifier(brokers, topic string) *KafkaNotifier {
	return &KafkaNotifier{writer: &kafka.Writer{
		Addr:         kafka.TCP(SplitBrokers(brokers)...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}}
}

type notificationPayload struct {
	Kind         string `json:"kind"`
	TrainerEmail string `json:"trainer_email"`
	ClientName   string `json:"client_name"`
	ClientEmail  string `json:"client_email"`
	ClientPhone  string `json:"client_phone,omitempty"`
	Notes        string `json:"notes,omitempty"`
	Service      string `json:"service"`
	Start        string `json:"start"`
	End          string `json:"end"`
	EventID      string `json:"event_id"`
	HTMLLink     string `json:"html_link,omitempty"`
	CreatedAt    string `json:"created_at"`
}

func (k *KafkaNotifier) Notify(ctx context.Context, n scheduling.Notification) error {
	payload, err := json.Marshal(notificationPayload{
		Kind:         string(n.Kind),
		TrainerEmail: n.TrainerEmail,
		ClientName:   n.ClientName,
		ClientEmail:  n.ClientEmail,
		ClientPhone:  n.ClientPhone,
		Notes:        n.Notes,
		Service:      n.ServiceLabel,
		Start:        n.Start.Format(scheduling.OffsetLayout),
		End:          n.End.Format(scheduling.OffsetLayout),
		EventID:      n.EventID,
		HTMLLink:     n.HTMLLink,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.EventID),
		Value: payload,
		Headers: injectTraceHeaders(ctx, []kafka.Header{
			{Key: "event_id", Value: []byte(uuid.NewString())},
			{Key: "event_type", Value: []byte(EventType)},
			{Key: "kind", Value: []byte(n.Kind)},
		}),
	})
}

// injectTraceHeaders appends W3C trace context headers.
func injectTraceHeaders(ctx context.Context, headers []kafka.Header) []kafka.Header {
	carrier := &headerCarrier{headers: headers}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier.headers
}

type headerCarrier struct {
	headers []kafka.Header
}

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

var _ propagation.TextMapCarrier = (*headerCarrier)(nil)

func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
