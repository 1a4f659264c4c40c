package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"trainer-scheduler/internal/scheduling"
)

var loc = time.FixedZone("IDT", 3*60*60)

func sample(kind scheduling.NotificationKind) scheduling.Notification {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, loc)
	return scheduling.Notification{
		Kind:         kind,
		TrainerEmail: "coach@example.com",
		ClientName:   "Dana",
		ClientEmail:  "dana@example.com",
		ClientPhone:  "050-0000000",
		ServiceLabel: "Personal Training",
		Start:        start,
		End:          start.Add(time.Hour),
		EventID:      "evt1",
		HTMLLink:     "https://calendar.example/evt1",
	}
}

type fakeMailer struct {
	sent []Mail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, m Mail) error {
	f.sent = append(f.sent, m)
	return f.err
}

func TestEmailNotifier_Trainer(t *testing.T) {
	m := &fakeMailer{}
	n := NewEmailNotifier(m, loc)
	if err := n.Notify(context.Background(), sample(scheduling.NotifyTrainer)); err != nil {
		t.Fatal(err)
	}
	if len(m.sent) != 1 {
		t.Fatalf("expected 1 mail, got %d", len(m.sent))
	}
	mail := m.sent[0]
	if mail.To != "coach@example.com" || len(mail.Invite) != 0 {
		t.Fatalf("unexpected trainer mail %+v", mail)
	}
	for _, want := range []string{"Sunday, 1 June 2025, 09:00-10:00", "Dana <dana@example.com>", "050-0000000"} {
		if !strings.Contains(mail.Body, want) {
			t.Fatalf("body %q missing %q", mail.Body, want)
		}
	}
}

func TestEmailNotifier_ClientGetsInvite(t *testing.T) {
	m := &fakeMailer{}
	n := NewEmailNotifier(m, loc)
	if err := n.Notify(context.Background(), sample(scheduling.NotifyClient)); err != nil {
		t.Fatal(err)
	}
	mail := m.sent[0]
	if mail.To != "dana@example.com" || !strings.Contains(mail.Body, "09:00-10:00") {
		t.Fatalf("unexpected client mail %+v", mail)
	}
	invite := string(mail.Invite)
	for _, want := range []string{"BEGIN:VCALENDAR", "METHOD:REQUEST", "UID:evt1@trainer-scheduler", "SUMMARY:Personal Training", "DTSTART:20250601T060000Z"} {
		if !strings.Contains(invite, want) {
			t.Fatalf("invite missing %q:\n%s", want, invite)
		}
	}
}

func TestBuildMessage(t *testing.T) {
	raw, err := buildMessage("coach@example.com", Mail{To: "dana@example.com", Subject: "Booking confirmed", Body: "hello", Invite: []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n")})
	if err != nil {
		t.Fatal(err)
	}
	msg := string(raw)
	for _, want := range []string{"To: dana@example.com", "multipart/mixed; boundary=", "text/calendar; charset=utf-8; method=REQUEST", "hello", "BEGIN:VCALENDAR"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}

	plain, err := buildMessage("coach@example.com", Mail{To: "dana@example.com", Subject: "x", Body: "only text"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(plain), "Content-Type: text/plain; charset=utf-8") || strings.Contains(string(plain), "multipart") {
		t.Fatalf("expected a plain message, got:\n%s", plain)
	}
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaNotifier_Publishes(t *testing.T) {
	w := &fakeWriter{}
	k := &KafkaNotifier{writer: w}
	if err := k.Notify(context.Background(), sample(scheduling.NotifyClient)); err != nil {
		t.Fatal(err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "evt1" {
		t.Fatalf("unexpected key %q", msg.Key)
	}
	var payload notificationPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Kind != "client" || payload.Start != "2025-06-01T09:00:00+03:00" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	var sawType bool
	for _, h := range msg.Headers {
		if h.Key == "event_type" && string(h.Value) == EventType {
			sawType = true
		}
	}
	if !sawType {
		t.Fatal("expected event_type header")
	}
}

func TestKafkaNotifier_InjectsTraceContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01, 0x02, 0x03},
		SpanID:     trace.SpanID{0x04, 0x05},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	w := &fakeWriter{}
	k := &KafkaNotifier{writer: w}
	if err := k.Notify(ctx, sample(scheduling.NotifyTrainer)); err != nil {
		t.Fatal(err)
	}
	var traceparent string
	for _, h := range w.msgs[0].Headers {
		if h.Key == "traceparent" {
			traceparent = string(h.Value)
		}
	}
	if !strings.Contains(traceparent, sc.TraceID().String()) {
		t.Fatalf("traceparent = %q", traceparent)
	}
}

func TestMultiJoinsErrors(t *testing.T) {
	ok := &fakeMailer{}
	failing := &fakeMailer{err: errors.New("smtp down")}
	m := Multi{NewEmailNotifier(failing, loc), NewEmailNotifier(ok, loc), LogNotifier{Logger: zap.NewNop()}}

	err := m.Notify(context.Background(), sample(scheduling.NotifyTrainer))
	if err == nil || !strings.Contains(err.Error(), "smtp down") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(ok.sent) != 1 {
		t.Fatal("a failing notifier must not stop the others")
	}
}

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" a:9092, ,b:9092 ")
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Fatalf("unexpected brokers %v", got)
	}
}
