package publisher

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

func sampleEvent() BookingConfirmedEvent {
	return BookingConfirmedEvent{
		BookingID:     "b-1",
		EventID:       "ev-1",
		EventTitle:    "Jazz Night",
		AttendeeName:  "Ada",
		AttendeeEmail: "ada@example.com",
		Quantities:    map[string]int{"full": 2},
		ConfirmedAt:   time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC).Format(time.RFC3339),
	}
}

func TestNoop(t *testing.T) {
	t.Parallel()

	var p Publisher = Noop{}
	if err := p.PublishBookingConfirmed(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestAMQPPublisher(t *testing.T) {
	url := os.Getenv("TEST_AMQP_URL")
	if url == "" {
		t.Skip("TEST_AMQP_URL not set")
	}

	p, err := NewAMQPPublisher(url, zap.NewNop())
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	defer p.Close()

	ev := sampleEvent()
	ev.BookingID = "amqp-" + time.Now().Format("150405.000000")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.PublishBookingConfirmed(ctx, ev); err != nil {
		t.Fatalf("publish: %v", err)
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	defer ch.Close()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		msg, ok, err := ch.Get(BookingConfirmedTopic, true)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !ok {
			time.Sleep(50 * time.Millisecond)
			continue
		}
		if msg.MessageId != ev.BookingID {
			continue
		}
		var got BookingConfirmedEvent
		if err := json.Unmarshal(msg.Body, &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.EventTitle != ev.EventTitle || got.Quantities["full"] != 2 {
			t.Fatalf("message = %+v", got)
		}
		return
	}
	t.Fatal("published message not found in queue")
}

func TestKafkaPublisher(t *testing.T) {
	brokers := os.Getenv("TEST_KAFKA_BROKERS")
	if brokers == "" {
		t.Skip("TEST_KAFKA_BROKERS not set")
	}
	topic := BookingConfirmedTopic + ".test"

	p, err := NewKafkaPublisher(strings.Split(brokers, ","), topic, noop.NewTracerProvider())
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	ev := sampleEvent()
	if err := p.PublishBookingConfirmed(ctx, ev); err != nil {
		t.Fatalf("publish: %v", err)
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     strings.Split(brokers, ","),
		Topic:       topic,
		StartOffset: kafka.FirstOffset,
		MaxWait:     500 * time.Millisecond,
	})
	defer r.Close()
	msg, err := r.ReadMessage(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(msg.Key) != ev.EventID {
		t.Fatalf("key = %q, want event id", msg.Key)
	}
}
