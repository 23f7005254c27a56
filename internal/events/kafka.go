package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/Freeeeeet/tutorconnect/internal/model"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// messageWriter часть kafka.Writer, которая нужна публикатору
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher публикует события бронирований в Kafka.
// Ключ сообщения ID бронирования, поэтому события одного урока попадают в одну партицию.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

// publishBatchTimeout как долго writer копит сообщения перед отправкой батча
const publishBatchTimeout = 10 * time.Millisecond

// NewKafkaPublisher создаёт асинхронный публикатор: Notify только ставит сообщение
// в очередь writer, ошибки доставки пишутся в лог из Completion.
// Неотправленные сообщения сбрасываются в Close.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           publishBatchTimeout,
		WriteTimeout:           5 * time.Second,
		Async:                  true,
		Completion:             completionLogger(topic, logger),
	}
	return newKafkaPublisher(writer, topic, logger)
}

// completionLogger логирует результат асинхронной отправки батча
func completionLogger(topic string, logger *zap.Logger) func(messages []kafka.Message, err error) {
	return func(messages []kafka.Message, err error) {
		if err != nil {
			logger.Error("Failed to publish booking events",
				zap.String("topic", topic),
				zap.Int("messages", len(messages)),
				zap.Error(err),
			)
			return
		}
		logger.Debug("Booking events delivered",
			zap.String("topic", topic),
			zap.Int("messages", len(messages)),
		)
	}
}

func newKafkaPublisher(writer messageWriter, topic string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, topic: topic, logger: logger}
}

// Payload тело сообщения о событии
type Payload struct {
	Type       model.BookingEventType `json:"type"`
	BookingID  int64                  `json:"booking_id"`
	StudentID  int64                  `json:"student_id"`
	TutorID    int64                  `json:"tutor_id"`
	Date       string                 `json:"date"`
	StartUTC   string                 `json:"start_time_utc"`
	EndUTC     string                 `json:"end_time_utc"`
	StartsAt   time.Time              `json:"starts_at"`
	EndsAt     time.Time              `json:"ends_at"`
	Status     model.BookingStatus    `json:"status"`
	Subject    *string                `json:"subject,omitempty"`
	ActorID    int64                  `json:"actor_id,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// NewPayload собирает тело сообщения из события
func NewPayload(event model.BookingEvent) Payload {
	b := event.Booking
	return Payload{
		Type:       event.Type,
		BookingID:  b.ID,
		StudentID:  b.StudentID,
		TutorID:    b.TutorID,
		Date:       b.Date.Format(time.DateOnly),
		StartUTC:   b.StartTime.String(),
		EndUTC:     b.EndClockUTC().String(),
		StartsAt:   b.StartsAt(),
		EndsAt:     b.EndsAt(),
		Status:     b.Status,
		Subject:    b.Subject,
		ActorID:    event.ActorID,
		OccurredAt: event.OccurredAt,
	}
}

func (p *KafkaPublisher) Notify(ctx context.Context, event model.BookingEvent) error {
	value, err := json.Marshal(NewPayload(event))
	if err != nil {
		return fmt.Errorf("marshal booking event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(event.Booking.ID, 10)),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish booking event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Booking event queued",
		zap.String("topic", p.topic),
		zap.String("event", string(event.Type)),
		zap.Int64("booking_id", event.Booking.ID),
	)
	return nil
}

// Close сбрасывает буферы и закрывает соединения
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
