package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type KafkaProducer struct {
	writer *kafka.Writer
}

type KafkaConsumer struct {
	reader *kafka.Reader
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
		Async:    false,
	}

	return &KafkaProducer{writer: writer}
}

func NewKafkaConsumer(brokers []string, topic, groupID string) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: 1 * time.Second,
		StartOffset:    kafka.FirstOffset,
	})

	return &KafkaConsumer{reader: reader}
}

func (p *KafkaProducer) Publish(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	return p.writer.WriteMessages(ctx, message)
}

// Subscribe reads events until ctx is cancelled, decoding each payload into
// an Event before handing it off.
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler func(Event) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			message, err := c.reader.ReadMessage(ctx)
			if err != nil {
				return fmt.Errorf("failed to read message: %w", err)
			}

			var event Event
			if err := json.Unmarshal(message.Value, &event); err != nil {
				continue
			}

			if err := handler(event); err != nil {
				continue
			}
		}
	}
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

type EventType string

const (
	EventUserCreated   EventType = "user_created"
	EventUserUpdated   EventType = "user_updated"
	EventUserDeleted   EventType = "user_deleted"
	EventWarbleCreated EventType = "warble_created"
	EventWarbleDeleted EventType = "warble_deleted"
	EventFollowCreated EventType = "follow_created"
	EventFollowDeleted EventType = "follow_deleted"
	EventLikeCreated   EventType = "like_created"
	EventLikeDeleted   EventType = "like_deleted"
)

type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent marshals data eagerly so producers get serialization errors at
// publish time rather than in the consumer.
func NewEvent(eventType EventType, data interface{}) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal event data: %w", err)
	}
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      raw,
	}, nil
}

type WarbleEventData struct {
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
	CreatedAt string `json:"created_at"`
}

type FollowEventData struct {
	FollowerID string `json:"follower_id"`
	FollowedID string `json:"followed_id"`
}

type LikeEventData struct {
	UserID    string `json:"user_id"`
	MessageID string `json:"message_id"`
}

type UserEventData struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}
