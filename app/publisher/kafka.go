// Package publisher announces newly persisted articles on Kafka.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ykarpov/newshound/app/feed"
)

// KafkaPublisher writes one JSON message per new article to a topic.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher for the comma-separated broker list.
func NewKafkaPublisher(brokers, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaPublisher{writer: writer}
}

type articleMessage struct {
	Title       string `json:"title"`
	Body        string `json:"body,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	URL         string `json:"url"`
	Published   string `json:"published,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
	Source      string `json:"source"`
	Category    string `json:"category"`
}

// Announce publishes the batch. The article URL is the message key, so
// re-announcements of the same article land on the same partition.
func (p *KafkaPublisher) Announce(ctx context.Context, items []feed.Item) error {
	messages := make([]kafka.Message, 0, len(items))

	for _, item := range items {
		msg := articleMessage{
			Title:     item.Title,
			Body:      item.Body,
			ImageURL:  item.ImageURL,
			URL:       item.URL,
			Published: item.Published,
			Source:    item.Source,
			Category:  item.Category,
		}
		if item.PublishedAt != nil {
			msg.PublishedAt = item.PublishedAt.Format(time.RFC3339)
		}

		value, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal article: %w", err)
		}

		messages = append(messages, kafka.Message{
			Key:   []byte(item.URL),
			Value: value,
			Time:  time.Now(),
		})
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		return fmt.Errorf("failed to write messages: %w", err)
	}

	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
