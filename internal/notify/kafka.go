package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/LJTian/TejoMag/internal/processor"
)

const EventArticlePersisted = "article.persisted"

// ArticleEvent 文章入库事件，不含正文，下游按 slug 回查
type ArticleEvent struct {
	Type            string     `json:"type"`
	ID              string     `json:"id"`
	URL             string     `json:"url"`
	Source          string     `json:"source"`
	Slug            string     `json:"slug"`
	Category        string     `json:"category"`
	TitleTranslated string     `json:"titleTranslated"`
	ImageURL        string     `json:"imageUrl,omitempty"`
	PublishedDate   *time.Time `json:"publishedDate,omitempty"`
	ScrapedAt       time.Time  `json:"scrapedAt"`
}

// KafkaNotifier 以文章 ID 作为消息 key 推送入库事件
type KafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaNotifier(brokers []string, topic string) (*KafkaNotifier, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewKafkaNotifierWithProducer(producer, topic), nil
}

func NewKafkaNotifierWithProducer(p sarama.SyncProducer, topic string) *KafkaNotifier {
	return &KafkaNotifier{producer: p, topic: topic}
}

func (k *KafkaNotifier) Notify(ctx context.Context, a processor.EnrichedArticle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(ArticleEvent{
		Type:            EventArticlePersisted,
		ID:              a.ID,
		URL:             a.URL,
		Source:          a.Source,
		Slug:            a.Slug,
		Category:        a.Category,
		TitleTranslated: a.TitleTranslated,
		ImageURL:        a.ImageURL,
		PublishedDate:   a.PublishedDate,
		ScrapedAt:       a.ScrapedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, _, err = k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(a.ID),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(EventArticlePersisted)},
		},
	})
	if err != nil {
		return fmt.Errorf("send %s: %w", a.ID, err)
	}
	return nil
}

func (k *KafkaNotifier) Close() error {
	return k.producer.Close()
}
