package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/LJTian/TejoMag/internal/collector"
	"github.com/LJTian/TejoMag/internal/processor"
)

func testArticle() processor.EnrichedArticle {
	return processor.EnrichedArticle{
		Article:         collector.Article{URL: "https://site.com/news/a", Source: "bbc", ImageURL: "https://img/a.jpg"},
		ID:              "abc123",
		TitleTranslated: "Presidente vence eleição",
		Category:        "Política",
		Slug:            "presidente-vence-eleicao",
		ScrapedAt:       time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestKafkaNotifierPublishesEvent(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "articles" {
			return errors.New("wrong topic " + msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "abc123" {
			return errors.New("wrong key " + string(key))
		}
		raw, _ := msg.Value.Encode()
		var ev ArticleEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return err
		}
		if ev.Type != EventArticlePersisted || ev.Slug != "presidente-vence-eleicao" || ev.Category != "Política" {
			return errors.New("unexpected payload " + string(raw))
		}
		return nil
	})

	n := NewKafkaNotifierWithProducer(producer, "articles")
	if err := n.Notify(context.Background(), testArticle()); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if err := n.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestKafkaNotifierReturnsSendError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	n := NewKafkaNotifierWithProducer(producer, "articles")
	err := n.Notify(context.Background(), testArticle())
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("Notify err = %v, want ErrOutOfBrokers", err)
	}
	_ = n.Close()
}
