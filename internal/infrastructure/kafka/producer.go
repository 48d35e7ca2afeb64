package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/DRSN-tech/match-service/internal/cfg"
	"github.com/DRSN-tech/match-service/internal/usecase"
	"github.com/DRSN-tech/match-service/pkg/e"
	"github.com/DRSN-tech/match-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/jimlawless/whereami"
	"github.com/segmentio/kafka-go"
)

type Producer struct {
	writer *kafka.Writer
	logger logger.Logger
	cfg    *cfg.KafkaCfg
}

func NewProducer(logger logger.Logger, cfg *cfg.KafkaCfg) (*Producer, error) {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    10,
		BatchTimeout: 500 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warnf("Kafka producer error: %s", err.Error())
			}
		},
	}

	return &Producer{
		writer: writer,
		logger: logger,
		cfg:    cfg,
	}, nil
}

// rebuildCompletedEvent — событие завершения полного пересчёта матчей.
// Его слушают сервисы каталога, чтобы подтянуть свежие рекомендации.
type rebuildCompletedEvent struct {
	EventID             string `json:"event_id"`
	EventTimestamp      int64  `json:"event_timestamp"`
	RunID               string `json:"run_id"`
	ProjectsCount       int    `json:"projects_count"`
	ProductsCount       int    `json:"products_count"`
	MatchesUpserted     int    `json:"matches_upserted"`
	MatchesDeletedStale int    `json:"matches_deleted_stale"`
	ErrorsCount         int    `json:"errors_count"`
}

// PublishRebuildCompleted публикует событие о завершённом пересчёте.
// Ключ сообщения — run_id, чтобы события одного пересчёта шли в одну партицию.
func (p *Producer) PublishRebuildCompleted(ctx context.Context, res *usecase.RebuildRes) error {
	event := rebuildCompletedEvent{
		EventID:             uuid.NewString(),
		EventTimestamp:      time.Now().UnixNano(),
		RunID:               res.RunID,
		ProjectsCount:       res.ProjectsCount,
		ProductsCount:       res.ProductsCount,
		MatchesUpserted:     res.MatchesUpserted,
		MatchesDeletedStale: res.MatchesDeletedStale,
		ErrorsCount:         len(res.Errors),
	}

	value, err := json.Marshal(event)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(res.RunID),
		Value: value,
	})
}

func (p *Producer) EnsureTopic(timeout time.Duration) error {
	conn, err := kafka.Dial(p.cfg.NetworkMode, p.cfg.Brokers[0])
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions(p.cfg.Topic)
	if err == nil && len(partitions) > 0 {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		err := conn.CreateTopics(kafka.TopicConfig{
			Topic:             p.cfg.Topic,
			NumPartitions:     p.cfg.Partitions,
			ReplicationFactor: p.cfg.ReplicationFactor,
		})
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return e.Wrap(whereami.WhereAmI(), fmt.Errorf("failed to create topic %s: %w", p.cfg.Topic, err))
		}
		return nil
	case <-time.After(timeout):
		_ = conn.Close()
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("timeout: %v, topic: %s", timeout, p.cfg.Topic))
	}
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
