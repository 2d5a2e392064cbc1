package repository

import (
	"context"
	"fmt"

	"AlphaKit/internal/domain/models"
	pkgkafka "AlphaKit/pkg/kafka"
	applogger "AlphaKit/pkg/logger"
)

// Publisher is the producer surface the Kafka sink needs.
type Publisher interface {
	PublishBatch(ctx context.Context, messages []pkgkafka.Message) error
	Close() error
}

// problemEvent is the per-finding message published next to the report.
type problemEvent struct {
	RunID string `json:"run_id"`
	models.Problem
}

// KafkaReportSink publishes a report followed by one message per problem, all keyed by run ID
// so a hash balancer keeps them on one partition in order.
type KafkaReportSink struct {
	producer Publisher
	l        *applogger.Logger
}

func NewKafkaReportSink(producer Publisher, l *applogger.Logger) *KafkaReportSink {
	return &KafkaReportSink{producer: producer, l: l}
}

func (s *KafkaReportSink) Publish(ctx context.Context, r *models.Report) error {
	key := []byte(r.RunID)
	msgs := make([]pkgkafka.Message, 0, 1+len(r.Problems))
	msgs = append(msgs, pkgkafka.Message{Key: key, Value: r, Headers: map[string]string{"type": "report"}})
	for _, p := range r.Problems {
		msgs = append(msgs, pkgkafka.Message{
			Key:     key,
			Value:   problemEvent{RunID: r.RunID, Problem: p},
			Headers: map[string]string{"type": "problem"},
		})
	}
	if err := s.producer.PublishBatch(ctx, msgs); err != nil {
		return fmt.Errorf("publish report %s: %w", r.RunID, err)
	}
	s.l.Info("report published",
		applogger.String("run_id", r.RunID),
		applogger.Int("messages", len(msgs)),
	)
	return nil
}

func (s *KafkaReportSink) Close() error {
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}

// NopReportSink discards reports.
type NopReportSink struct{}

func (NopReportSink) Publish(context.Context, *models.Report) error { return nil }
func (NopReportSink) Close() error                                  { return nil }
