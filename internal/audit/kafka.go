package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaRecorder publishes each event as one JSON message keyed by event id.
type KafkaRecorder struct {
	writer messageWriter
	topic  string
}

// NewKafkaRecorder creates a recorder writing to topic on brokers.
func NewKafkaRecorder(brokers []string, topic string) *KafkaRecorder {
	return &KafkaRecorder{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
		topic: topic,
	}
}

func (k *KafkaRecorder) RecordPrediction(ctx context.Context, ev PredictionEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(ev.ID),
		Value: data,
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write prediction to kafka topic %s: %w", k.topic, err)
	}

	log.Debug().Str("topic", k.topic).Str("event_id", ev.ID).Msg("sent prediction to kafka")
	return nil
}

func (k *KafkaRecorder) Close() error {
	return k.writer.Close()
}
