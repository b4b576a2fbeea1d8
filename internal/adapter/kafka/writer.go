package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/config"
	"github.com/couchcryptid/flood-risk-service/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes risk reports to a Kafka topic.
// It implements pipeline.ResultPublisher.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

var _ pipeline.ResultPublisher = (*Writer)(nil)

// NewWriter creates a Kafka producer for the configured report topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaReportTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes the result and writes it to the report topic. Reports
// for the same location share a key so they land on one partition in order.
func (w *Writer) Publish(ctx context.Context, r pipeline.Result) error {
	msg, err := serializeToMessage(r)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write report %s: %w", r.RunID, err)
	}
	w.logger.Debug("report published", "run_id", r.RunID, "risk", r.Risk)
	return nil
}

// Close flushes pending messages and releases the underlying writer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

// locationKey identifies a location by coordinates rounded to about 1 km.
func locationKey(r pipeline.Result) string {
	return fmt.Sprintf("%.2f,%.2f", r.Location.Latitude, r.Location.Longitude)
}

// serializeToMessage marshals a Result's report view into a Kafka message.
func serializeToMessage(r pipeline.Result) (kafkago.Message, error) {
	data, err := json.Marshal(r.Report(0))
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize risk report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(locationKey(r)),
		Value: data,
		Time:  r.FetchedAt,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(r.RunID)},
			{Key: "risk", Value: []byte(r.Risk.String())},
			{Key: "fetched_at", Value: []byte(r.FetchedAt.Format(time.RFC3339))},
		},
	}, nil
}
