// Package kafka publishes pipeline outputs to downstream sink topics.
// Export is optional; the service runs the pipelines identically with it
// disabled.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/majindogo/agri-survey-etl/internal/domain"
	"github.com/majindogo/agri-survey-etl/internal/frame"
)

// Exporter writes enriched field records and station summaries to two sink
// topics.
type Exporter struct {
	fields    *kafkago.Writer
	summaries *kafkago.Writer
	logger    *slog.Logger
}

// NewExporter creates writers for the field-record and summary sink topics.
func NewExporter(brokers []string, fieldTopic, summaryTopic string, logger *slog.Logger) *Exporter {
	newWriter := func(topic string) *kafkago.Writer {
		return &kafkago.Writer{
			Addr:         kafkago.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafkago.LeastBytes{},
			RequiredAcks: kafkago.RequireAll,
		}
	}
	return &Exporter{
		fields:    newWriter(fieldTopic),
		summaries: newWriter(summaryTopic),
		logger:    logger,
	}
}

// ExportFieldRecords publishes every enriched field row as a JSON object
// keyed by its field id, in a single WriteMessages call.
func (e *Exporter) ExportFieldRecords(ctx context.Context, f *frame.Frame, fieldIDColumn string) error {
	if f == nil || f.Len() == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, f.Len())
	for i := 0; i < f.Len(); i++ {
		row, err := f.Row(i)
		if err != nil {
			return fmt.Errorf("serialize field record %d: %w", i, err)
		}
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("serialize field record %d: %w", i, err)
		}
		id, err := f.Value(fieldIDColumn, i)
		if err != nil {
			return fmt.Errorf("field record %d: %w", i, err)
		}
		msgs[i] = kafkago.Message{
			Key:   []byte(frame.Key(id)),
			Value: data,
		}
	}
	if err := e.fields.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("export field records: %w", err)
	}
	e.logger.Info("field records exported", "count", len(msgs))
	return nil
}

// ExportSummaries publishes one message per populated summary cell, keyed by
// station id with the measurement kind as a header.
func (e *Exporter) ExportSummaries(ctx context.Context, table domain.SummaryTable) error {
	cells := table.Cells()
	if len(cells) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(cells))
	for i, cell := range cells {
		msg, err := serializeCell(cell, table.GeneratedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := e.summaries.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("export station summaries: %w", err)
	}
	e.logger.Info("station summaries exported", "cells", len(msgs))
	return nil
}

// Close releases both writers.
func (e *Exporter) Close() error {
	return errors.Join(e.fields.Close(), e.summaries.Close())
}

func serializeCell(cell domain.SummaryCell, generatedAt time.Time) (kafkago.Message, error) {
	payload := struct {
		domain.SummaryCell
		GeneratedAt time.Time `json:"generated_at"`
	}{SummaryCell: cell, GeneratedAt: generatedAt}

	data, err := json.Marshal(payload)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize summary cell %s/%s: %w", cell.StationID, cell.Kind, err)
	}
	return kafkago.Message{
		Key:   []byte(cell.StationID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "measurement_kind", Value: []byte(cell.Kind)},
		},
	}, nil
}
