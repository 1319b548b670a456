// Package notify implements notification sinks for the delivery workers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/okian/vibrapulse/internal/domain/model"
)

// MessageWriter is the subset of *kafka.Writer used by AlertPublisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AlertEvent is the JSON payload published for warning and critical reports.
type AlertEvent struct {
	ReportID  string    `json:"report_id"`
	FileName  string    `json:"file_name"`
	Digest    string    `json:"digest"`
	Severity  string    `json:"severity"`
	MaxRisk   float64   `json:"max_risk"`
	Message   string    `json:"message"`
	Rows      int       `json:"rows"`
	CreatedAt time.Time `json:"created_at"`
}

// AlertPublisher publishes alerting notifications keyed by report ID.
type AlertPublisher struct {
	w MessageWriter
}

// NewKafkaWriter builds a synchronous writer for topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Async:                  false,
	}
}

// NewAlertPublisher wraps w. The publisher owns w and closes it on Close.
func NewAlertPublisher(w MessageWriter) *AlertPublisher {
	return &AlertPublisher{w: w}
}

func (p *AlertPublisher) Name() string { return "kafka" }

// Deliver publishes n if it is alerting; ok notifications are skipped.
func (p *AlertPublisher) Deliver(ctx context.Context, n model.Notification) error { //nolint:gocritic // sink signature
	if !n.Alerting() {
		return nil
	}
	sev := n.Severity.String()
	body, err := json.Marshal(AlertEvent{
		ReportID:  n.ReportID,
		FileName:  n.FileName,
		Digest:    n.Digest,
		Severity:  sev,
		MaxRisk:   n.MaxRisk,
		Message:   n.Message,
		Rows:      n.Rows,
		CreatedAt: n.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode alert %s: %w", n.ReportID, err)
	}
	msg := kafka.Message{
		Key:     []byte(n.ReportID),
		Value:   body,
		Time:    n.CreatedAt,
		Headers: []kafka.Header{{Key: "severity", Value: []byte(sev)}},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish alert %s: %w", n.ReportID, err)
	}
	return nil
}

func (p *AlertPublisher) Close() error {
	return p.w.Close()
}
