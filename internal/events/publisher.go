// Package events publishes interview usage and transcript events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"ai-interview-engine/internal/observability/metrics"
)

// UsageEvent accounts for one completion-provider call. Consumed by the
// external cost accumulator.
type UsageEvent struct {
	EventType        string `json:"eventType"`
	InterviewID      string `json:"interviewId"`
	SessionID        string `json:"sessionId"`
	Operation        string `json:"operation"`
	PromptTokens     int    `json:"promptTokens"`
	CompletionTokens int    `json:"completionTokens"`
	Timestamp        int64  `json:"timestamp"`
}

// TranscriptEvent is the audit record of one committed transcript line.
type TranscriptEvent struct {
	EventType   string `json:"eventType"`
	InterviewID string `json:"interviewId"`
	SessionID   string `json:"sessionId"`
	MessageSeq  int    `json:"messageSeq"`
	Role        string `json:"role"`
	Text        string `json:"text"`
	Timestamp   int64  `json:"timestamp"`
}

// Publisher publishes interview events to separate Kafka topics.
type Publisher struct {
	writerUsage      *kafka.Writer
	writerTranscript *kafka.Writer
	principal        string
	topicUsage       string
	topicTranscript  string
	enabled          bool
	metrics          *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers         []string
	TopicUsage      string
	TopicTranscript string
	Principal       string
	Enabled         bool
}

// New creates a new Kafka event publisher with separate topics for usage
// accounting and transcript audit events.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:       cfg.Principal,
			topicUsage:      cfg.TopicUsage,
			topicTranscript: cfg.TopicTranscript,
			enabled:         false,
			metrics:         m,
		}
	}

	// Custom dialer with longer timeouts for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	writerUsage := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicUsage,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	writerTranscript := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicTranscript,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicUsage", cfg.TopicUsage).
		Str("topicTranscript", cfg.TopicTranscript).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerUsage:      writerUsage,
		writerTranscript: writerTranscript,
		principal:        cfg.Principal,
		topicUsage:       cfg.TopicUsage,
		topicTranscript:  cfg.TopicTranscript,
		enabled:          true,
		metrics:          m,
	}
}

// PublishUsage publishes a usage accounting event.
func (p *Publisher) PublishUsage(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerUsage, p.topicUsage, "usage", key, event)
}

// PublishTranscript publishes a transcript audit event.
func (p *Publisher) PublishTranscript(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerTranscript, p.topicTranscript, "transcript", key, event)
}

// publish is the internal method that writes to a specific Kafka writer.
func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	// If Kafka is disabled, just log
	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerUsage != nil {
		if e := p.writerUsage.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing usage writer")
			err = e
		}
	}
	if p.writerTranscript != nil {
		if e := p.writerTranscript.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing transcript writer")
			err = e
		}
	}
	return err
}
