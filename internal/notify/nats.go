package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// GradedEvent announces that an essay finished the full grading pipeline.
type GradedEvent struct {
	Source      string    `json:"source"`
	SourceName  string    `json:"source_name"`
	StudentName string    `json:"student_name"`
	FinalScore  int       `json:"final_score"`
	GradedAt    time.Time `json:"graded_at"`
}

// Publisher emits graded-essay events to interested consumers.
type Publisher interface {
	Publish(event GradedEvent) error
}

// NATSPublisher implements Publisher on top of a NATS connection.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSPublisher connects to the NATS server and prepares the publisher.
func NewNATSPublisher(url, subject string, logger zerolog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("redacao-api"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	return &NATSPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "nats_publisher").Logger(),
	}, nil
}

// Publish sends the event. Delivery is fire-and-forget; the grading outcome
// never depends on it.
func (p *NATSPublisher) Publish(event GradedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode graded event: %w", err)
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("publish graded event: %w", err)
	}

	p.logger.Debug().Str("subject", p.subject).Str("student", event.StudentName).Msg("graded event published")
	return nil
}

// Close drains the underlying connection.
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
