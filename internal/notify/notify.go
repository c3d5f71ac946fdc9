// Package notify publishes repair lifecycle events to NATS JetStream so
// interested parties (chat bridges, ticketing, the dashboard) can react to
// workflow progress without polling queries.
package notify

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// EventType identifies a repair lifecycle event.
type EventType string

const (
	EventCycleStarted     EventType = "repair.cycle_started"
	EventProblemsDetected EventType = "repair.problems_detected"
	EventNoRepairNeeded   EventType = "repair.no_repair_needed"
	EventPlanReady        EventType = "repair.plan_ready"
	EventApproved         EventType = "repair.approved"
	EventRejected         EventType = "repair.rejected"
	EventRepairCompleted  EventType = "repair.completed"
	EventRepairFailed     EventType = "repair.failed"
)

// Event is one published notification.
type Event struct {
	Type       EventType              `json:"type"`
	Timestamp  time.Time              `json:"timestamp"`
	WorkflowID string                 `json:"workflow_id"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// Notifier publishes events. A nil or disabled notifier is safe to call.
type Notifier struct {
	conn       *nats.Conn
	js         nats.JetStreamContext
	streamName string
}

// Config holds NATS connection settings.
type Config struct {
	URL        string
	StreamName string
	Timeout    time.Duration
}

// New connects to NATS and ensures the event stream exists.
func New(cfg Config) (*Notifier, error) {
	if cfg.URL == "" {
		cfg.URL = "nats://localhost:4222"
	}
	if cfg.StreamName == "" {
		cfg.StreamName = "INFRAMON"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Timeout(cfg.Timeout),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Printf("[Notify] NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[Notify] NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	n := &Notifier{conn: nc, js: js, streamName: cfg.StreamName}
	if err := n.ensureStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream: %w", err)
	}

	log.Printf("[Notify] Connected to NATS at %s with stream %s", cfg.URL, cfg.StreamName)
	return n, nil
}

func (n *Notifier) ensureStream() error {
	streamConfig := &nats.StreamConfig{
		Name:      n.streamName,
		Subjects:  []string{"inframon.>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   nats.FileStorage,
	}

	_, err := n.js.StreamInfo(n.streamName)
	if err == nil {
		_, err = n.js.UpdateStream(streamConfig)
		return err
	}
	_, err = n.js.AddStream(streamConfig)
	return err
}

// Publish sends one event. A nil or unconnected notifier silently drops it:
// notifications are best-effort and never fail a repair cycle.
func (n *Notifier) Publish(eventType EventType, workflowID string, data map[string]interface{}) {
	if n == nil || n.js == nil {
		return
	}

	event := Event{
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Data:       data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("[Notify] Failed to marshal event %s: %v", eventType, err)
		return
	}

	subject := fmt.Sprintf("inframon.%s", eventType)
	if _, err := n.js.Publish(subject, payload); err != nil {
		log.Printf("[Notify] Failed to publish %s: %v", subject, err)
	}
}

// Close closes the NATS connection.
func (n *Notifier) Close() {
	if n != nil && n.conn != nil {
		n.conn.Close()
	}
}
