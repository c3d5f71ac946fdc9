// Package audit persists a trail of workflow status transitions and tool
// executions to Postgres. The trail is observability, not control flow:
// when no database is configured every method is a no-op, and write failures
// are logged rather than propagated.
package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/jordanhubbard/inframon/internal/repair"
)

// Trail records workflow events in Postgres.
type Trail struct {
	db *sql.DB
}

// New opens the audit database and initializes the schema. An empty DSN
// returns a disabled trail.
func New(dsn string) (*Trail, error) {
	if dsn == "" {
		return &Trail{}, nil
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	t := &Trail{db: db}
	if err := t.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	return t, nil
}

// Close closes the underlying database connection.
func (t *Trail) Close() error {
	if t.db == nil {
		return nil
	}
	return t.db.Close()
}

// Enabled reports whether a database is configured.
func (t *Trail) Enabled() bool {
	return t.db != nil
}

func (t *Trail) initSchema() error {
	_, err := t.db.Exec(`
		CREATE TABLE IF NOT EXISTS repair_transitions (
			id BIGSERIAL PRIMARY KEY,
			occurred_at TIMESTAMPTZ NOT NULL,
			workflow_id TEXT NOT NULL,
			from_status TEXT NOT NULL,
			to_status TEXT NOT NULL,
			actor TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create repair_transitions: %w", err)
	}

	_, err = t.db.Exec(`
		CREATE TABLE IF NOT EXISTS tool_executions (
			id BIGSERIAL PRIMARY KEY,
			occurred_at TIMESTAMPTZ NOT NULL,
			workflow_id TEXT NOT NULL,
			equipment_id TEXT NOT NULL,
			tool_name TEXT NOT NULL,
			confidence_score DOUBLE PRECISION NOT NULL,
			arguments_json TEXT,
			result_status TEXT NOT NULL,
			result_message TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create tool_executions: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_transitions_workflow ON repair_transitions(workflow_id)",
		"CREATE INDEX IF NOT EXISTS idx_executions_workflow ON tool_executions(workflow_id)",
		"CREATE INDEX IF NOT EXISTS idx_executions_equipment ON tool_executions(equipment_id)",
	}
	for _, indexSQL := range indexes {
		if _, err := t.db.Exec(indexSQL); err != nil {
			log.Printf("[Audit] Warning: failed to create index: %v", err)
		}
	}
	return nil
}

// RecordTransition records a status transition for a workflow instance.
func (t *Trail) RecordTransition(workflowID, fromStatus, toStatus, actor string) {
	if t.db == nil {
		return
	}

	_, err := t.db.Exec(
		`INSERT INTO repair_transitions (occurred_at, workflow_id, from_status, to_status, actor)
		 VALUES ($1, $2, $3, $4, $5)`,
		time.Now().UTC(), workflowID, fromStatus, toStatus, nullable(actor),
	)
	if err != nil {
		log.Printf("[Audit] Failed to record transition %s -> %s for %s: %v",
			fromStatus, toStatus, workflowID, err)
	}
}

// RecordToolExecution records one executed tool invocation.
func (t *Trail) RecordToolExecution(workflowID string, detail repair.ToolExecutionDetail) {
	if t.db == nil {
		return
	}

	var argsJSON interface{}
	if len(detail.Arguments) > 0 {
		data, err := json.Marshal(detail.Arguments)
		if err == nil {
			argsJSON = string(data)
		}
	}

	_, err := t.db.Exec(
		`INSERT INTO tool_executions (occurred_at, workflow_id, equipment_id, tool_name, confidence_score, arguments_json, result_status, result_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		time.Now().UTC(), workflowID, detail.EquipmentID, detail.ToolName,
		detail.ConfidenceScore, argsJSON, detail.ResultStatus, detail.ResultMessage,
	)
	if err != nil {
		log.Printf("[Audit] Failed to record tool execution %s/%s: %v",
			detail.EquipmentID, detail.ToolName, err)
	}
}

// RecentTransitions returns the newest transitions for a workflow, newest
// first, for the dashboard API.
func (t *Trail) RecentTransitions(workflowID string, limit int) ([]Transition, error) {
	if t.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := t.db.Query(
		`SELECT occurred_at, workflow_id, from_status, to_status, COALESCE(actor, '')
		 FROM repair_transitions WHERE workflow_id = $1
		 ORDER BY occurred_at DESC LIMIT $2`,
		workflowID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions: %w", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var tr Transition
		if err := rows.Scan(&tr.OccurredAt, &tr.WorkflowID, &tr.FromStatus, &tr.ToStatus, &tr.Actor); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

// Transition is one recorded status transition.
type Transition struct {
	OccurredAt time.Time `json:"occurred_at"`
	WorkflowID string    `json:"workflow_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Actor      string    `json:"actor,omitempty"`
}

func nullable(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
