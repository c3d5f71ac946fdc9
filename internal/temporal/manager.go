// Package temporal wires the Temporal client, worker, workflows, and
// activities together for the monitoring agent daemon.
package temporal

import (
	"fmt"
	"log"

	"go.temporal.io/sdk/worker"

	"github.com/jordanhubbard/inframon/internal/audit"
	"github.com/jordanhubbard/inframon/internal/config"
	"github.com/jordanhubbard/inframon/internal/datastore"
	"github.com/jordanhubbard/inframon/internal/notify"
	"github.com/jordanhubbard/inframon/internal/oracle"
	"github.com/jordanhubbard/inframon/internal/temporal/activities"
	temporalclient "github.com/jordanhubbard/inframon/internal/temporal/client"
	"github.com/jordanhubbard/inframon/internal/temporal/workflows"
)

// Manager owns the Temporal worker for the repair task queue.
type Manager struct {
	client *temporalclient.Client
	worker worker.Worker
	config *config.TemporalConfig
}

// NewManager connects to Temporal and registers the repair workflows and
// activities on the configured task queue.
func NewManager(cfg *config.Config, store datastore.Store, oracleClient oracle.Protocol, trail *audit.Trail, notifier *notify.Notifier) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	client, err := temporalclient.New(&cfg.Temporal)
	if err != nil {
		return nil, fmt.Errorf("failed to create temporal client: %w", err)
	}

	w := worker.New(client.GetClient(), cfg.Temporal.TaskQueue, worker.Options{})

	w.RegisterWorkflow(workflows.RepairWorkflow)
	w.RegisterWorkflow(workflows.ProactiveRepairWorkflow)
	w.RegisterActivity(activities.NewActivities(cfg, store, oracleClient, trail, notifier))

	log.Printf("[Temporal] Worker registered for task queue: %s", cfg.Temporal.TaskQueue)

	return &Manager{
		client: client,
		worker: w,
		config: &cfg.Temporal,
	}, nil
}

// Client returns the underlying Temporal client wrapper.
func (m *Manager) Client() *temporalclient.Client {
	return m.client
}

// Start runs the worker in the background.
func (m *Manager) Start() error {
	log.Println("[Temporal] Starting worker...")
	go func() {
		if err := m.worker.Run(worker.InterruptCh()); err != nil {
			log.Printf("[Temporal] Worker error: %v", err)
		}
	}()
	return nil
}

// Stop stops the worker and closes the client connection.
func (m *Manager) Stop() {
	log.Println("[Temporal] Stopping worker...")
	if m.worker != nil {
		m.worker.Stop()
	}
	if m.client != nil {
		m.client.Close()
	}
}
