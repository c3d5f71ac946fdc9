// Package activities implements the Temporal activities behind the repair
// workflow: the oracle-driven detect, analyze, and plan steps, the gated
// execution step, and the notify and report side effects.
package activities

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/jordanhubbard/inframon/internal/audit"
	"github.com/jordanhubbard/inframon/internal/config"
	"github.com/jordanhubbard/inframon/internal/datastore"
	"github.com/jordanhubbard/inframon/internal/metrics"
	"github.com/jordanhubbard/inframon/internal/notify"
	"github.com/jordanhubbard/inframon/internal/oracle"
	"github.com/jordanhubbard/inframon/internal/repair"
	"github.com/jordanhubbard/inframon/internal/report"
	"github.com/jordanhubbard/inframon/internal/tools"
)

// Activities holds the dependencies shared by all repair activities.
type Activities struct {
	store    datastore.Store
	oracle   oracle.Protocol
	gate     *repair.Gate
	reports  *report.Writer
	trail    *audit.Trail
	notifier *notify.Notifier
	metrics  *metrics.Metrics
	cfg      *config.Config
}

// NewActivities creates an activities instance. The notifier and audit trail
// may be disabled; their methods are safe no-ops then.
func NewActivities(cfg *config.Config, store datastore.Store, oracleClient oracle.Protocol, trail *audit.Trail, notifier *notify.Notifier) *Activities {
	executor := tools.NewExecutor(store)
	return &Activities{
		store:    store,
		oracle:   oracleClient,
		gate:     repair.NewGate(executor, cfg.Repair.ExecutionConfidenceThreshold),
		reports:  report.NewWriter(cfg.Data.ReportsDir),
		trail:    trail,
		notifier: notifier,
		metrics:  metrics.NewMetrics(),
		cfg:      cfg,
	}
}

// Detect judges whether the fleet currently has actionable problems.
func (a *Activities) Detect(ctx context.Context, input repair.WorkflowInput) (*repair.DetectionResult, error) {
	logger := activity.GetLogger(ctx)
	defer a.observeStep("detect", time.Now())

	variant := input.Metadata["variant"]
	if variant == "" {
		variant = "one_shot"
	}
	a.metrics.CyclesTotal.WithLabelValues(variant).Inc()

	snapshot, err := a.loadSnapshot()
	if err != nil {
		a.metrics.StepErrors.WithLabelValues("detect").Inc()
		return nil, err
	}
	data, err := snapshot.asJSON()
	if err != nil {
		a.metrics.StepErrors.WithLabelValues("detect").Inc()
		return nil, temporal.NewNonRetryableApplicationError("equipment data cannot be serialized", "DataIntegrity", err)
	}

	system, user := a.detectionPrompt(input, data)
	obj, err := a.ask(ctx, "detect", system, user)
	if err != nil {
		a.metrics.StepErrors.WithLabelValues("detect").Inc()
		return nil, err
	}

	result, err := parseDetection(obj)
	if err != nil {
		a.metrics.StepErrors.WithLabelValues("detect").Inc()
		return nil, err
	}

	logger.Info("Detection complete", "confidence", result.ConfidenceScore, "notes", summarize(result.AdditionalNotes))
	return result, nil
}

// Analyze identifies the specific problems behind a positive detection.
func (a *Activities) Analyze(ctx context.Context, input repair.WorkflowInput) (*repair.AnalysisResult, error) {
	logger := activity.GetLogger(ctx)
	defer a.observeStep("analyze", time.Now())

	snapshot, err := a.loadSnapshot()
	if err != nil {
		a.metrics.StepErrors.WithLabelValues("analyze").Inc()
		return nil, err
	}
	data, err := snapshot.asJSON()
	if err != nil {
		a.metrics.StepErrors.WithLabelValues("analyze").Inc()
		return nil, temporal.NewNonRetryableApplicationError("equipment data cannot be serialized", "DataIntegrity", err)
	}

	system, user := a.analysisPrompt(data)
	obj, err := a.ask(ctx, "analyze", system, user)
	if err != nil {
		a.metrics.StepErrors.WithLabelValues("analyze").Inc()
		return nil, err
	}

	result, err := parseAnalysis(obj)
	if err != nil {
		a.metrics.StepErrors.WithLabelValues("analyze").Inc()
		return nil, err
	}

	logger.Info("Analysis complete", "issues", len(result.Issues))
	return result, nil
}

// PlanRepair proposes tool invocations for the analyzed issues and writes the
// maintenance plan report.
func (a *Activities) PlanRepair(ctx context.Context, analysis *repair.AnalysisResult) (*repair.PlanningResult, error) {
	logger := activity.GetLogger(ctx)
	defer a.observeStep("plan", time.Now())

	snapshot, err := a.loadSnapshot()
	if err != nil {
		a.metrics.StepErrors.WithLabelValues("plan").Inc()
		return nil, err
	}
	data, err := snapshot.asJSON()
	if err != nil {
		a.metrics.StepErrors.WithLabelValues("plan").Inc()
		return nil, temporal.NewNonRetryableApplicationError("equipment data cannot be serialized", "DataIntegrity", err)
	}

	system, user, err := a.planningPrompt(analysis, data)
	if err != nil {
		a.metrics.StepErrors.WithLabelValues("plan").Inc()
		return nil, err
	}
	obj, err := a.ask(ctx, "plan", system, user)
	if err != nil {
		a.metrics.StepErrors.WithLabelValues("plan").Inc()
		return nil, err
	}

	result, err := parsePlanning(obj)
	if err != nil {
		a.metrics.StepErrors.WithLabelValues("plan").Inc()
		return nil, err
	}

	path, err := a.reports.WriteMaintenancePlan(result)
	if err != nil {
		a.metrics.StepErrors.WithLabelValues("plan").Inc()
		return nil, err
	}
	result.ReportPath = path

	logger.Info("Planning complete", "equipment", len(result.ProposedTools), "confidence", result.ConfidenceScore, "report", path)
	return result, nil
}

// ExecuteRepairs runs the proposed tools through the confidence gate and
// writes the execution report. Gate failures are non-retryable: invocations
// that already ran have committed their mutations, and replaying the whole
// set would apply them twice.
func (a *Activities) ExecuteRepairs(ctx context.Context, plan *repair.PlanningResult) (*repair.ExecutionResult, error) {
	logger := activity.GetLogger(ctx)
	defer a.observeStep("execute", time.Now())

	workflowID := activity.GetInfo(ctx).WorkflowExecution.ID

	result, err := a.gate.Run(ctx, plan.ProposedTools)
	if result != nil {
		for _, detail := range result.Details {
			a.metrics.ToolsExecuted.WithLabelValues(detail.ToolName).Inc()
			a.trail.RecordToolExecution(workflowID, detail)
		}
		a.metrics.ToolsSkipped.Add(float64(result.SkippedCount))
	}
	if err != nil {
		a.metrics.StepErrors.WithLabelValues("execute").Inc()
		return result, temporal.NewNonRetryableApplicationError("repair execution failed", "RepairExecution", err)
	}

	path, reportErr := a.reports.WriteExecutionReport(result)
	if reportErr != nil {
		logger.Warn("Failed to write execution report", "error", reportErr)
	} else {
		result.ReportPath = path
	}

	logger.Info("Execution complete", "repaired", result.RepairedCount, "skipped", result.SkippedCount)
	return result, nil
}

// NotifyInput describes one workflow status transition for the notify step.
type NotifyInput struct {
	Event      notify.EventType       `json:"event"`
	FromStatus string                 `json:"from_status"`
	ToStatus   string                 `json:"to_status"`
	Actor      string                 `json:"actor,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// Notify publishes a lifecycle event and records the transition in the audit
// trail. Both sinks are best-effort and never fail the cycle.
func (a *Activities) Notify(ctx context.Context, input NotifyInput) error {
	workflowID := activity.GetInfo(ctx).WorkflowExecution.ID

	a.notifier.Publish(input.Event, workflowID, input.Data)
	a.trail.RecordTransition(workflowID, input.FromStatus, input.ToStatus, input.Actor)

	switch input.Event {
	case notify.EventApproved:
		a.metrics.ApprovalDecisions.WithLabelValues("approve").Inc()
	case notify.EventRejected:
		a.metrics.ApprovalDecisions.WithLabelValues("reject").Inc()
	}
	switch input.ToStatus {
	case repair.StatusRepairCompleted, repair.StatusRepairFailed, repair.StatusRejected, repair.StatusNoRepairNeeded:
		a.metrics.CycleOutcome.WithLabelValues(input.ToStatus).Inc()
	}
	return nil
}

// Report assembles the final repair summary for the cycle.
func (a *Activities) Report(ctx context.Context, result *repair.ExecutionResult) (*repair.Report, error) {
	defer a.observeStep("report", time.Now())

	summary := result.Summary
	if result.ReportPath != "" {
		summary = fmt.Sprintf("%s. Full report: %s", summary, result.ReportPath)
	}

	return &repair.Report{
		RepairsSummary: summary,
		GeneratedAt:    time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// ask sends one oracle request, heartbeating while it is in flight, and
// parses the response into a JSON object.
func (a *Activities) ask(ctx context.Context, step, system, user string) (map[string]interface{}, error) {
	req := &oracle.ChatCompletionRequest{
		Model: a.cfg.Oracle.Model,
		Messages: []oracle.ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: a.cfg.Oracle.Temperature,
	}

	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-heartbeatCtx.Done():
				return
			case <-ticker.C:
				activity.RecordHeartbeat(ctx, step)
			}
		}
	}()

	start := time.Now()
	resp, err := a.oracle.CreateChatCompletion(ctx, req)
	a.metrics.OracleLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		a.metrics.OracleRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("oracle call failed during %s: %w", step, err)
	}
	a.metrics.OracleRequests.WithLabelValues("success").Inc()
	a.metrics.OracleTokens.Add(float64(resp.Usage.TotalTokens))

	content, err := resp.Content()
	if err != nil {
		return nil, fmt.Errorf("oracle response unusable during %s: %w", step, err)
	}
	return oracle.ParseObject(content)
}

func (a *Activities) observeStep(step string, start time.Time) {
	a.metrics.StepDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
}
