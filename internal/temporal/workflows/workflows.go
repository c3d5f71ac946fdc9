// Package workflows implements the repair state machine on Temporal: the
// one-shot RepairWorkflow and the perpetual ProactiveRepairWorkflow that
// wraps the same cycle in a cool-down loop.
package workflows

import (
	"time"

	"go.temporal.io/sdk/log"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/jordanhubbard/inframon/internal/notify"
	"github.com/jordanhubbard/inframon/internal/repair"
	"github.com/jordanhubbard/inframon/internal/temporal/activities"
)

// Signal names accepted by the repair workflows. The payload is the deciding
// user's name.
const (
	SignalApproveRepair = "ApproveRepair"
	SignalRejectRepair  = "RejectRepair"
)

// Query names answered by the repair workflows.
const (
	QueryGetRepairStatus            = "GetRepairStatus"
	QueryIsRepairPlanned            = "IsRepairPlanned"
	QueryIsRepairApproved           = "IsRepairApproved"
	QueryGetProblemsConfidenceScore = "GetProblemsConfidenceScore"
	QueryGetRepairAnalysisResult    = "GetRepairAnalysisResult"
	QueryGetRepairPlanningResult    = "GetRepairPlanningResult"
	QueryGetRepairToolResults       = "GetRepairToolResults"
	QueryGetRepairReport            = "GetRepairReport"
)

const (
	defaultActionabilityThreshold = 0.5
	defaultCycleCooldown          = 5 * time.Minute

	// proactiveCyclesPerRun bounds history growth; the workflow continues
	// as new after this many cycles.
	proactiveCyclesPerRun = 25
)

// repairState is the queryable state of one workflow execution. Results stay
// visible through the cool-down so operators can inspect the last cycle; the
// next cycle resets them.
type repairState struct {
	status    string
	detection *repair.DetectionResult
	analysis  *repair.AnalysisResult
	plan      *repair.PlanningResult
	execution *repair.ExecutionResult
	report    *repair.Report

	decided   bool
	approved  bool
	decidedBy string

	// spent marks the decision as belonging to a finished cycle, so a
	// signal arriving during the proactive cool-down records a fresh
	// decision for the next cycle instead of being dropped.
	spent bool
}

func newRepairState() *repairState {
	return &repairState{status: repair.StatusNotStarted}
}

// resetCycle clears the previous cycle's results. An unspent decision, one
// recorded during the cool-down, is kept for the coming cycle's approval
// gate to consume.
func (s *repairState) resetCycle() {
	s.detection = nil
	s.analysis = nil
	s.plan = nil
	s.execution = nil
	s.report = nil
	if s.spent {
		s.decided = false
		s.approved = false
		s.decidedBy = ""
		s.spent = false
	}
}

// closeCycleDecision marks the current decision, if any, as consumed by the
// cycle that just finished. Called before the cool-down sleep.
func (s *repairState) closeCycleDecision() {
	if s.decided {
		s.spent = true
	}
}

// recordDecision applies the first valid decision of the current cycle;
// everything after it is logged and dropped until the cycle closes.
func (s *repairState) recordDecision(logger log.Logger, approve bool, user string) {
	if s.decided && !s.spent {
		logger.Info("Ignoring repair decision, one is already recorded",
			"approve", approve, "user", user, "decidedBy", s.decidedBy)
		return
	}
	s.decided = true
	s.approved = approve
	s.decidedBy = user
	s.spent = false
	if approve {
		logger.Info("Repair approved", "user", user)
	} else {
		logger.Info("Repair rejected", "user", user)
	}
}

// registerQueries wires the query handlers. Absent results answer with zero
// values, never errors, so callers can poll at any point in the cycle.
func (s *repairState) registerQueries(ctx workflow.Context) error {
	handlers := []struct {
		name string
		fn   interface{}
	}{
		{QueryGetRepairStatus, func() (string, error) { return s.status, nil }},
		{QueryIsRepairPlanned, func() (bool, error) {
			return s.plan != nil && len(s.plan.ProposedTools) > 0, nil
		}},
		{QueryIsRepairApproved, func() (bool, error) { return s.decided && s.approved, nil }},
		{QueryGetProblemsConfidenceScore, func() (float64, error) {
			if s.detection == nil {
				return 0, nil
			}
			return s.detection.ConfidenceScore, nil
		}},
		{QueryGetRepairAnalysisResult, func() (repair.AnalysisResult, error) {
			if s.analysis == nil {
				return repair.AnalysisResult{}, nil
			}
			return *s.analysis, nil
		}},
		{QueryGetRepairPlanningResult, func() (repair.PlanningResult, error) {
			if s.plan == nil {
				return repair.PlanningResult{}, nil
			}
			return *s.plan, nil
		}},
		{QueryGetRepairToolResults, func() (repair.ExecutionResult, error) {
			if s.execution == nil {
				return repair.ExecutionResult{}, nil
			}
			return *s.execution, nil
		}},
		{QueryGetRepairReport, func() (repair.Report, error) {
			if s.report == nil {
				return repair.Report{}, nil
			}
			return *s.report, nil
		}},
	}
	for _, h := range handlers {
		if err := workflow.SetQueryHandler(ctx, h.name, h.fn); err != nil {
			return err
		}
	}
	return nil
}

// listenForDecisions drains the approval signals for the lifetime of the
// workflow. Decisions received while a step is in flight take effect at the
// approval gate, never mid-activity.
func (s *repairState) listenForDecisions(ctx workflow.Context) {
	logger := workflow.GetLogger(ctx)

	approveCh := workflow.GetSignalChannel(ctx, SignalApproveRepair)
	workflow.Go(ctx, func(gctx workflow.Context) {
		for {
			var user string
			approveCh.Receive(gctx, &user)
			s.recordDecision(logger, true, user)
		}
	})

	rejectCh := workflow.GetSignalChannel(ctx, SignalRejectRepair)
	workflow.Go(ctx, func(gctx workflow.Context) {
		for {
			var user string
			rejectCh.Receive(gctx, &user)
			s.recordDecision(logger, false, user)
		}
	})
}

// RepairWorkflow runs one detect-analyze-plan-approve-repair-report cycle.
// The returned report is nil when the cycle ended without repairs
// (NO-REPAIR-NEEDED or REJECTED); GetRepairStatus tells the outcomes apart.
func RepairWorkflow(ctx workflow.Context, input repair.WorkflowInput) (*repair.Report, error) {
	state := newRepairState()
	if err := state.registerQueries(ctx); err != nil {
		return nil, err
	}
	state.listenForDecisions(ctx)

	return runRepairCycle(ctx, input, state)
}

// ProactiveRepairWorkflow runs repair cycles forever, sleeping the configured
// cool-down between them. A failed cycle does not stop the loop.
func ProactiveRepairWorkflow(ctx workflow.Context, input repair.WorkflowInput) error {
	logger := workflow.GetLogger(ctx)

	if input.Metadata == nil {
		input.Metadata = map[string]string{}
	}
	input.Metadata["variant"] = "proactive"

	cooldown := input.CycleCooldown
	if cooldown <= 0 {
		cooldown = defaultCycleCooldown
	}

	state := newRepairState()
	if err := state.registerQueries(ctx); err != nil {
		return err
	}
	state.listenForDecisions(ctx)

	for cycle := 0; cycle < proactiveCyclesPerRun; cycle++ {
		state.resetCycle()

		if _, err := runRepairCycle(ctx, input, state); err != nil {
			logger.Error("Repair cycle failed, continuing after cool-down", "cycle", cycle, "error", err)
		}

		state.closeCycleDecision()
		state.status = repair.StatusWaitingForNextCycle
		logger.Info("Waiting for next monitoring cycle", "cooldown", cooldown)
		if err := workflow.Sleep(ctx, cooldown); err != nil {
			return err
		}
	}

	return workflow.NewContinueAsNewError(ctx, ProactiveRepairWorkflow, input)
}

func runRepairCycle(ctx workflow.Context, input repair.WorkflowInput, state *repairState) (*repair.Report, error) {
	logger := workflow.GetLogger(ctx)

	actx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	})

	var a *activities.Activities

	from := state.status
	state.status = repair.StatusDetecting
	notifyTransition(ctx, notify.EventCycleStarted, from, state.status, "", nil)

	var detection repair.DetectionResult
	if err := workflow.ExecuteActivity(actx, a.Detect, input).Get(actx, &detection); err != nil {
		return nil, failCycle(ctx, state, repair.StatusDetecting, err)
	}
	state.detection = &detection

	threshold := input.ActionabilityThreshold
	if threshold <= 0 {
		threshold = defaultActionabilityThreshold
	}
	if detection.ConfidenceScore < threshold {
		logger.Info("No actionable problems detected",
			"confidence", detection.ConfidenceScore, "threshold", threshold)
		from := state.status
		state.status = repair.StatusNoRepairNeeded
		notifyTransition(ctx, notify.EventNoRepairNeeded, from, state.status, "", map[string]interface{}{
			"confidence_score": detection.ConfidenceScore,
		})
		return nil, nil
	}
	notifyTransition(ctx, notify.EventProblemsDetected, repair.StatusDetecting, repair.StatusAnalyzing, "", map[string]interface{}{
		"confidence_score": detection.ConfidenceScore,
	})

	state.status = repair.StatusAnalyzing
	var analysis repair.AnalysisResult
	if err := workflow.ExecuteActivity(actx, a.Analyze, input).Get(actx, &analysis); err != nil {
		return nil, failCycle(ctx, state, repair.StatusAnalyzing, err)
	}
	state.analysis = &analysis

	state.status = repair.StatusPlanning
	var plan repair.PlanningResult
	if err := workflow.ExecuteActivity(actx, a.PlanRepair, &analysis).Get(actx, &plan); err != nil {
		return nil, failCycle(ctx, state, repair.StatusPlanning, err)
	}
	state.plan = &plan

	// Operator heads-up goes out before the gate so someone is looking at
	// the plan while the workflow waits.
	notifyTransition(ctx, notify.EventPlanReady, repair.StatusPlanning, repair.StatusAwaitingApproval, "", map[string]interface{}{
		"equipment_count":  len(plan.ProposedTools),
		"confidence_score": plan.ConfidenceScore,
		"report_path":      plan.ReportPath,
	})

	state.status = repair.StatusAwaitingApproval
	if input.AutoApprove && !state.decided {
		state.recordDecision(logger, true, "auto-approve")
	}
	if err := workflow.Await(ctx, func() bool { return state.decided }); err != nil {
		return nil, err
	}

	if !state.approved {
		from := state.status
		state.status = repair.StatusRejected
		notifyTransition(ctx, notify.EventRejected, from, state.status, state.decidedBy, nil)
		return nil, nil
	}
	notifyTransition(ctx, notify.EventApproved, repair.StatusAwaitingApproval, repair.StatusRepairing, state.decidedBy, nil)

	state.status = repair.StatusRepairing
	var execution repair.ExecutionResult
	if err := workflow.ExecuteActivity(actx, a.ExecuteRepairs, &plan).Get(actx, &execution); err != nil {
		return nil, failCycle(ctx, state, repair.StatusRepairing, err)
	}
	state.execution = &execution
	state.status = repair.StatusRepairCompleted

	var rep repair.Report
	if err := workflow.ExecuteActivity(actx, a.Report, &execution).Get(actx, &rep); err != nil {
		logger.Warn("Report step failed, composing fallback summary", "error", err)
		rep = repair.Report{
			RepairsSummary: execution.Summary,
			GeneratedAt:    workflow.Now(ctx).UTC().Format(time.RFC3339),
		}
	}
	state.report = &rep

	notifyTransition(ctx, notify.EventRepairCompleted, repair.StatusRepairing, repair.StatusRepairCompleted, state.decidedBy, map[string]interface{}{
		"repaired_count": execution.RepairedCount,
		"skipped_count":  execution.SkippedCount,
	})

	logger.Info("Repair cycle completed", "repaired", execution.RepairedCount, "skipped", execution.SkippedCount)
	return &rep, nil
}

func failCycle(ctx workflow.Context, state *repairState, from string, err error) error {
	workflow.GetLogger(ctx).Error("Repair cycle failed", "step", from, "error", err)
	state.status = repair.StatusRepairFailed
	notifyTransition(ctx, notify.EventRepairFailed, from, state.status, "", map[string]interface{}{
		"error": err.Error(),
	})
	return err
}

// notifyTransition publishes a lifecycle event through the Notify activity.
// Notifications are best-effort: a failure is logged, never propagated.
func notifyTransition(ctx workflow.Context, event notify.EventType, from, to, actor string, data map[string]interface{}) {
	nctx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 2},
	})

	var a *activities.Activities
	input := activities.NotifyInput{
		Event:      event,
		FromStatus: from,
		ToStatus:   to,
		Actor:      actor,
		Data:       data,
	}
	if err := workflow.ExecuteActivity(nctx, a.Notify, input).Get(nctx, nil); err != nil {
		workflow.GetLogger(ctx).Warn("Notification failed", "event", event, "error", err)
	}
}
