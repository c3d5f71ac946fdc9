package repair

import "time"

// Status literals exposed through the GetRepairStatus query. External callers
// branch on these exact strings.
const (
	StatusNotStarted          = "NOT-STARTED"
	StatusDetecting           = "DETECTING"
	StatusAnalyzing           = "ANALYZING"
	StatusPlanning            = "PLANNING"
	StatusAwaitingApproval    = "AWAITING-APPROVAL"
	StatusRepairing           = "REPAIRING"
	StatusRepairCompleted     = "REPAIR-COMPLETED"
	StatusRepairFailed        = "REPAIR-FAILED"
	StatusRejected            = "REJECTED"
	StatusNoRepairNeeded      = "NO-REPAIR-NEEDED"
	StatusWaitingForNextCycle = "WAITING-FOR-NEXT-CYCLE"
)

// WorkflowInput starts a repair workflow. Thresholds and timing ride along
// in the input so workflow code never reads ambient configuration; zero
// values fall back to the documented defaults.
type WorkflowInput struct {
	Prompt                 string            `json:"prompt"`
	Metadata               map[string]string `json:"metadata,omitempty"`
	AutoApprove            bool              `json:"auto_approve,omitempty"`
	ActionabilityThreshold float64           `json:"actionability_threshold,omitempty"`
	CycleCooldown          time.Duration     `json:"cycle_cooldown,omitempty"`
}

// DetectionResult is the output of the detection step.
type DetectionResult struct {
	ConfidenceScore float64 `json:"confidence_score"`
	AdditionalNotes string  `json:"additional_notes,omitempty"`
}

// Issue is one problem identified by the analysis step.
type Issue struct {
	EquipmentID     string  `json:"equipment_id"`
	Description     string  `json:"description"`
	Severity        string  `json:"severity"` // critical | warning | info
	Site            string  `json:"site,omitempty"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// AnalysisResult is the output of the analysis step. An empty issue list is a
// valid result, not an error.
type AnalysisResult struct {
	Issues          []Issue `json:"issues"`
	ConfidenceScore float64 `json:"confidence_score,omitempty"`
	AdditionalNotes string  `json:"additional_notes,omitempty"`
}

// ToolInvocation is one proposed repair action for a piece of equipment.
type ToolInvocation struct {
	ToolName        string                 `json:"tool_name"`
	ToolArguments   map[string]interface{} `json:"tool_arguments"`
	ConfidenceScore float64                `json:"confidence_score"`
	AdditionalNotes string                 `json:"additional_notes,omitempty"`
}

// PlanningResult is the output of the planning step: proposed tool
// invocations keyed by equipment ID plus an overall confidence.
type PlanningResult struct {
	ProposedTools   map[string][]ToolInvocation `json:"proposed_tools"`
	ConfidenceScore float64                     `json:"overall_confidence_score"`
	AdditionalNotes string                      `json:"additional_notes,omitempty"`
	ReportPath      string                      `json:"report_path,omitempty"`
}

// ToolExecutionDetail records one executed (not skipped) tool invocation.
type ToolExecutionDetail struct {
	EquipmentID     string                 `json:"equipment_id"`
	ToolName        string                 `json:"tool_name"`
	ConfidenceScore float64                `json:"confidence_score"`
	AdditionalNotes string                 `json:"additional_notes,omitempty"`
	Arguments       map[string]interface{} `json:"arguments"`
	ResultStatus    string                 `json:"result_status"`
	ResultMessage   string                 `json:"result_message"`
}

// ExecutionResult aggregates a full execution-gate pass.
type ExecutionResult struct {
	RepairedCount int                   `json:"repaired_count"`
	SkippedCount  int                   `json:"skipped_count"`
	Summary       string                `json:"summary"`
	Details       []ToolExecutionDetail `json:"details"`
	ReportPath    string                `json:"report_path,omitempty"`
}

// Report is the final workflow report.
type Report struct {
	RepairsSummary string `json:"repairs_summary"`
	GeneratedAt    string `json:"generated_at"`
}
