package activities

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jordanhubbard/inframon/internal/datastore"
	"github.com/jordanhubbard/inframon/internal/repair"
	"github.com/jordanhubbard/inframon/internal/tools"
)

// severityRubric is the fixed judgment rubric shared by the detection and
// analysis prompts. The thresholds match the alerting rules the fleet is
// operated with, so oracle judgments line up with what operators expect.
const severityRubric = `Judge equipment health against these thresholds:
- Temperature above 70C indicates overheating.
- CPU utilization above 80% indicates overload.
- Memory utilization above 85% indicates memory pressure.
- Packet loss above 1-2% indicates a link or hardware problem.
- Latency above 15-20ms indicates congestion or a degraded path.
- An expired or expiring maintenance contract leaves the device unsupported.
- Equipment past its expected life span is at elevated failure risk.
- Status "Down" is always critical; "Degraded" is at least a warning.`

// dataSnapshot is the full equipment data set embedded into prompts.
type dataSnapshot struct {
	Inventory      []datastore.Equipment     `json:"infrastructure_inventory"`
	HealthMetrics  []datastore.HealthMetric  `json:"health_metrics"`
	LifeExpectancy []datastore.LifeExpectancy `json:"equipment_life_expectancy"`
}

func (a *Activities) loadSnapshot() (*dataSnapshot, error) {
	inventory, err := a.store.LoadInventory()
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}
	health, err := a.store.LoadHealthMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to load health metrics: %w", err)
	}
	life, err := a.store.LoadLifeExpectancy()
	if err != nil {
		return nil, fmt.Errorf("failed to load life expectancy data: %w", err)
	}
	return &dataSnapshot{
		Inventory:      inventory,
		HealthMetrics:  health,
		LifeExpectancy: life,
	}, nil
}

func (s *dataSnapshot) asJSON() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal equipment data: %w", err)
	}
	return string(data), nil
}

func (a *Activities) detectionPrompt(input repair.WorkflowInput, data string) (system, user string) {
	system = fmt.Sprintf(`You are an infrastructure monitoring agent for a fleet of network equipment.
Today's date for analysis purposes is %s.

%s

Decide how confident you are that the fleet currently has problems worth repairing.
Respond with raw JSON only, no markdown fences, in this shape:
{"confidence_score": <0.0-1.0>, "additional_notes": "<short reasoning>"}`,
		a.cfg.Repair.AnalysisDate, severityRubric)

	user = fmt.Sprintf("Operator request: %s\n\nCurrent equipment data:\n%s", input.Prompt, data)
	return system, user
}

func (a *Activities) analysisPrompt(data string) (system, user string) {
	system = fmt.Sprintf(`You are an infrastructure monitoring agent analyzing a fleet of network equipment.
Today's date for analysis purposes is %s.

%s

Identify every piece of equipment with a problem. Respond with raw JSON only, no markdown fences:
{
  "issues": [
    {"equipment_id": "...", "description": "...", "severity": "critical|warning|info", "site": "...", "confidence_score": <0.0-1.0>}
  ],
  "confidence_score": <0.0-1.0>,
  "additional_notes": "<short summary>"
}
An empty issues list is a valid answer when the fleet is healthy.`,
		a.cfg.Repair.AnalysisDate, severityRubric)

	user = fmt.Sprintf("Current equipment data:\n%s", data)
	return system, user
}

func (a *Activities) planningPrompt(analysis *repair.AnalysisResult, data string) (system, user string, err error) {
	catalogJSON, err := json.Marshal(toolCatalogForPrompt())
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal tool catalog: %w", err)
	}
	issuesJSON, err := json.Marshal(analysis)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal analysis result: %w", err)
	}

	system = fmt.Sprintf(`You are an infrastructure repair planner. Today's date for analysis purposes is %s.

You may only propose tools from this catalog; any other tool name is invalid:
%s

For each piece of equipment with an issue, propose zero or more tool invocations.
Respond with raw JSON only, no markdown fences:
{
  "proposed_tools": {
    "<equipment_id>": [
      {"tool_name": "<catalog name>", "tool_arguments": {"equipment_id": "...", ...}, "confidence_score": <0.0-1.0>, "additional_notes": "..."}
    ]
  },
  "overall_confidence_score": <0.0-1.0>,
  "additional_notes": "<short summary>"
}
Every invocation needs tool_name, tool_arguments, and confidence_score. Use low
confidence for risky or uncertain actions; they will be skipped, not executed.`,
		a.cfg.Repair.AnalysisDate, string(catalogJSON))

	user = fmt.Sprintf("Issues found during analysis:\n%s\n\nCurrent equipment data:\n%s", string(issuesJSON), data)
	return system, user, nil
}

func toolCatalogForPrompt() map[string]tools.Spec {
	out := make(map[string]tools.Spec)
	for kind, spec := range tools.Catalog() {
		out[string(kind)] = spec
	}
	return out
}

// summarize trims a note for log lines.
func summarize(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 120 {
		return s[:117] + "..."
	}
	return s
}
