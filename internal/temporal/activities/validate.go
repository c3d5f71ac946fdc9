package activities

import (
	"fmt"

	"github.com/jordanhubbard/inframon/internal/repair"
)

// The oracle answers with free-form JSON. These parsers pull the answers into
// typed results, failing hard on anything structurally wrong so the substrate
// can retry the call. Missing optional fields default; missing required
// fields never do.

func parseDetection(obj map[string]interface{}) (*repair.DetectionResult, error) {
	score, ok := floatField(obj, "confidence_score")
	if !ok {
		return nil, fmt.Errorf("detection response is missing confidence_score")
	}
	return &repair.DetectionResult{
		ConfidenceScore: score,
		AdditionalNotes: stringField(obj, "additional_notes"),
	}, nil
}

func parseAnalysis(obj map[string]interface{}) (*repair.AnalysisResult, error) {
	result := &repair.AnalysisResult{
		AdditionalNotes: stringField(obj, "additional_notes"),
	}
	if score, ok := floatField(obj, "confidence_score"); ok {
		result.ConfidenceScore = score
	}

	rawIssues, present := obj["issues"]
	if !present || rawIssues == nil {
		// A healthy fleet has no issues. Absent and empty mean the same.
		return result, nil
	}

	list, ok := rawIssues.([]interface{})
	if !ok {
		return nil, fmt.Errorf("analysis response issues is not a list (got %T)", rawIssues)
	}

	for i, raw := range list {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("analysis issue %d is not an object (got %T)", i, raw)
		}
		issue := repair.Issue{
			EquipmentID: stringField(entry, "equipment_id"),
			Description: stringField(entry, "description"),
			Severity:    stringField(entry, "severity"),
			Site:        stringField(entry, "site"),
		}
		if issue.EquipmentID == "" {
			return nil, fmt.Errorf("analysis issue %d is missing equipment_id", i)
		}
		if score, ok := floatField(entry, "confidence_score"); ok {
			issue.ConfidenceScore = score
		}
		result.Issues = append(result.Issues, issue)
	}
	return result, nil
}

func parsePlanning(obj map[string]interface{}) (*repair.PlanningResult, error) {
	score, ok := floatField(obj, "overall_confidence_score")
	if !ok {
		return nil, fmt.Errorf("planning response is missing overall_confidence_score")
	}

	result := &repair.PlanningResult{
		ProposedTools:   map[string][]repair.ToolInvocation{},
		ConfidenceScore: score,
		AdditionalNotes: stringField(obj, "additional_notes"),
	}

	rawProposed, present := obj["proposed_tools"]
	if !present || rawProposed == nil {
		return result, nil
	}
	proposed, ok := rawProposed.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("planning response proposed_tools is not an object (got %T)", rawProposed)
	}

	for equipmentID, rawList := range proposed {
		list, ok := rawList.([]interface{})
		if !ok {
			return nil, fmt.Errorf("proposed tools for %s is not a list (got %T)", equipmentID, rawList)
		}
		for i, raw := range list {
			invocation, err := parseInvocation(raw)
			if err != nil {
				return nil, fmt.Errorf("proposed tool %d for %s: %w", i, equipmentID, err)
			}
			result.ProposedTools[equipmentID] = append(result.ProposedTools[equipmentID], *invocation)
		}
	}
	return result, nil
}

func parseInvocation(raw interface{}) (*repair.ToolInvocation, error) {
	entry, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invocation is not an object (got %T)", raw)
	}

	name := stringField(entry, "tool_name")
	if name == "" {
		return nil, fmt.Errorf("invocation is missing tool_name")
	}

	rawArgs, present := entry["tool_arguments"]
	if !present || rawArgs == nil {
		return nil, fmt.Errorf("invocation %s is missing tool_arguments", name)
	}
	args, ok := rawArgs.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invocation %s tool_arguments is not an object (got %T)", name, rawArgs)
	}

	score, ok := floatField(entry, "confidence_score")
	if !ok {
		return nil, fmt.Errorf("invocation %s is missing confidence_score", name)
	}

	return &repair.ToolInvocation{
		ToolName:        name,
		ToolArguments:   args,
		ConfidenceScore: score,
		AdditionalNotes: stringField(entry, "additional_notes"),
	}, nil
}

func floatField(obj map[string]interface{}, key string) (float64, bool) {
	v, ok := obj[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func stringField(obj map[string]interface{}, key string) string {
	if v, ok := obj[key].(string); ok {
		return v
	}
	return ""
}
