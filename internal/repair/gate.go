package repair

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/jordanhubbard/inframon/internal/tools"
)

// ToolRunner executes one recognized tool invocation. Satisfied by
// *tools.Executor; tests substitute a mock.
type ToolRunner interface {
	Execute(kind tools.Kind, args tools.Args) (*tools.Result, error)
}

// Gate applies the confidence-threshold policy to a planning proposal and
// executes the invocations that clear it.
type Gate struct {
	runner    ToolRunner
	threshold float64
}

// NewGate creates a gate with the given execution confidence threshold.
func NewGate(runner ToolRunner, threshold float64) *Gate {
	return &Gate{runner: runner, threshold: threshold}
}

// Run walks the proposal equipment-by-equipment (sorted by ID for stable
// ordering) and invocation-by-invocation. Below-threshold invocations are
// counted as skipped, a normal outcome. An unrecognized tool name or an
// executor failure aborts the cycle: invocations that already ran have
// committed their mutations, and the partial detail list is returned
// alongside the error.
func (g *Gate) Run(ctx context.Context, proposal map[string][]ToolInvocation) (*ExecutionResult, error) {
	result := &ExecutionResult{}

	equipmentIDs := make([]string, 0, len(proposal))
	for id := range proposal {
		equipmentIDs = append(equipmentIDs, id)
	}
	sort.Strings(equipmentIDs)

	for _, equipmentID := range equipmentIDs {
		for _, invocation := range proposal[equipmentID] {
			if err := ctx.Err(); err != nil {
				return result, err
			}

			if invocation.ConfidenceScore < g.threshold {
				log.Printf("[Gate] Skipping %s on %s: confidence %.2f below threshold %.2f",
					invocation.ToolName, equipmentID, invocation.ConfidenceScore, g.threshold)
				result.SkippedCount++
				continue
			}

			kind, err := tools.Lookup(invocation.ToolName)
			if err != nil {
				// The planner proposed a tool that does not exist. That is a
				// hallucination, not a skippable entry.
				return result, fmt.Errorf("proposed tool for %s is not in the catalog: %w", equipmentID, err)
			}

			args := tools.Args{}
			for k, v := range invocation.ToolArguments {
				args[k] = v
			}
			if _, ok := args["equipment_id"]; !ok {
				args["equipment_id"] = equipmentID
			}

			toolResult, err := g.runner.Execute(kind, args)
			if err != nil {
				return result, fmt.Errorf("tool %s failed for %s: %w", invocation.ToolName, equipmentID, err)
			}

			result.Details = append(result.Details, ToolExecutionDetail{
				EquipmentID:     equipmentID,
				ToolName:        invocation.ToolName,
				ConfidenceScore: invocation.ConfidenceScore,
				AdditionalNotes: invocation.AdditionalNotes,
				Arguments:       args,
				ResultStatus:    toolResult.Status,
				ResultMessage:   toolResult.Message,
			})
			result.RepairedCount++
		}
	}

	result.Summary = fmt.Sprintf("Executed %d repair action(s), skipped %d below confidence threshold %.2f",
		result.RepairedCount, result.SkippedCount, g.threshold)
	return result, nil
}
