// Package report renders operator-facing markdown artifacts for the repair
// workflow: the maintenance plan produced at planning time and the tool
// execution summary produced after repairs run.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jordanhubbard/inframon/internal/repair"
)

// Writer renders reports into a directory.
type Writer struct {
	dir string
}

// NewWriter creates a report writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// WriteMaintenancePlan renders the proposed tools equipment-by-equipment and
// returns the path of the written file.
func (w *Writer) WriteMaintenancePlan(plan *repair.PlanningResult) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# Infrastructure Maintenance Plan\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Overall confidence score: %.2f\n\n", plan.ConfidenceScore)
	if plan.AdditionalNotes != "" {
		fmt.Fprintf(&b, "Notes: %s\n\n", plan.AdditionalNotes)
	}

	if len(plan.ProposedTools) == 0 {
		b.WriteString("No repairs proposed.\n")
		return w.write("planning_report", b.String())
	}

	equipmentIDs := make([]string, 0, len(plan.ProposedTools))
	for id := range plan.ProposedTools {
		equipmentIDs = append(equipmentIDs, id)
	}
	sort.Strings(equipmentIDs)

	for _, equipmentID := range equipmentIDs {
		fmt.Fprintf(&b, "## Equipment %s\n\n", equipmentID)
		for _, inv := range plan.ProposedTools[equipmentID] {
			fmt.Fprintf(&b, "- **%s** (confidence %.2f)", inv.ToolName, inv.ConfidenceScore)
			if inv.AdditionalNotes != "" {
				fmt.Fprintf(&b, ": %s", inv.AdditionalNotes)
			}
			b.WriteString("\n")
			argNames := make([]string, 0, len(inv.ToolArguments))
			for name := range inv.ToolArguments {
				argNames = append(argNames, name)
			}
			sort.Strings(argNames)
			for _, name := range argNames {
				fmt.Fprintf(&b, "  - %s: %v\n", name, inv.ToolArguments[name])
			}
		}
		b.WriteString("\n")
	}

	return w.write("planning_report", b.String())
}

// WriteExecutionReport renders the execution-gate outcome.
func (w *Writer) WriteExecutionReport(result *repair.ExecutionResult) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# Tool Execution Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "%s\n\n", result.Summary)

	for _, d := range result.Details {
		fmt.Fprintf(&b, "- %s: **%s** -> %s (confidence %.2f): %s\n",
			d.EquipmentID, d.ToolName, d.ResultStatus, d.ConfidenceScore, d.ResultMessage)
	}

	return w.write("tool_execution_report", b.String())
}

func (w *Writer) write(stem, content string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s.md", stem, time.Now().UTC().Format("20060102T150405Z"))
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
