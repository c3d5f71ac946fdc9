package repair

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/jordanhubbard/inframon/internal/tools"
)

type mockRunner struct {
	executed []tools.Args
	failOn   string
}

func (m *mockRunner) Execute(kind tools.Kind, args tools.Args) (*tools.Result, error) {
	if string(kind) == m.failOn {
		return nil, fmt.Errorf("simulated failure in %s", kind)
	}
	m.executed = append(m.executed, args)
	return &tools.Result{Status: "success", Message: "ok"}, nil
}

func TestGate_SkipsBelowThreshold(t *testing.T) {
	runner := &mockRunner{}
	gate := NewGate(runner, 0.5)

	proposal := map[string][]ToolInvocation{
		"SW-001": {
			{ToolName: "restart_device", ToolArguments: map[string]interface{}{}, ConfidenceScore: 0.9},
			{ToolName: "replace_hardware", ToolArguments: map[string]interface{}{}, ConfidenceScore: 0.3},
		},
	}

	result, err := gate.Run(context.Background(), proposal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RepairedCount != 1 {
		t.Errorf("expected 1 repair, got %d", result.RepairedCount)
	}
	if result.SkippedCount != 1 {
		t.Errorf("expected 1 skip, got %d", result.SkippedCount)
	}
	if len(runner.executed) != 1 {
		t.Fatalf("expected exactly one execution, got %d", len(runner.executed))
	}
}

func TestGate_ThresholdBoundary(t *testing.T) {
	runner := &mockRunner{}
	gate := NewGate(runner, 0.5)

	// Exactly at the threshold executes; strictly below skips.
	proposal := map[string][]ToolInvocation{
		"SW-001": {
			{ToolName: "restart_device", ToolArguments: map[string]interface{}{}, ConfidenceScore: 0.5},
			{ToolName: "restart_device", ToolArguments: map[string]interface{}{}, ConfidenceScore: 0.499},
		},
	}

	result, err := gate.Run(context.Background(), proposal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RepairedCount != 1 || result.SkippedCount != 1 {
		t.Errorf("expected 1 executed / 1 skipped, got %d / %d", result.RepairedCount, result.SkippedCount)
	}
}

func TestGate_UnknownToolIsFatal(t *testing.T) {
	runner := &mockRunner{}
	gate := NewGate(runner, 0.5)

	proposal := map[string][]ToolInvocation{
		"SW-001": {
			{ToolName: "format_disk", ToolArguments: map[string]interface{}{}, ConfidenceScore: 0.9},
		},
	}

	_, err := gate.Run(context.Background(), proposal)
	if err == nil {
		t.Fatal("expected error for unknown tool")
	}
	if !strings.Contains(err.Error(), "not in the catalog") {
		t.Errorf("unexpected error: %v", err)
	}
	if len(runner.executed) != 0 {
		t.Error("nothing should have executed")
	}
}

func TestGate_InjectsEquipmentID(t *testing.T) {
	runner := &mockRunner{}
	gate := NewGate(runner, 0.5)

	proposal := map[string][]ToolInvocation{
		"SW-001": {
			{ToolName: "restart_device", ToolArguments: map[string]interface{}{}, ConfidenceScore: 0.8},
		},
	}

	if _, err := gate.Run(context.Background(), proposal); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := runner.executed[0]["equipment_id"]; got != "SW-001" {
		t.Errorf("expected injected equipment_id, got %v", got)
	}
}

func TestGate_PreservesExplicitEquipmentID(t *testing.T) {
	runner := &mockRunner{}
	gate := NewGate(runner, 0.5)

	proposal := map[string][]ToolInvocation{
		"SW-001": {
			{
				ToolName:        "restart_device",
				ToolArguments:   map[string]interface{}{"equipment_id": "SW-001"},
				ConfidenceScore: 0.8,
			},
		},
	}

	if _, err := gate.Run(context.Background(), proposal); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := runner.executed[0]["equipment_id"]; got != "SW-001" {
		t.Errorf("unexpected equipment_id: %v", got)
	}
}

func TestGate_ExecutorFailureAbortsWithPartialResult(t *testing.T) {
	runner := &mockRunner{failOn: "update_firmware"}
	gate := NewGate(runner, 0.5)

	// Sorted order guarantees SW-aaa runs before SW-bbb.
	proposal := map[string][]ToolInvocation{
		"SW-aaa": {
			{ToolName: "restart_device", ToolArguments: map[string]interface{}{}, ConfidenceScore: 0.9},
		},
		"SW-bbb": {
			{ToolName: "update_firmware", ToolArguments: map[string]interface{}{}, ConfidenceScore: 0.9},
		},
	}

	result, err := gate.Run(context.Background(), proposal)
	if err == nil {
		t.Fatal("expected error from failing executor")
	}
	if result.RepairedCount != 1 {
		t.Errorf("expected the earlier repair recorded, got %d", result.RepairedCount)
	}
	if len(result.Details) != 1 || result.Details[0].EquipmentID != "SW-aaa" {
		t.Errorf("unexpected details: %+v", result.Details)
	}
}

func TestGate_DeterministicOrdering(t *testing.T) {
	runner := &mockRunner{}
	gate := NewGate(runner, 0.0)

	proposal := map[string][]ToolInvocation{
		"SW-c": {{ToolName: "restart_device", ToolArguments: map[string]interface{}{}, ConfidenceScore: 0.9}},
		"SW-a": {{ToolName: "restart_device", ToolArguments: map[string]interface{}{}, ConfidenceScore: 0.9}},
		"SW-b": {{ToolName: "restart_device", ToolArguments: map[string]interface{}{}, ConfidenceScore: 0.9}},
	}

	result, err := gate.Run(context.Background(), proposal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"SW-a", "SW-b", "SW-c"}
	for i, d := range result.Details {
		if d.EquipmentID != want[i] {
			t.Errorf("detail %d: expected %s, got %s", i, want[i], d.EquipmentID)
		}
	}
}

func TestGate_EmptyProposal(t *testing.T) {
	gate := NewGate(&mockRunner{}, 0.5)

	result, err := gate.Run(context.Background(), map[string][]ToolInvocation{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RepairedCount != 0 || result.SkippedCount != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
	if result.Summary == "" {
		t.Error("expected a summary even for an empty proposal")
	}
}
