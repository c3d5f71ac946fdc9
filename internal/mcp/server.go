// Package mcp exposes the monitoring agent over the Model Context Protocol.
// An MCP client can start one-shot or proactive monitoring workflows, approve
// or reject proposed repairs, and read workflow state and equipment data.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	mcpgo "github.com/felixgeelhaar/mcp-go"
	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"github.com/jordanhubbard/inframon/internal/config"
	"github.com/jordanhubbard/inframon/internal/datastore"
	"github.com/jordanhubbard/inframon/internal/repair"
	temporalclient "github.com/jordanhubbard/inframon/internal/temporal/client"
	"github.com/jordanhubbard/inframon/internal/temporal/workflows"
)

const serverInstructions = `This agent monitors and repairs issues in network infrastructure systems.
It can detect equipment problems, plan maintenance and repairs, and execute them based on user approval.
Start a monitoring workflow, approve or reject its proposed repairs, and query its status at any point.
Optionally start a proactive monitoring workflow that runs in the background and detects problems on its own.`

// Server wraps an MCP server around the workflow client and equipment store.
type Server struct {
	srv   *mcpgo.Server
	tc    *temporalclient.Client
	store datastore.Store
	cfg   *config.Config
}

// NewServer builds the MCP server and registers the agent's tool surface.
func NewServer(cfg *config.Config, store datastore.Store, tc *temporalclient.Client) *Server {
	s := &Server{
		tc:    tc,
		store: store,
		cfg:   cfg,
	}

	s.srv = mcpgo.NewServer(mcpgo.ServerInfo{
		Name:        "Infrastructure Monitoring Agent",
		Version:     "1.0.0",
		Description: "An infrastructure monitoring and repair agent for network equipment maintenance.",
		Capabilities: mcpgo.Capabilities{
			Tools: true,
		},
	}, mcpgo.WithInstructions(serverInstructions))

	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.srv.Tool("initiate_infrastructure_monitoring").
		Description("Start an infrastructure monitoring workflow that detects equipment problems and proposes repairs. Upon approval, the workflow continues with the repairs and eventually reports its results.").
		Handler(func(ctx context.Context, _ json.RawMessage) (string, error) {
			return s.startMonitoring(ctx, false)
		})

	s.srv.Tool("initiate_proactive_infrastructure_monitoring").
		Description("Start the proactive infrastructure monitoring agent. It runs in the background indefinitely, detecting and repairing problems cycle after cycle.").
		Handler(func(ctx context.Context, _ json.RawMessage) (string, error) {
			return s.startMonitoring(ctx, true)
		})

	s.srv.Tool("approve_proposed_infrastructure_repairs").
		Description("Approve the repairs proposed by the monitoring workflow. The workflow then executes the repairs and reports its results.").
		Handler(func(ctx context.Context, input json.RawMessage) (string, error) {
			return s.decide(ctx, input, workflows.SignalApproveRepair)
		})

	s.srv.Tool("reject_proposed_infrastructure_repairs").
		Description("Reject the repairs proposed by the monitoring workflow. The workflow ends without executing the repairs.").
		Handler(func(ctx context.Context, input json.RawMessage) (string, error) {
			return s.decide(ctx, input, workflows.SignalRejectRepair)
		})

	s.srv.Tool("get_infrastructure_monitoring_status").
		Description("Get the current status of the infrastructure monitoring workflow.").
		Handler(func(ctx context.Context, input json.RawMessage) (string, error) {
			ref, err := decodeRef(input)
			if err != nil {
				return "", err
			}
			var status string
			if err := s.queryInto(ctx, ref, workflows.QueryGetRepairStatus, &status); err != nil {
				return "", err
			}
			return marshalResult(map[string]interface{}{"status": status})
		})

	s.srv.Tool("get_infrastructure_problems_confidence").
		Description("Get the confidence score that there are problems with the infrastructure equipment.").
		Handler(func(ctx context.Context, input json.RawMessage) (string, error) {
			ref, err := decodeRef(input)
			if err != nil {
				return "", err
			}
			var confidence float64
			if err := s.queryInto(ctx, ref, workflows.QueryGetProblemsConfidenceScore, &confidence); err != nil {
				return "", err
			}
			return marshalResult(map[string]interface{}{"confidence_score": confidence})
		})

	s.srv.Tool("get_infrastructure_analysis_result").
		Description("Get the analysis result of the monitoring workflow: the issues found per equipment. Empty before the analysis step completes.").
		Handler(func(ctx context.Context, input json.RawMessage) (string, error) {
			ref, err := decodeRef(input)
			if err != nil {
				return "", err
			}
			var analysis repair.AnalysisResult
			if err := s.queryInto(ctx, ref, workflows.QueryGetRepairAnalysisResult, &analysis); err != nil {
				return "", err
			}
			return marshalResult(map[string]interface{}{"analysis_result": analysis})
		})

	s.srv.Tool("get_proposed_infrastructure_tools").
		Description("Get the maintenance tools proposed by the planning step. These are proposals, not executed repairs. Empty before the planning step completes.").
		Handler(func(ctx context.Context, input json.RawMessage) (string, error) {
			ref, err := decodeRef(input)
			if err != nil {
				return "", err
			}
			var plan repair.PlanningResult
			if err := s.queryInto(ctx, ref, workflows.QueryGetRepairPlanningResult, &plan); err != nil {
				return "", err
			}
			return marshalResult(map[string]interface{}{
				"proposed_tools":   plan.ProposedTools,
				"additional_notes": plan.AdditionalNotes,
			})
		})

	s.srv.Tool("get_infrastructure_repair_tool_results").
		Description("Get the results of the maintenance tools executed by the monitoring workflow. Empty before the repair step completes.").
		Handler(func(ctx context.Context, input json.RawMessage) (string, error) {
			ref, err := decodeRef(input)
			if err != nil {
				return "", err
			}
			var results repair.ExecutionResult
			if err := s.queryInto(ctx, ref, workflows.QueryGetRepairToolResults, &results); err != nil {
				return "", err
			}
			return marshalResult(map[string]interface{}{"repair_results": results})
		})

	s.srv.Tool("get_infrastructure_repair_report").
		Description("Get the final report of the monitoring workflow. Empty before the report step completes.").
		Handler(func(ctx context.Context, input json.RawMessage) (string, error) {
			ref, err := decodeRef(input)
			if err != nil {
				return "", err
			}
			var rep repair.Report
			if err := s.queryInto(ctx, ref, workflows.QueryGetRepairReport, &rep); err != nil {
				return "", err
			}
			return marshalResult(map[string]interface{}{"report": rep})
		})

	s.srv.Tool("get_infrastructure_inventory_data").
		Description("Get the full infrastructure equipment inventory.").
		Handler(s.inventoryData)

	s.srv.Tool("get_infrastructure_health_metrics").
		Description("Get the current health metrics for all monitored equipment.").
		Handler(s.healthMetricsData)
}

// workflowRef identifies a workflow execution in tool arguments. A missing
// run ID targets the latest run.
type workflowRef struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id,omitempty"`
}

func decodeRef(input json.RawMessage) (workflowRef, error) {
	var ref workflowRef
	if len(input) > 0 {
		if err := json.Unmarshal(input, &ref); err != nil {
			return ref, fmt.Errorf("failed to parse tool arguments: %w", err)
		}
	}
	if ref.WorkflowID == "" {
		return ref, fmt.Errorf("tool arguments missing workflow_id")
	}
	return ref, nil
}

func marshalResult(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return string(data), nil
}

func (s *Server) startMonitoring(ctx context.Context, proactive bool) (string, error) {
	user := s.cfg.MCP.UserName

	prompt := "Analyze and repair equipment issues in the infrastructure system."
	if proactive {
		prompt = "Continuously monitor and repair equipment issues in the infrastructure system."
	}
	input := repair.WorkflowInput{
		Prompt:                 prompt,
		Metadata:               map[string]string{"requested_by": user, "requested_via": "mcp"},
		ActionabilityThreshold: s.cfg.Repair.ActionabilityThreshold,
		CycleCooldown:          s.cfg.Repair.CycleCooldown,
	}

	options := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("infra-monitoring-agent-for-%s-%s", user, uuid.New().String()),
		TaskQueue: s.tc.GetTaskQueue(),
	}

	var run client.WorkflowRun
	var err error
	if proactive {
		run, err = s.tc.ExecuteWorkflow(ctx, options, workflows.ProactiveRepairWorkflow, input)
	} else {
		run, err = s.tc.ExecuteWorkflow(ctx, options, workflows.RepairWorkflow, input)
	}
	if err != nil {
		return "", fmt.Errorf("failed to start workflow: %w", err)
	}

	return marshalResult(map[string]interface{}{
		"workflow_id": run.GetID(),
		"run_id":      run.GetRunID(),
		"status":      s.softStatus(ctx, workflowRef{WorkflowID: run.GetID(), RunID: run.GetRunID()}),
		"proactive":   proactive,
	})
}

func (s *Server) decide(ctx context.Context, input json.RawMessage, signal string) (string, error) {
	ref, err := decodeRef(input)
	if err != nil {
		return "", err
	}

	if err := s.tc.SignalWorkflow(ctx, ref.WorkflowID, ref.RunID, signal, s.cfg.MCP.UserName); err != nil {
		return "", fmt.Errorf("failed to signal workflow: %w", err)
	}

	return marshalResult(map[string]interface{}{
		"workflow_id": ref.WorkflowID,
		"status":      s.softStatus(ctx, ref),
	})
}

func (s *Server) queryInto(ctx context.Context, ref workflowRef, queryType string, out interface{}) error {
	value, err := s.tc.QueryWorkflow(ctx, ref.WorkflowID, ref.RunID, queryType)
	if err != nil {
		return fmt.Errorf("query %s failed: %w", queryType, err)
	}
	if err := value.Get(out); err != nil {
		return fmt.Errorf("query %s returned unexpected payload: %w", queryType, err)
	}
	return nil
}

// softStatus reads the status for inclusion in another tool's result. A
// failed status query degrades to Unknown rather than failing the tool.
func (s *Server) softStatus(ctx context.Context, ref workflowRef) string {
	var status string
	if err := s.queryInto(ctx, ref, workflows.QueryGetRepairStatus, &status); err != nil {
		log.Printf("[MCP] Status query for %s failed: %v", ref.WorkflowID, err)
		return "Unknown"
	}
	return status
}

func (s *Server) inventoryData(_ context.Context, _ json.RawMessage) (string, error) {
	inventory, err := s.store.LoadInventory()
	if err != nil {
		return "", err
	}
	return marshalResult(map[string]interface{}{"infrastructure_inventory": inventory})
}

func (s *Server) healthMetricsData(_ context.Context, _ json.RawMessage) (string, error) {
	metrics, err := s.store.LoadHealthMetrics()
	if err != nil {
		return "", err
	}
	return marshalResult(map[string]interface{}{"health_metrics": metrics})
}

// ServeHTTP serves MCP over HTTP with SSE on addr, blocking until ctx ends.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	log.Printf("[MCP] Serving on %s (namespace %s, task queue %s)",
		addr, s.tc.GetNamespace(), s.tc.GetTaskQueue())
	return mcpgo.ServeHTTP(ctx, s.srv, addr)
}

// ServeStdio serves MCP over stdin/stdout for clients that spawn the agent
// as a subprocess.
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcpgo.ServeStdio(ctx, s.srv, mcpgo.WithMiddleware(mcpgo.Recover(), mcpgo.RequestID()))
}
