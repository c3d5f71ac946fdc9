// inframonctl starts, signals, and queries repair workflows from the
// command line.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"

	"github.com/jordanhubbard/inframon/internal/config"
	"github.com/jordanhubbard/inframon/internal/repair"
	temporalclient "github.com/jordanhubbard/inframon/internal/temporal/client"
	"github.com/jordanhubbard/inframon/internal/temporal/workflows"
)

const version = "1.0.0"

const defaultPrompt = "Check the infrastructure for problems and repair anything that needs it."

var (
	configPath string
	userName   string
	workflowID string
)

func main() {
	godotenv.Load()

	rootCmd := &cobra.Command{
		Use:     "inframonctl",
		Short:   "Control the infrastructure monitoring and repair agent",
		Version: version,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVarP(&userName, "user", "u", defaultUser(), "User name for workflow attribution")

	rootCmd.AddCommand(newStartCommand())
	rootCmd.AddCommand(newApproveCommand())
	rootCmd.AddCommand(newRejectCommand())
	rootCmd.AddCommand(newCancelCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newPlanCommand())
	rootCmd.AddCommand(newResultsCommand())
	rootCmd.AddCommand(newReportCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "operator"
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.DefaultConfig(), nil
}

func connect() (*temporalclient.Client, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	c, err := temporalclient.New(&cfg.Temporal)
	if err != nil {
		return nil, nil, err
	}
	return c, cfg, nil
}

func addWorkflowIDFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&workflowID, "workflow-id", "w", "", "Workflow ID")
	cmd.MarkFlagRequired("workflow-id")
}

func newStartCommand() *cobra.Command {
	var (
		prompt      string
		autoApprove bool
		proactive   bool
		watch       bool
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a repair workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cfg, err := connect()
			if err != nil {
				return err
			}
			defer c.Close()

			input := repair.WorkflowInput{
				Prompt:                 prompt,
				Metadata:               map[string]string{"requested_by": userName},
				AutoApprove:            autoApprove,
				ActionabilityThreshold: cfg.Repair.ActionabilityThreshold,
				CycleCooldown:          cfg.Repair.CycleCooldown,
			}

			id := fmt.Sprintf("infra-monitoring-agent-for-%s-%s", userName, uuid.New().String())
			options := client.StartWorkflowOptions{
				ID:        id,
				TaskQueue: cfg.Temporal.TaskQueue,
			}

			ctx := context.Background()
			var run client.WorkflowRun
			if proactive {
				run, err = c.ExecuteWorkflow(ctx, options, workflows.ProactiveRepairWorkflow, input)
			} else {
				run, err = c.ExecuteWorkflow(ctx, options, workflows.RepairWorkflow, input)
			}
			if err != nil {
				return fmt.Errorf("failed to start workflow: %w", err)
			}

			fmt.Printf("Started workflow %s (run %s)\n", run.GetID(), run.GetRunID())
			if !watch {
				return nil
			}
			return watchWorkflow(ctx, c, run.GetID(), proactive)
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "p", defaultPrompt, "Operator prompt for the detection step")
	cmd.Flags().BoolVar(&autoApprove, "auto-approve", false, "Approve proposed repairs without waiting for a signal")
	cmd.Flags().BoolVar(&proactive, "proactive", false, "Run perpetual monitoring cycles instead of one shot")
	cmd.Flags().BoolVar(&watch, "watch", false, "Poll and print workflow status until it finishes")
	return cmd
}

func watchWorkflow(ctx context.Context, c *temporalclient.Client, id string, proactive bool) error {
	last := ""
	for {
		status := queryString(ctx, c, id, workflows.QueryGetRepairStatus)
		if status != last {
			fmt.Printf("[%s] %s\n", time.Now().Format("15:04:05"), status)
			last = status
		}

		switch status {
		case repair.StatusRepairCompleted, repair.StatusRepairFailed,
			repair.StatusRejected, repair.StatusNoRepairNeeded:
			if !proactive {
				return nil
			}
		}
		time.Sleep(5 * time.Second)
	}
}

func newApproveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Approve the proposed repair plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendDecision(workflows.SignalApproveRepair, "Approved")
		},
	}
	addWorkflowIDFlag(cmd)
	return cmd
}

func newRejectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reject",
		Short: "Reject the proposed repair plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendDecision(workflows.SignalRejectRepair, "Rejected")
		},
	}
	addWorkflowIDFlag(cmd)
	return cmd
}

func sendDecision(signal, verb string) error {
	c, _, err := connect()
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.SignalWorkflow(context.Background(), workflowID, "", signal, userName); err != nil {
		return fmt.Errorf("failed to signal workflow: %w", err)
	}
	fmt.Printf("%s repair plan for workflow %s as %s\n", verb, workflowID, userName)
	return nil
}

func newCancelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a running repair workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := connect()
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.CancelWorkflow(context.Background(), workflowID, ""); err != nil {
				return fmt.Errorf("failed to cancel workflow: %w", err)
			}
			fmt.Printf("Cancelled workflow %s\n", workflowID)
			return nil
		},
	}
	addWorkflowIDFlag(cmd)
	return cmd
}

func newStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current repair workflow status",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := connect()
			if err != nil {
				return err
			}
			defer c.Close()
			ctx := context.Background()

			fmt.Printf("Workflow:   %s\n", workflowID)
			fmt.Printf("Status:     %s\n", queryString(ctx, c, workflowID, workflows.QueryGetRepairStatus))
			fmt.Printf("Planned:    %v\n", queryBool(ctx, c, workflowID, workflows.QueryIsRepairPlanned))
			fmt.Printf("Approved:   %v\n", queryBool(ctx, c, workflowID, workflows.QueryIsRepairApproved))
			fmt.Printf("Confidence: %.2f\n", queryFloat(ctx, c, workflowID, workflows.QueryGetProblemsConfidenceScore))
			return nil
		},
	}
	addWorkflowIDFlag(cmd)
	return cmd
}

func newPlanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the proposed repair plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cfg, err := connect()
			if err != nil {
				return err
			}
			defer c.Close()

			var plan repair.PlanningResult
			if !queryInto(context.Background(), c, workflowID, workflows.QueryGetRepairPlanningResult, &plan) ||
				len(plan.ProposedTools) == 0 {
				fmt.Println("No results yet")
				return nil
			}

			fmt.Printf("Overall confidence: %.2f\n", plan.ConfidenceScore)
			if plan.ReportPath != "" {
				fmt.Printf("Plan report: %s\n", plan.ReportPath)
			}
			threshold := cfg.Repair.ExecutionConfidenceThreshold
			for equipmentID, invocations := range plan.ProposedTools {
				fmt.Printf("\n%s:\n", equipmentID)
				for _, inv := range invocations {
					marker := ""
					if inv.ConfidenceScore < threshold {
						marker = "  [below threshold, will be skipped]"
					}
					fmt.Printf("  - %s (confidence %.2f)%s\n", inv.ToolName, inv.ConfidenceScore, marker)
					if inv.AdditionalNotes != "" {
						fmt.Printf("    %s\n", inv.AdditionalNotes)
					}
				}
			}
			return nil
		},
	}
	addWorkflowIDFlag(cmd)
	return cmd
}

func newResultsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Show the tool execution results",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := connect()
			if err != nil {
				return err
			}
			defer c.Close()

			var results repair.ExecutionResult
			if !queryInto(context.Background(), c, workflowID, workflows.QueryGetRepairToolResults, &results) ||
				results.Summary == "" {
				fmt.Println("No results yet")
				return nil
			}

			fmt.Println(results.Summary)
			for _, d := range results.Details {
				fmt.Printf("  - %s: %s -> %s: %s\n", d.EquipmentID, d.ToolName, d.ResultStatus, d.ResultMessage)
			}
			return nil
		},
	}
	addWorkflowIDFlag(cmd)
	return cmd
}

func newReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the final repair report",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := connect()
			if err != nil {
				return err
			}
			defer c.Close()

			var rep repair.Report
			if !queryInto(context.Background(), c, workflowID, workflows.QueryGetRepairReport, &rep) ||
				rep.RepairsSummary == "" {
				fmt.Println("No results yet")
				return nil
			}

			fmt.Println(rep.RepairsSummary)
			fmt.Printf("Generated at: %s\n", rep.GeneratedAt)
			return nil
		},
	}
	addWorkflowIDFlag(cmd)
	return cmd
}

// Query helpers. A failed query is soft: the caller gets a zero value or a
// placeholder, matching how the dashboard degrades when a workflow is gone.

func queryInto(ctx context.Context, c *temporalclient.Client, id, query string, out interface{}) bool {
	v, err := c.QueryWorkflow(ctx, id, "", query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query %s failed: %v\n", query, err)
		return false
	}
	if err := v.Get(out); err != nil {
		fmt.Fprintf(os.Stderr, "query %s returned unexpected payload: %v\n", query, err)
		return false
	}
	return true
}

func queryString(ctx context.Context, c *temporalclient.Client, id, query string) string {
	var s string
	if !queryInto(ctx, c, id, query, &s) {
		return "Unknown"
	}
	return s
}

func queryBool(ctx context.Context, c *temporalclient.Client, id, query string) bool {
	var b bool
	queryInto(ctx, c, id, query, &b)
	return b
}

func queryFloat(ctx context.Context, c *temporalclient.Client, id, query string) float64 {
	var f float64
	queryInto(ctx, c, id, query, &f)
	return f
}
