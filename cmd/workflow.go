package cmd

import (
	"fmt"

	commonerrors "github.com/deploymenttheory/go-disk-defrag/internal/common/errors"
	"github.com/deploymenttheory/go-disk-defrag/internal/logger"
	"github.com/deploymenttheory/go-disk-defrag/internal/workflow"
	"github.com/spf13/cobra"
)

// newWorkflowCmd runs a batch of image steps from a workflow file
func newWorkflowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "workflow <file>",
		Short: "Run a batch of defrag, inspect, verify and convert steps",
		Long: `workflow executes the steps of a YAML, JSON or TOML workflow file in
order. String parameters are Go templates over the workflow variables;
each step adds its results (last_output, next_free, fragmented,
identical, ...) to those variables for later steps and conditions.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return commonerrors.NewDefragError(commonerrors.ErrUsage, cmd.Name(), "",
					fmt.Sprintf("expected one workflow file, got %d arguments", len(args)))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := workflow.Load(args[0])
			if err != nil {
				return err
			}

			if errs := workflow.Validate(wf); len(errs) > 0 {
				for _, err := range errs {
					logger.LogError("Workflow validation error", err, nil)
				}
				return commonerrors.NewDefragError(commonerrors.ErrInvalidArgument, "workflow", args[0],
					fmt.Sprintf("%d validation errors, first: %v", len(errs), errs[0]))
			}

			return workflow.Execute(wf)
		},
	}
}
