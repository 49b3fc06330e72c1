package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewExecCmd создаёт группу команд для управления executions.
func NewExecCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec",
		Short: "Manage executions",
	}

	cmd.AddCommand(
		newExecListCmd(clientFn, outputFn),
		newExecTriggerCmd(clientFn, outputFn),
		newExecShowCmd(clientFn, outputFn),
		newExecCancelCmd(clientFn, outputFn),
		newExecHistoryCmd(clientFn, outputFn),
	)

	return cmd
}

func newExecListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var status string
	var schemaID string
	var source string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			execs, err := client.ListExecutions(ListExecutionsOpts{
				Status:   status,
				SchemaID: schemaID,
				Source:   source,
				Limit:    limit,
			})
			if err != nil {
				return err
			}

			headers := []string{"EXEC_ID", "SCHEMA", "STATUS", "SOURCE", "WORKER", "REQUESTED"}
			rows := make([][]string, len(execs))
			for i, e := range execs {
				rows[i] = []string{
					e.ExecID, e.Schema.SchemaID, e.Status, e.Source,
					Cell(e.RoutedWorker), e.RequestedAt,
				}
			}

			out.Print(headers, rows, execs)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, accepted, routed, running, succeeded, failed, error, rejected, skipped)")
	cmd.Flags().StringVar(&schemaID, "schema-id", "", "Filter by schema ID")
	cmd.Flags().StringVar(&source, "source", "", "Filter by source (manual, alert, schedule)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newExecTriggerCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var partition string
	var params []string
	var requestedBy string

	cmd := &cobra.Command{
		Use:   "trigger SCHEMA_ID",
		Short: "Trigger a runbook manually",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			parsed, err := parseParams(params)
			if err != nil {
				return err
			}

			e, err := client.Trigger(TriggerRequest{
				Partition:   partition,
				SchemaID:    args[0],
				Params:      parsed,
				RequestedBy: requestedBy,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Execution created: %s (%s)", e.ExecID, e.Status))
			out.Print(
				[]string{"EXEC_ID", "SCHEMA", "STATUS", "SOURCE", "REQUESTED"},
				[][]string{{e.ExecID, e.Schema.SchemaID, e.Status, e.Source, e.RequestedAt}},
				e,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&partition, "partition", "default", "Schema partition")
	cmd.Flags().StringSliceVar(&params, "param", nil, "Parameter as KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&requestedBy, "by", "", "Operator name (required)")
	cmd.MarkFlagRequired("by")

	return cmd
}

func newExecShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show execution details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			e, err := client.GetExecution(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"EXEC_ID", "SCHEMA", "STATUS", "SOURCE", "WORKER", "ATTEMPTS", "ERROR"},
				[][]string{{
					e.ExecID, e.Schema.SchemaID, e.Status, e.Source,
					Cell(e.RoutedWorker), strconv.Itoa(e.RoutingAttempts), Cell(e.Error),
				}},
				e,
			)
			return nil
		},
	}
}

func newExecCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var requestedBy string
	var reason string

	cmd := &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel an execution that has not started yet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			e, err := client.CancelExecution(args[0], requestedBy, reason)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Execution cancelled: %s", e.ExecID))
			return nil
		},
	}

	cmd.Flags().StringVar(&requestedBy, "by", "", "Operator name (required)")
	cmd.Flags().StringVar(&reason, "reason", "", "Cancellation reason")
	cmd.MarkFlagRequired("by")

	return cmd
}

func newExecHistoryCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "history ID",
		Short: "Show execution audit history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			entries, err := client.ExecutionHistory(args[0])
			if err != nil {
				return err
			}

			headers := []string{"TIMESTAMP", "ACTION", "OPERATOR", "STATUS", "DETAILS"}
			rows := make([][]string, len(entries))
			for i, e := range entries {
				rows[i] = []string{e.Timestamp, e.Action, e.Operator, e.Status, e.Details}
			}

			out.Print(headers, rows, entries)
			return nil
		},
	}
}
