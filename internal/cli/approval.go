package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewApprovalCmd создаёт группу команд для approval-запросов.
func NewApprovalCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approval",
		Short: "Manage approval requests",
	}

	cmd.AddCommand(
		newApprovalListCmd(clientFn, outputFn),
		newApprovalShowCmd(clientFn, outputFn),
		newApprovalApproveCmd(clientFn, outputFn),
		newApprovalRejectCmd(clientFn, outputFn),
	)

	return cmd
}

func newApprovalListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending approval requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			approvals, err := client.ListPendingApprovals()
			if err != nil {
				return err
			}

			headers := []string{"EXEC_ID", "SCHEMA", "STATUS", "REQUESTED", "EXPIRES"}
			rows := make([][]string, len(approvals))
			for i, a := range approvals {
				rows[i] = []string{a.ExecID, a.SchemaID, a.Status, a.RequestedAt, a.ExpiresAt}
			}

			out.Print(headers, rows, approvals)
			return nil
		},
	}
}

func newApprovalShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show EXEC_ID",
		Short: "Show the approval request of an execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			a, err := client.GetApproval(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"EXEC_ID", "SCHEMA", "STATUS", "DECIDED_BY", "DECIDED_AT", "EXPIRES"},
				[][]string{{a.ExecID, a.SchemaID, a.Status, a.DecidedBy, a.DecidedAt, a.ExpiresAt}},
				a,
			)
			return nil
		},
	}
}

func newApprovalApproveCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var approver string

	cmd := &cobra.Command{
		Use:   "approve EXEC_ID",
		Short: "Approve an execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			a, err := client.Decide(args[0], approver, true)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Execution approved: %s by %s", a.ExecID, a.DecidedBy))
			return nil
		},
	}

	cmd.Flags().StringVar(&approver, "by", "", "Approver name (required)")
	cmd.MarkFlagRequired("by")

	return cmd
}

func newApprovalRejectCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var approver string

	cmd := &cobra.Command{
		Use:   "reject EXEC_ID",
		Short: "Reject an execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			a, err := client.Decide(args[0], approver, false)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Execution rejected: %s by %s", a.ExecID, a.DecidedBy))
			return nil
		},
	}

	cmd.Flags().StringVar(&approver, "by", "", "Approver name (required)")
	cmd.MarkFlagRequired("by")

	return cmd
}
