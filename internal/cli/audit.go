package cli

import (
	"github.com/spf13/cobra"
)

// NewAuditCmd создаёт группу команд для audit-журнала.
func NewAuditCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the audit log",
	}

	cmd.AddCommand(newAuditQueryCmd(clientFn, outputFn))

	return cmd
}

func newAuditQueryCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var day string
	var execID string
	var action string
	var operator string
	var limit int

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query audit entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			entries, err := client.QueryAudit(QueryAuditOpts{
				Day:      day,
				ExecID:   execID,
				Action:   action,
				Operator: operator,
				Limit:    limit,
			})
			if err != nil {
				return err
			}

			headers := []string{"TIMESTAMP", "ACTION", "OPERATOR", "EXEC_ID", "TARGET", "DETAILS"}
			rows := make([][]string, len(entries))
			for i, e := range entries {
				rows[i] = []string{e.Timestamp, e.Action, e.Operator, e.ExecID, e.Target, e.Details}
			}

			out.Print(headers, rows, entries)
			return nil
		},
	}

	cmd.Flags().StringVar(&day, "day", "", "Day partition (YYYYMMDD)")
	cmd.Flags().StringVar(&execID, "exec-id", "", "Filter by execution ID")
	cmd.Flags().StringVar(&action, "action", "", "Filter by action (TRIGGER, APPROVE, ROUTE, ...)")
	cmd.Flags().StringVar(&operator, "operator", "", "Filter by operator")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}
