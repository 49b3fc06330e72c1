package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewSchemaCmd создаёт группу команд для реестра схем.
func NewSchemaCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage runbook schemas",
	}

	cmd.AddCommand(
		newSchemaListCmd(clientFn, outputFn),
		newSchemaShowCmd(clientFn, outputFn),
		newSchemaApplyCmd(clientFn, outputFn),
		newSchemaDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func newSchemaListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var partition string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runbook schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			schemas, err := client.ListSchemas(partition)
			if err != nil {
				return err
			}

			headers := []string{"PARTITION", "ID", "NAME", "RUNBOOK", "WORKER", "ONCALL", "APPROVAL"}
			rows := make([][]string, len(schemas))
			for i, s := range schemas {
				rows[i] = []string{
					s.Partition, s.ID, s.Name, s.Runbook, s.Worker,
					strconv.FormatBool(s.Oncall), strconv.FormatBool(s.RequireApproval),
				}
			}

			out.Print(headers, rows, schemas)
			return nil
		},
	}

	cmd.Flags().StringVar(&partition, "partition", "", "Filter by partition")

	return cmd
}

func newSchemaShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var partition string

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show schema details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			schema, err := client.GetSchema(partition, args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"PARTITION", "ID", "NAME", "RUNBOOK", "ARGS", "WORKER", "ONCALL", "APPROVAL"},
				[][]string{{
					schema.Partition, schema.ID, schema.Name, schema.Runbook, schema.RunArgs,
					schema.Worker, strconv.FormatBool(schema.Oncall),
					strconv.FormatBool(schema.RequireApproval),
				}},
				schema,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&partition, "partition", "default", "Schema partition")

	return cmd
}

func newSchemaApplyCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var partition string
	var name string
	var description string
	var runbook string
	var runArgs string
	var worker string
	var oncall bool
	var approval bool
	var tags []string

	cmd := &cobra.Command{
		Use:   "apply ID",
		Short: "Create or replace a schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			schema, err := client.UpsertSchema(UpsertSchemaRequest{
				Partition:       partition,
				ID:              args[0],
				Name:            name,
				Description:     description,
				Runbook:         runbook,
				RunArgs:         runArgs,
				Worker:          worker,
				Oncall:          oncall,
				RequireApproval: approval,
				Tags:            tags,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Schema applied: %s/%s", schema.Partition, schema.ID))
			out.Print(
				[]string{"PARTITION", "ID", "NAME", "RUNBOOK", "WORKER"},
				[][]string{{schema.Partition, schema.ID, schema.Name, schema.Runbook, schema.Worker}},
				schema,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&partition, "partition", "default", "Schema partition")
	cmd.Flags().StringVar(&name, "name", "", "Human-readable name")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().StringVar(&runbook, "runbook", "", "Runbook script name (required)")
	cmd.Flags().StringVar(&runArgs, "args", "", "Runbook arguments")
	cmd.Flags().StringVar(&worker, "worker", "", "Target worker or pool (required)")
	cmd.Flags().BoolVar(&oncall, "oncall", false, "Escalate failures to oncall")
	cmd.Flags().BoolVar(&approval, "require-approval", false, "Require approval before run")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag (repeatable)")
	cmd.MarkFlagRequired("runbook")
	cmd.MarkFlagRequired("worker")

	return cmd
}

func newSchemaDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var partition string
	var operator string

	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteSchema(partition, args[0], operator); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Schema deleted: %s/%s", partition, args[0]))
			return nil
		},
	}

	cmd.Flags().StringVar(&partition, "partition", "default", "Schema partition")
	cmd.Flags().StringVar(&operator, "operator", "", "Operator name for the audit trail")

	return cmd
}

// parseParams разбирает флаги KEY=VALUE в map.
func parseParams(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid param format %q, expected KEY=VALUE", kv)
		}
		params[parts[0]] = parts[1]
	}
	return params, nil
}
