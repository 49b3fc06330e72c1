package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewScheduleCmd создаёт группу команд для расписаний.
func NewScheduleCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage schedules",
	}

	cmd.AddCommand(
		newScheduleListCmd(clientFn, outputFn),
		newScheduleCreateCmd(clientFn, outputFn),
		newScheduleShowCmd(clientFn, outputFn),
		newScheduleDeleteCmd(clientFn, outputFn),
		newScheduleEnableCmd(clientFn, outputFn),
		newScheduleDisableCmd(clientFn, outputFn),
	)

	return cmd
}

func newScheduleListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			schedules, err := client.ListSchedules()
			if err != nil {
				return err
			}

			headers := []string{"ID", "NAME", "SCHEMA", "CRON", "TZ", "ENABLED", "NEXT_DUE"}
			rows := make([][]string, len(schedules))
			for i, s := range schedules {
				rows[i] = []string{
					s.ID, s.Name, s.SchemaID, s.CronExpr, s.Timezone,
					strconv.FormatBool(s.Enabled), Cell(s.NextDueAt),
				}
			}

			out.Print(headers, rows, schedules)
			return nil
		},
	}
}

func newScheduleCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name string
	var partition string
	var cronExpr string
	var timezone string
	var params []string
	var disabled bool

	cmd := &cobra.Command{
		Use:   "create SCHEMA_ID",
		Short: "Create a schedule for a schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			parsed, err := parseParams(params)
			if err != nil {
				return err
			}

			schedule, err := client.CreateSchedule(CreateScheduleRequest{
				Name:      name,
				Partition: partition,
				SchemaID:  args[0],
				CronExpr:  cronExpr,
				Timezone:  timezone,
				Params:    parsed,
				Enabled:   !disabled,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Schedule created: %s", schedule.ID))
			out.Print(
				[]string{"ID", "NAME", "SCHEMA", "CRON", "ENABLED", "NEXT_DUE"},
				[][]string{{
					schedule.ID, schedule.Name, schedule.SchemaID, schedule.CronExpr,
					strconv.FormatBool(schedule.Enabled), schedule.NextDueAt,
				}},
				schedule,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Schedule name (required)")
	cmd.Flags().StringVar(&partition, "partition", "default", "Schema partition")
	cmd.Flags().StringVar(&cronExpr, "cron", "", "Cron expression, 5 fields (required)")
	cmd.Flags().StringVar(&timezone, "timezone", "", "Timezone (e.g. 'Europe/Rome', default UTC)")
	cmd.Flags().StringSliceVar(&params, "param", nil, "Parameter as KEY=VALUE (repeatable)")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Create the schedule disabled")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("cron")

	return cmd
}

func newScheduleShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show schedule details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			schedule, err := client.GetSchedule(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "NAME", "SCHEMA", "CRON", "TZ", "ENABLED", "NEXT_DUE", "LAST_RUN"},
				[][]string{{
					schedule.ID, schedule.Name, schedule.SchemaID, schedule.CronExpr,
					schedule.Timezone, strconv.FormatBool(schedule.Enabled),
					Cell(schedule.NextDueAt), Cell(schedule.LastRunAt),
				}},
				schedule,
			)
			return nil
		},
	}
}

func newScheduleDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteSchedule(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Schedule deleted: %s", args[0]))
			return nil
		},
	}
}

func newScheduleEnableCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "enable ID",
		Short: "Enable a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if _, err := client.EnableSchedule(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Schedule enabled: %s", args[0]))
			return nil
		},
	}
}

func newScheduleDisableCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "disable ID",
		Short: "Disable a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if _, err := client.DisableSchedule(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Schedule disabled: %s", args[0]))
			return nil
		},
	}
}
