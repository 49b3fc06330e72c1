package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewWorkerCmd создаёт группу команд для реестра worker'ов.
func NewWorkerCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Inspect the worker registry",
	}

	cmd.AddCommand(
		newWorkerListCmd(clientFn, outputFn),
		newWorkerShowCmd(clientFn, outputFn),
	)

	return cmd
}

func newWorkerListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			workers, err := client.ListWorkers()
			if err != nil {
				return err
			}

			headers := []string{"WORKER_ID", "POOL", "STATUS", "ACTIVE", "LAST_HEARTBEAT"}
			rows := make([][]string, len(workers))
			for i, w := range workers {
				rows[i] = []string{
					w.WorkerID, w.Pool, w.Status,
					strconv.Itoa(w.ActiveProcesses), Cell(w.LastHeartbeat),
				}
			}

			out.Print(headers, rows, workers)
			return nil
		},
	}
}

func newWorkerShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show worker details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			w, err := client.GetWorker(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"WORKER_ID", "POOL", "CAPABILITIES", "QUEUE", "STATUS", "ACTIVE", "REGISTERED"},
				[][]string{{
					w.WorkerID, w.Pool, strings.Join(w.Capabilities, ","), w.Queue,
					w.Status, strconv.Itoa(w.ActiveProcesses), w.RegisteredAt,
				}},
				w,
			)
			return nil
		},
	}
}
