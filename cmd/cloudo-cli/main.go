// ClouDO CLI — инструмент командной строки для управления
// runbook-схемами, executions, approvals и расписаниями через HTTP API.
//
// Использование:
//
//	cloudo [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	schema    Реестр runbook-схем
//	exec      Executions (запуск, отмена, история)
//	approval  Approval-запросы
//	worker    Реестр worker'ов
//	schedule  Расписания
//	audit     Audit-журнал
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pagopa/payments-ClouDO-sub002/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "cloudo",
		Short:         "ClouDO CLI — runbook orchestration tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewSchemaCmd(clientFn, outputFn),
		cli.NewExecCmd(clientFn, outputFn),
		cli.NewApprovalCmd(clientFn, outputFn),
		cli.NewWorkerCmd(clientFn, outputFn),
		cli.NewScheduleCmd(clientFn, outputFn),
		cli.NewAuditCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
