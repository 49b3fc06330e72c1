package agent

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/pagopa/payments-ClouDO-sub002/internal/mq"
)

// Runner выполняет runbook и возвращает его вывод.
type Runner interface {
	Run(ctx context.Context, task mq.DispatchPayload) (output string, err error)
}

// ShellRunner запускает runbook как исполняемый файл из runbook-каталога.
//
// Аргументы: run_args схемы как есть, затем параметры триггера
// в виде --key=value (отсортированы для воспроизводимости).
type ShellRunner struct {
	// Dir — каталог с runbook-скриптами.
	Dir string

	// Timeout — максимальная длительность одного запуска (default: 1h).
	Timeout time.Duration
}

// Run выполняет runbook. Возвращает объединённый stdout+stderr.
func (r *ShellRunner) Run(ctx context.Context, task mq.DispatchPayload) (string, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = time.Hour
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := strings.Fields(task.RunArgs)
	for _, k := range sortedKeys(task.Params) {
		args = append(args, fmt.Sprintf("--%s=%s", k, task.Params[k]))
	}

	cmd := exec.CommandContext(ctx, "./"+task.Runbook, args...)
	cmd.Dir = r.Dir

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	output := buf.String()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return output, fmt.Errorf("runbook %s timed out after %s", task.Runbook, timeout)
		}
		return output, fmt.Errorf("runbook %s: %w", task.Runbook, err)
	}
	return output, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
