package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pagopa/payments-ClouDO-sub002/internal/mq"
)

const (
	defaultWebhookTimeout = 30 * time.Second
	maxWebhookBody        = 1024 * 1024 // 1 MB
)

// WebhookRunner выполняет runbook'и-вебхуки: schema.Runbook содержит
// http(s)-URL, на который POST'ится JSON с параметрами триггера.
// Ответ с кодом >= 300 считается провалом runbook'а.
type WebhookRunner struct {
	// Timeout — максимальная длительность запроса (default: 30s).
	Timeout time.Duration

	client *http.Client
}

// NewWebhookRunner создаёт WebhookRunner.
func NewWebhookRunner(timeout time.Duration) *WebhookRunner {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookRunner{
		Timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

// Run выполняет webhook-запрос. Возвращает тело ответа.
func (r *WebhookRunner) Run(ctx context.Context, task mq.DispatchPayload) (string, error) {
	payload := map[string]any{
		"exec_id":  task.ExecID,
		"run_args": task.RunArgs,
		"params":   task.Params,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, task.Runbook, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("webhook %s: %w", task.Runbook, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxWebhookBody))
	if err != nil {
		return "", fmt.Errorf("read webhook response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return string(respBody), fmt.Errorf("webhook %s: HTTP %d", task.Runbook, resp.StatusCode)
	}
	return string(respBody), nil
}

// IsWebhook возвращает true, если runbook — http(s)-URL.
func IsWebhook(runbook string) bool {
	return strings.HasPrefix(runbook, "http://") || strings.HasPrefix(runbook, "https://")
}

// DispatchRunner выбирает исполнителя по виду runbook'а:
// URL — WebhookRunner, иначе — Shell.
type DispatchRunner struct {
	Shell   Runner
	Webhook Runner
}

// Run выполняет задание подходящим исполнителем.
func (r *DispatchRunner) Run(ctx context.Context, task mq.DispatchPayload) (string, error) {
	if IsWebhook(task.Runbook) {
		return r.Webhook.Run(ctx, task)
	}
	return r.Shell.Run(ctx, task)
}
