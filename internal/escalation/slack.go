package escalation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
)

// SlackNotifier отправляет уведомления в Slack incoming webhook.
//
// Реализует Notifier этого пакета и approval.Notifier.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier создаёт Slack-клиент.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// NotifyFailure сообщает о неуспешном execution.
func (n *SlackNotifier) NotifyFailure(ctx context.Context, e *domain.Execution) error {
	text := fmt.Sprintf(":rotating_light: Runbook *%s* finished with *%s*\nexec_id: `%s`\nworker: `%s`",
		e.Schema.SchemaID, e.Status, e.ExecID, e.RoutedWorker)
	if e.Error != "" {
		text += "\nerror: " + e.Error
	}
	return n.post(ctx, text)
}

// NotifyDecision сообщает о решении approval gate.
func (n *SlackNotifier) NotifyDecision(ctx context.Context, a *domain.ApprovalRequest, approved bool) error {
	verdict := "rejected"
	emoji := ":no_entry:"
	if approved {
		verdict = "approved"
		emoji = ":white_check_mark:"
	}
	text := fmt.Sprintf("%s Runbook *%s* %s by *%s*\nexec_id: `%s`",
		emoji, a.SchemaID, verdict, a.DecidedBy, a.ExecID)
	return n.post(ctx, text)
}

func (n *SlackNotifier) post(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack returned %d: %s", resp.StatusCode, msg)
	}
	return nil
}
