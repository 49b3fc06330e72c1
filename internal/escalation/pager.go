package escalation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OpsgeniePager отправляет алерты в Opsgenie Alert API.
type OpsgeniePager struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewOpsgeniePager создаёт клиент Opsgenie.
// Пустой baseURL — публичный endpoint.
func NewOpsgeniePager(baseURL, apiKey string) *OpsgeniePager {
	if baseURL == "" {
		baseURL = "https://api.opsgenie.com"
	}
	return &OpsgeniePager{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type opsgenieAlert struct {
	Message     string `json:"message"`
	Alias       string `json:"alias"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

// Page создаёт алерт. Alias обеспечивает дедупликацию на стороне
// Opsgenie: повторный алерт с тем же alias склеивается с открытым.
func (p *OpsgeniePager) Page(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(opsgenieAlert{
		Message:     alert.Message,
		Alias:       alert.Alias,
		Description: alert.Description,
		Priority:    alert.Priority,
	})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v2/alerts", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "GenieKey "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("post alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("opsgenie returned %d: %s", resp.StatusCode, msg)
	}
	return nil
}
