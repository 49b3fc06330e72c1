package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api, CLI не импортирует internal/api) ---

// SchemaResponse — схема runbook'а из API.
type SchemaResponse struct {
	Partition       string   `json:"partition"`
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	Runbook         string   `json:"runbook"`
	RunArgs         string   `json:"run_args,omitempty"`
	Worker          string   `json:"worker"`
	Oncall          bool     `json:"oncall"`
	RequireApproval bool     `json:"require_approval"`
	Tags            []string `json:"tags,omitempty"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
}

// ExecutionResponse — execution из API.
type ExecutionResponse struct {
	ExecID          string            `json:"exec_id"`
	Schema          SchemaSnapshot    `json:"schema"`
	Status          string            `json:"status"`
	Source          string            `json:"source"`
	ScheduleID      string            `json:"schedule_id,omitempty"`
	Params          map[string]string `json:"params,omitempty"`
	Severity        string            `json:"severity,omitempty"`
	RequestedBy     string            `json:"requested_by,omitempty"`
	RequestedAt     string            `json:"requested_at"`
	RoutedWorker    string            `json:"routed_worker,omitempty"`
	RoutingAttempts int               `json:"routing_attempts,omitempty"`
	StartedAt       string            `json:"started_at,omitempty"`
	CompletedAt     string            `json:"completed_at,omitempty"`
	Result          string            `json:"result,omitempty"`
	Error           string            `json:"error,omitempty"`
	DurationSeconds float64           `json:"duration_seconds,omitempty"`
}

// SchemaSnapshot — снимок схемы внутри execution.
type SchemaSnapshot struct {
	Partition       string `json:"partition"`
	SchemaID        string `json:"schema_id"`
	Name            string `json:"name"`
	Runbook         string `json:"runbook"`
	Worker          string `json:"worker"`
	Oncall          bool   `json:"oncall"`
	RequireApproval bool   `json:"require_approval"`
}

// ApprovalResponse — approval-запрос из API.
type ApprovalResponse struct {
	ExecID      string `json:"exec_id"`
	SchemaID    string `json:"schema_id"`
	Status      string `json:"status"`
	RequestedAt string `json:"requested_at"`
	ExpiresAt   string `json:"expires_at"`
	DecidedBy   string `json:"decided_by,omitempty"`
	DecidedAt   string `json:"decided_at,omitempty"`
}

// WorkerResponse — worker из API.
type WorkerResponse struct {
	WorkerID        string   `json:"worker_id"`
	Capabilities    []string `json:"capabilities"`
	Pool            string   `json:"pool"`
	Queue           string   `json:"queue"`
	LastHeartbeat   string   `json:"last_heartbeat"`
	ActiveProcesses int      `json:"active_processes"`
	Status          string   `json:"status"`
	RegisteredAt    string   `json:"registered_at"`
}

// ScheduleResponse — расписание из API.
type ScheduleResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Partition string            `json:"partition"`
	SchemaID  string            `json:"schema_id"`
	CronExpr  string            `json:"cron_expr"`
	Timezone  string            `json:"timezone"`
	Params    map[string]string `json:"params,omitempty"`
	Enabled   bool              `json:"enabled"`
	NextDueAt string            `json:"next_due_at,omitempty"`
	LastRunAt string            `json:"last_run_at,omitempty"`
	CreatedAt string            `json:"created_at"`
	UpdatedAt string            `json:"updated_at"`
}

// AuditEntryResponse — запись audit-журнала из API.
type AuditEntryResponse struct {
	PartitionKey string `json:"partition_key"`
	RowKey       string `json:"row_key"`
	Timestamp    string `json:"timestamp"`
	Operator     string `json:"operator"`
	Action       string `json:"action"`
	ExecID       string `json:"exec_id,omitempty"`
	Target       string `json:"target,omitempty"`
	Status       string `json:"status,omitempty"`
	Details      string `json:"details,omitempty"`
}

// --- Request types ---

// TriggerRequest — ручной запуск runbook'а.
type TriggerRequest struct {
	Partition   string            `json:"partition,omitempty"`
	SchemaID    string            `json:"schema_id"`
	Params      map[string]string `json:"params,omitempty"`
	RequestedBy string            `json:"requested_by"`
}

// UpsertSchemaRequest — создание/замена схемы.
type UpsertSchemaRequest struct {
	Partition       string   `json:"partition,omitempty"`
	ID              string   `json:"id"`
	Name            string   `json:"name,omitempty"`
	Description     string   `json:"description,omitempty"`
	Runbook         string   `json:"runbook"`
	RunArgs         string   `json:"run_args,omitempty"`
	Worker          string   `json:"worker"`
	Oncall          bool     `json:"oncall,omitempty"`
	RequireApproval bool     `json:"require_approval,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

// CreateScheduleRequest — создание расписания.
type CreateScheduleRequest struct {
	Name      string            `json:"name"`
	Partition string            `json:"partition,omitempty"`
	SchemaID  string            `json:"schema_id"`
	CronExpr  string            `json:"cron_expr"`
	Timezone  string            `json:"timezone,omitempty"`
	Params    map[string]string `json:"params,omitempty"`
	Enabled   bool              `json:"enabled"`
}

// ListExecutionsOpts — параметры фильтрации executions.
type ListExecutionsOpts struct {
	Status   string
	SchemaID string
	Source   string
	Limit    int
}

// QueryAuditOpts — параметры выборки audit-журнала.
type QueryAuditOpts struct {
	Day      string
	ExecID   string
	Action   string
	Operator string
	Limit    int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для API ядра.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Triggers ---

// Trigger запускает runbook вручную.
func (c *Client) Trigger(req TriggerRequest) (*ExecutionResponse, error) {
	var e ExecutionResponse
	err := c.post("/api/v1/triggers/manual", req, &e)
	return &e, err
}

// --- Schemas ---

// ListSchemas возвращает схемы. Если partition не пустой — фильтрует.
func (c *Client) ListSchemas(partition string) ([]SchemaResponse, error) {
	params := url.Values{}
	if partition != "" {
		params.Set("partition", partition)
	}

	var schemas []SchemaResponse
	err := c.list("/api/v1/schemas", params, &schemas)
	return schemas, err
}

// UpsertSchema создаёт или замещает схему.
func (c *Client) UpsertSchema(req UpsertSchemaRequest) (*SchemaResponse, error) {
	var schema SchemaResponse
	err := c.post("/api/v1/schemas", req, &schema)
	return &schema, err
}

// GetSchema возвращает схему по (partition, id).
func (c *Client) GetSchema(partition, id string) (*SchemaResponse, error) {
	var schema SchemaResponse
	err := c.get("/api/v1/schemas/"+partition+"/"+id, &schema)
	return &schema, err
}

// DeleteSchema удаляет схему.
func (c *Client) DeleteSchema(partition, id, operator string) error {
	path := "/api/v1/schemas/" + partition + "/" + id
	if operator != "" {
		path += "?operator=" + url.QueryEscape(operator)
	}
	return c.delete(path)
}

// --- Executions ---

// ListExecutions возвращает executions с фильтрацией.
func (c *Client) ListExecutions(opts ListExecutionsOpts) ([]ExecutionResponse, error) {
	params := url.Values{}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.SchemaID != "" {
		params.Set("schema_id", opts.SchemaID)
	}
	if opts.Source != "" {
		params.Set("source", opts.Source)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var execs []ExecutionResponse
	err := c.list("/api/v1/executions", params, &execs)
	return execs, err
}

// GetExecution возвращает execution по ID.
func (c *Client) GetExecution(id string) (*ExecutionResponse, error) {
	var e ExecutionResponse
	err := c.get("/api/v1/executions/"+id, &e)
	return &e, err
}

// CancelExecution отменяет ещё не запущенный execution.
func (c *Client) CancelExecution(id, requestedBy, reason string) (*ExecutionResponse, error) {
	body := map[string]string{"requested_by": requestedBy}
	if reason != "" {
		body["reason"] = reason
	}
	var e ExecutionResponse
	err := c.post("/api/v1/executions/"+id+"/cancel", body, &e)
	return &e, err
}

// ExecutionHistory возвращает историю execution'а из audit-журнала.
func (c *Client) ExecutionHistory(id string) ([]AuditEntryResponse, error) {
	var entries []AuditEntryResponse
	err := c.list("/api/v1/executions/"+id+"/history", nil, &entries)
	return entries, err
}

// --- Approvals ---

// ListPendingApprovals возвращает нерешённые approval-запросы.
func (c *Client) ListPendingApprovals() ([]ApprovalResponse, error) {
	var approvals []ApprovalResponse
	err := c.list("/api/v1/approvals", nil, &approvals)
	return approvals, err
}

// GetApproval возвращает approval-запрос execution'а.
func (c *Client) GetApproval(execID string) (*ApprovalResponse, error) {
	var a ApprovalResponse
	err := c.get("/api/v1/executions/"+execID+"/approval", &a)
	return &a, err
}

// Decide фиксирует решение по approval-запросу.
func (c *Client) Decide(execID, approver string, approve bool) (*ApprovalResponse, error) {
	body := map[string]any{"approver": approver, "approve": approve}
	var a ApprovalResponse
	err := c.post("/api/v1/executions/"+execID+"/decision", body, &a)
	return &a, err
}

// --- Workers ---

// ListWorkers возвращает всех worker'ов реестра.
func (c *Client) ListWorkers() ([]WorkerResponse, error) {
	var workers []WorkerResponse
	err := c.list("/api/v1/workers", nil, &workers)
	return workers, err
}

// GetWorker возвращает worker'а по ID.
func (c *Client) GetWorker(id string) (*WorkerResponse, error) {
	var worker WorkerResponse
	err := c.get("/api/v1/workers/"+id, &worker)
	return &worker, err
}

// --- Schedules ---

// ListSchedules возвращает расписания.
func (c *Client) ListSchedules() ([]ScheduleResponse, error) {
	var schedules []ScheduleResponse
	err := c.list("/api/v1/schedules", nil, &schedules)
	return schedules, err
}

// CreateSchedule создаёт расписание.
func (c *Client) CreateSchedule(req CreateScheduleRequest) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.post("/api/v1/schedules", req, &schedule)
	return &schedule, err
}

// GetSchedule возвращает расписание по ID.
func (c *Client) GetSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.get("/api/v1/schedules/"+id, &schedule)
	return &schedule, err
}

// DeleteSchedule удаляет расписание.
func (c *Client) DeleteSchedule(id string) error {
	return c.delete("/api/v1/schedules/" + id)
}

// EnableSchedule включает расписание.
func (c *Client) EnableSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	body := map[string]bool{"enabled": true}
	err := c.put("/api/v1/schedules/"+id+"/enabled", body, &schedule)
	return &schedule, err
}

// DisableSchedule выключает расписание.
func (c *Client) DisableSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	body := map[string]bool{"enabled": false}
	err := c.put("/api/v1/schedules/"+id+"/enabled", body, &schedule)
	return &schedule, err
}

// --- Audit ---

// QueryAudit возвращает записи audit-журнала.
func (c *Client) QueryAudit(opts QueryAuditOpts) ([]AuditEntryResponse, error) {
	params := url.Values{}
	if opts.Day != "" {
		params.Set("day", opts.Day)
	}
	if opts.ExecID != "" {
		params.Set("exec_id", opts.ExecID)
	}
	if opts.Action != "" {
		params.Set("action", opts.Action)
	}
	if opts.Operator != "" {
		params.Set("operator", opts.Operator)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var entries []AuditEntryResponse
	err := c.list("/api/v1/audit", params, &entries)
	return entries, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
