package api

import (
	"log/slog"

	"github.com/pagopa/payments-ClouDO-sub002/internal/approval"
	"github.com/pagopa/payments-ClouDO-sub002/internal/audit"
	"github.com/pagopa/payments-ClouDO-sub002/internal/gateway"
	"github.com/pagopa/payments-ClouDO-sub002/internal/lifecycle"
	"github.com/pagopa/payments-ClouDO-sub002/internal/repo"
)

// Handler — HTTP handler'ы API.
type Handler struct {
	schemas    *repo.SchemaRepo
	executions *repo.ExecutionRepo
	workers    *repo.WorkerRepo
	schedules  *repo.ScheduleRepo

	gateway   *gateway.Gateway
	approvals *approval.Gate
	lifecycle *lifecycle.Manager
	audit     *audit.Log

	logger *slog.Logger
}

// Config — зависимости Handler.
type Config struct {
	Schemas    *repo.SchemaRepo
	Executions *repo.ExecutionRepo
	Workers    *repo.WorkerRepo
	Schedules  *repo.ScheduleRepo

	Gateway   *gateway.Gateway
	Approvals *approval.Gate
	Lifecycle *lifecycle.Manager
	Audit     *audit.Log

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		schemas:    cfg.Schemas,
		executions: cfg.Executions,
		workers:    cfg.Workers,
		schedules:  cfg.Schedules,
		gateway:    cfg.Gateway,
		approvals:  cfg.Approvals,
		lifecycle:  cfg.Lifecycle,
		audit:      cfg.Audit,
		logger:     logger,
	}
}
