package api

import (
	"encoding/json"
	"net/http"

	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
)

// ListSchemas обрабатывает GET /api/v1/schemas.
// Параметр ?partition= ограничивает выборку одним разделом.
func (h *Handler) ListSchemas(w http.ResponseWriter, r *http.Request) {
	partition := r.URL.Query().Get("partition")

	schemas, err := h.schemas.List(r.Context(), partition)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	List(w, schemas, len(schemas))
}

// UpsertSchema обрабатывает POST /api/v1/schemas.
// Создаёт схему или полностью замещает существующую по (partition, id).
func (h *Handler) UpsertSchema(w http.ResponseWriter, r *http.Request) {
	var schema domain.RunbookSchema
	if err := json.NewDecoder(r.Body).Decode(&schema); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	schema.Normalize()
	if err := schema.Validate(); err != nil {
		BadRequest(w, err.Error())
		return
	}

	if err := h.schemas.Upsert(r.Context(), &schema); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	h.logger.Info("schema upserted",
		"partition", schema.Partition,
		"schema_id", schema.ID,
	)
	Created(w, schema)
}

// GetSchema обрабатывает GET /api/v1/schemas/{partition}/{id}.
func (h *Handler) GetSchema(w http.ResponseWriter, r *http.Request) {
	partition := r.PathValue("partition")
	id := r.PathValue("id")

	schema, err := h.schemas.Get(r.Context(), partition, id)
	if HandleRepoError(w, h.logger, err, "schema not found") {
		return
	}

	Success(w, schema)
}

// DeleteSchema обрабатывает DELETE /api/v1/schemas/{partition}/{id}.
//
// Удаление не трогает существующие executions: они работают со
// снимком схемы, снятым на момент создания.
func (h *Handler) DeleteSchema(w http.ResponseWriter, r *http.Request) {
	partition := r.PathValue("partition")
	id := r.PathValue("id")

	if err := h.schemas.Delete(r.Context(), partition, id); err != nil {
		if HandleRepoError(w, h.logger, err, "schema not found") {
			return
		}
	}

	entry := domain.NewAuditEntry(operatorFrom(r), domain.ActionSchemaDelete)
	entry.Target = partition + "/" + id
	if err := h.audit.Record(r.Context(), entry); err != nil {
		h.logger.Error("failed to record schema delete", "schema_id", id, "error", err)
	}

	h.logger.Info("schema deleted", "partition", partition, "schema_id", id)
	NoContent(w)
}

// operatorFrom извлекает инициатора из запроса (?operator= либо "api").
func operatorFrom(r *http.Request) string {
	if op := r.URL.Query().Get("operator"); op != "" {
		return op
	}
	return "api"
}
