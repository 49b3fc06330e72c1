package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pagopa/payments-ClouDO-sub002/internal/repo"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, map[string]string{"exec_id": "abc"})

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected json content type, got %q", ct)
	}

	var resp struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data["exec_id"] != "abc" {
		t.Errorf("payload should be wrapped in data envelope: %s", rec.Body.String())
	}
}

func TestErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	BadRequest(rec, "schema_id is required")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error.Code != ErrCodeBadRequest {
		t.Errorf("expected BAD_REQUEST, got %s", resp.Error.Code)
	}
	if resp.Error.Message != "schema_id is required" {
		t.Errorf("unexpected message %q", resp.Error.Message)
	}
}

func TestHandleRepoError(t *testing.T) {
	logger := discardLogger()

	cases := []struct {
		err        error
		wantStatus int
		wantCode   ErrorCode
	}{
		{repo.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
		{fmt.Errorf("get schema: %w", repo.ErrNotFound), http.StatusNotFound, ErrCodeNotFound},
		{repo.ErrAlreadyExists, http.StatusConflict, ErrCodeConflict},
		{errors.New("connection refused"), http.StatusInternalServerError, ErrCodeInternalError},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		if !HandleRepoError(rec, logger, c.err, "not found") {
			t.Errorf("%v: should be handled", c.err)
			continue
		}
		if rec.Code != c.wantStatus {
			t.Errorf("%v: expected %d, got %d", c.err, c.wantStatus, rec.Code)
		}
		var resp ErrorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Error.Code != c.wantCode {
			t.Errorf("%v: expected %s, got %s", c.err, c.wantCode, resp.Error.Code)
		}
	}

	rec := httptest.NewRecorder()
	if HandleRepoError(rec, logger, nil, "not found") {
		t.Error("nil error should not be handled")
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(mw("outer"), mw("inner"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if len(order) != 3 || order[0] != "outer" || order[1] != "inner" || order[2] != "handler" {
		t.Errorf("unexpected middleware order: %v", order)
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("panic should produce 500, got %d", rec.Code)
	}
}
