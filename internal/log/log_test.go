package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func bufferLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{
		Level:     slog.LevelDebug,
		Component: component,
		Output:    buf,
	})
}

func TestLogger_ComponentAttachedOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := bufferLogger(&buf, ComponentStorage).WithComponent(ComponentHTTP)

	logger.Info("hello")

	out := buf.String()
	if strings.Count(out, "component=") != 1 {
		t.Fatalf("expected one component attribute, got %q", out)
	}
	if !strings.Contains(out, "component=http") {
		t.Errorf("expected component=http, got %q", out)
	}
	if logger.Component() != ComponentHTTP {
		t.Errorf("Component() = %q", logger.Component())
	}
}

func TestLogFields(t *testing.T) {
	fields := NewFields().
		WithRecord("income", "abc", 3).
		WithAmount(125.5, "TRAINING").
		WithError(errors.New("boom")).
		WithRequestID("")

	tests := map[string]any{
		FieldEntity:   "income",
		FieldRecordID: "abc",
		FieldVersion:  int64(3),
		FieldAmount:   125.5,
		FieldCategory: "TRAINING",
		FieldError:    "boom",
	}
	for key, want := range tests {
		if got := fields[key]; got != want {
			t.Errorf("%s = %v, want %v", key, got, want)
		}
	}
	if _, ok := fields[FieldRequestID]; ok {
		t.Error("empty request id should be skipped")
	}
	if len(fields.ToSlice()) != 2*len(fields) {
		t.Errorf("ToSlice length mismatch")
	}

	del := NewFields().WithRecord("expense", "x", 0)
	if _, ok := del[FieldVersion]; ok {
		t.Error("zero version should be omitted")
	}
}

func TestFromContext_DefaultsWhenMissing(t *testing.T) {
	logger := FromContext(context.Background())
	if logger == nil || logger.Logger == nil {
		t.Fatal("expected a usable default logger")
	}
	if logger.Component() != "unknown" {
		t.Errorf("component = %q, want unknown", logger.Component())
	}
}

func TestMiddlewareChain(t *testing.T) {
	var buf bytes.Buffer
	root := bufferLogger(&buf, ComponentApp)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("inside")
	})
	chain := Middleware(root)(
		ComponentMiddleware(ComponentHTTP)(
			RequestIDMiddleware(func(*http.Request) string { return "req_1" })(h)))

	chain.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/incomes", nil))

	out := buf.String()
	for _, want := range []string{"msg=inside", "component=http", "request_id=req_1"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestStructuredLogger_HTTPEndLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "level=INFO"},
		{http.StatusNotFound, "level=WARN"},
		{http.StatusInternalServerError, "level=ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		sl := NewStructuredLogger(bufferLogger(&buf, ComponentHTTP))
		r := httptest.NewRequest(http.MethodGet, "/financial/analytics?asOf=2025-03-01", nil)

		sl.LogHTTPEnd(context.Background(), r, "req_2", tt.status, 12, "10.0.0.1")

		out := buf.String()
		if !strings.Contains(out, tt.level) {
			t.Errorf("status %d: expected %s in %q", tt.status, tt.level, out)
		}
		if !strings.Contains(out, "request_id=req_2") || !strings.Contains(out, "duration_ms=12") {
			t.Errorf("status %d: missing fields in %q", tt.status, out)
		}
	}
}

func TestStructuredLogger_LedgerChangeAndError(t *testing.T) {
	var buf bytes.Buffer
	ctx := NewContext(context.Background(), bufferLogger(&buf, ComponentIncome))
	sl := Structured(ctx)

	sl.LogLedgerChange(ctx, "income", "upsert", "id-1", 2)
	sl.LogError(ctx, "settle failed", errors.New("db locked"), OpSettle, nil)

	out := buf.String()
	for _, want := range []string{"record_id=id-1", "version=2", "operation=upsert", `error="db locked"`, "operation=settle"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}
