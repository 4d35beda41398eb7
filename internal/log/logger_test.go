package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newJSONLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{
		Level:     slog.LevelDebug,
		Format:    FormatJSON,
		Output:    buf,
		Component: component,
	})
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return m
}

func TestLogger_AddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf, ComponentStorage)

	logger.Info("opened", "path", "registro.db")

	m := decodeLine(t, &buf)
	if m[FieldComponent] != ComponentStorage {
		t.Errorf("component = %v, want %s", m[FieldComponent], ComponentStorage)
	}
	if m["path"] != "registro.db" {
		t.Errorf("path = %v", m["path"])
	}
}

func TestLogger_WithComponentReplacesTag(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf, ComponentApp).With("db", "registro.db").WithComponent(ComponentHTTP)

	logger.Info("x")

	line := buf.String()
	if n := strings.Count(line, `"component"`); n != 1 {
		t.Fatalf("component appears %d times: %s", n, line)
	}
	m := decodeLine(t, &buf)
	if m[FieldComponent] != ComponentHTTP || m["db"] != "registro.db" {
		t.Errorf("record = %v", m)
	}
}

func TestConfig_Handler(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		check  func(string) bool
	}{
		{"text", Config{Format: FormatText}, func(s string) bool { return strings.Contains(s, "msg=hello") }},
		{"json", Config{Format: FormatJSON}, func(s string) bool { return strings.HasPrefix(s, "{") }},
		{"level filters", Config{Level: slog.LevelWarn}, func(s string) bool { return s == "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.config.Output = &buf
			New(tt.config).Info("hello")
			if !tt.check(buf.String()) {
				t.Errorf("unexpected output %q", buf.String())
			}
		})
	}

	if DefaultConfig().Format != FormatText || DefaultConfig().Level != slog.LevelInfo {
		t.Errorf("DefaultConfig = %+v", DefaultConfig())
	}
}

func TestLogFields_Builders(t *testing.T) {
	f := NewFields().
		WithOperation(OpAppend).
		WithTransaction(7, "2024-01-02 10:00:00", 1, 2, 300).
		WithLookup("clients", 1, "Acme").
		WithError(errors.New("boom"))

	want := map[string]any{
		FieldOperation:     OpAppend,
		FieldTransactionID: int64(7),
		FieldTimestamp:     "2024-01-02 10:00:00",
		FieldTotalValue:    300.0,
		FieldLookupKind:    "clients",
		FieldLookupName:    "Acme",
		FieldError:         "boom",
	}
	for k, v := range want {
		if f[k] != v {
			t.Errorf("field %s = %v, want %v", k, f[k], v)
		}
	}
	if got := len(f.ToSlice()); got != len(f)*2 {
		t.Errorf("ToSlice length = %d, want %d", got, len(f)*2)
	}
}

func TestLogFields_WithNilError(t *testing.T) {
	f := NewFields().WithError(nil)
	if _, ok := f[FieldError]; ok {
		t.Error("nil error should not add a field")
	}
}

func TestStructuredLogger_LogTransactionRecorded(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newJSONLogger(&buf, ComponentLedger))

	sl.LogTransactionRecorded(context.Background(), 42, "2024-01-02 10:00:00", 1, 2, 300)

	m := decodeLine(t, &buf)
	if m["msg"] != "Transaction recorded" {
		t.Errorf("msg = %v", m["msg"])
	}
	if m[FieldTransactionID] != 42.0 {
		t.Errorf("transaction_id = %v, want 42", m[FieldTransactionID])
	}
	if m[FieldOperation] != OpAppend || m[FieldComponent] != ComponentLedger {
		t.Errorf("record = %v", m)
	}
}

func TestStructuredLogger_LogErrorRetags(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newJSONLogger(&buf, ComponentLedger))

	sl.LogError(context.Background(), "publish failed", errors.New("broker down"),
		ComponentAMQP, OpPublish, NewFields())

	m := decodeLine(t, &buf)
	if m[FieldComponent] != ComponentAMQP || m[FieldError] != "broker down" || m["level"] != "ERROR" {
		t.Errorf("record = %v", m)
	}
}

func TestStructuredLogger_LogHTTPEndLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusUnprocessableEntity, "WARN"},
		{http.StatusServiceUnavailable, "ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		sl := NewStructuredLogger(newJSONLogger(&buf, ComponentHTTP))
		r := httptest.NewRequest(http.MethodGet, "/api/transactions?client=1", nil)

		sl.LogHTTPEnd(context.Background(), r, tt.status, 3, "127.0.0.1")

		m := decodeLine(t, &buf)
		if m["level"] != tt.level {
			t.Errorf("status %d: level = %v, want %s", tt.status, m["level"], tt.level)
		}
	}
}

func TestMiddleware_StoresRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf, ComponentHTTP)

	h := Middleware(logger, func(*http.Request) string { return "req_1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).Info("handled")
		}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	m := decodeLine(t, &buf)
	if m[FieldRequestID] != "req_1" || m[FieldComponent] != ComponentHTTP {
		t.Errorf("record = %v", m)
	}
}

func TestFromContext_Default(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "" {
		t.Errorf("FromContext on empty context = %+v", l)
	}
}

func TestSetDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() {
		defaultLogger.Store(nil)
		slog.SetDefault(prev)
	})

	var buf bytes.Buffer
	SetDefault(newJSONLogger(&buf, ComponentApp))

	Default().WithComponent(ComponentStorage).Info("x")
	m := decodeLine(t, &buf)
	if m[FieldComponent] != ComponentStorage {
		t.Errorf("component = %v, want %s", m[FieldComponent], ComponentStorage)
	}
	if n := strings.Count(buf.String(), `"component"`); n != 1 {
		t.Errorf("component appears %d times: %s", n, buf.String())
	}
	if FromContext(context.Background()) != Default() {
		t.Error("FromContext should fall back to Default")
	}
}
