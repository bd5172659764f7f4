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

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Component: ComponentLedger, Output: &buf})
	l.Info("hello", FieldStudentID, "s1")

	out := buf.String()
	if !strings.Contains(out, "component=ledger") || !strings.Contains(out, "student_id=s1") {
		t.Fatalf("unexpected output %q", out)
	}
	if l.Component() != ComponentLedger {
		t.Fatalf("Component() = %q", l.Component())
	}
}

func TestFieldsBuilder(t *testing.T) {
	f := NewFields().
		WithPayment("p1", "s1", "Mars", "").
		WithError(errors.New("boom")).
		WithError(nil).
		WithErrorType(ErrorTypeValidation, "required")

	if f[FieldPaymentID] != "p1" || f[FieldMonth] != "Mars" || f[FieldError] != "boom" || f[FieldReason] != "required" {
		t.Fatalf("unexpected fields %v", f)
	}
	if _, ok := f[FieldAmount]; ok {
		t.Fatalf("blank amount should be omitted")
	}
	if got := len(f.ToSlice()); got != 2*len(f) {
		t.Fatalf("ToSlice length = %d", got)
	}
}

func TestMiddlewareStoresLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Component: ComponentHTTP, Output: &buf})

	var got *Logger
	h := Middleware(base)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = FromContext(r.Context())
			got.InfoContext(r.Context(), "inside")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got == nil || !strings.Contains(buf.String(), "request_id=req-1") {
		t.Fatalf("request id not propagated: %q", buf.String())
	}
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext should fall back to the default logger")
	}
}
