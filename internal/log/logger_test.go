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

func newBufferLogger(level slog.Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(Config{Level: level, Component: ComponentHTTP, Output: &buf}), &buf
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogger_ComponentTagging(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelInfo)

	logger.Info("hello")
	logger.WithComponent(ComponentLedger).Info("switched")

	out := buf.String()
	if !strings.Contains(out, "component=http msg=hello") && !strings.Contains(out, "msg=hello component=http") {
		t.Errorf("missing http component: %s", out)
	}
	if !strings.Contains(out, "component=ledger") {
		t.Errorf("missing ledger component: %s", out)
	}
	if strings.Count(out, "component=") != 2 {
		t.Errorf("component should appear once per record: %s", out)
	}
}

func TestLogger_LogHTTPEndLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "level=INFO"},
		{404, "level=WARN"},
		{500, "level=ERROR"},
	}
	for _, tt := range tests {
		logger, buf := newBufferLogger(slog.LevelInfo)
		r := httptest.NewRequest(http.MethodGet, "/balances?page=2", nil)
		logger.LogHTTPEnd(context.Background(), r, tt.status, 3, "127.0.0.1")
		if !strings.Contains(buf.String(), tt.level) {
			t.Errorf("status %d: want %s in %s", tt.status, tt.level, buf.String())
		}
	}
}

func TestLogger_LogError(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelInfo)
	logger.LogError(context.Background(), "failed", errors.New("boom"), ErrorTypeInternal, nil)

	out := buf.String()
	if !strings.Contains(out, "error=boom") || !strings.Contains(out, "error_type=internal_error") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestWithLogger_FromContext(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelInfo)

	ctx := WithLogger(context.Background(), logger.With(FieldRequestID, "req_1"))
	FromContext(ctx).Info("inside")

	if !strings.Contains(buf.String(), "request_id=req_1") {
		t.Errorf("request id not propagated: %s", buf.String())
	}

	if got := FromContext(context.Background()).Component(); got != "unknown" {
		t.Errorf("FromContext without logger component = %q", got)
	}
}
