package common

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerMasksSensitiveAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, LogLevelInfo)

	logger.Info("provisioned", "token", "eyJhbGciOiJSUzI1NiJ9.abc.def", "container", "mcp_gateway")

	out := buf.String()
	if strings.Contains(out, "eyJhbGciOiJSUzI1NiJ9") {
		t.Fatalf("token leaked into log output:\n%s", out)
	}
	if !strings.Contains(out, "mcp_gateway") {
		t.Fatalf("ordinary attribute missing:\n%s", out)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, LogLevelWarn)

	logger.Info("should be dropped")
	logger.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should be dropped") {
		t.Fatalf("info record passed a warn-level logger:\n%s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Fatalf("warn record missing:\n%s", out)
	}
}

func TestWithComponentAnnotatesRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, LogLevelInfo).WithComponent("probe")

	logger.Info("gateway not ready")
	if !strings.Contains(buf.String(), "probe") {
		t.Fatalf("component attribute missing:\n%s", buf.String())
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"error":     LogLevelError,
		"warn":      LogLevelWarn,
		"warning":   LogLevelWarn,
		"debug":     LogLevelDebug,
		"info":      LogLevelInfo,
		"gibberish": LogLevelInfo,
	}
	for in, want := range cases {
		if got := ParseLogLevel(in); got != want {
			t.Fatalf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
