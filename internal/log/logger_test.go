package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.in); got != tc.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Component: "worker",
		Handler:   slog.NewTextHandler(&buf, nil),
	})

	logger.Info("scan complete", "items", 3)

	out := buf.String()
	if !strings.Contains(out, "component=worker") {
		t.Errorf("record missing component tag: %s", out)
	}
	if !strings.Contains(out, "items=3") {
		t.Errorf("record missing call-site attribute: %s", out)
	}
}

func TestWithComponentSwitchesTag(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Component: "app",
		Handler:   slog.NewTextHandler(&buf, nil),
	})

	sub := logger.WithComponent("amqp")
	if sub.Component() != "amqp" {
		t.Errorf("Component() = %q, want amqp", sub.Component())
	}

	sub.Warn("broker unreachable")
	if !strings.Contains(buf.String(), "component=amqp") {
		t.Errorf("record missing switched component: %s", buf.String())
	}
}
