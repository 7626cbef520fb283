package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func setup(t *testing.T, buf *bytes.Buffer, level, format string) {
	t.Helper()
	if err := Setup(buf, level, format); err != nil {
		t.Fatalf("setup: %v", err)
	}
}

func TestNewHasComponent(t *testing.T) {
	var buf bytes.Buffer
	setup(t, &buf, "debug", "text")

	New("targets").Info("reloaded")

	output := buf.String()
	if !strings.Contains(output, "component=targets") {
		t.Errorf("expected component=targets in output, got: %s", output)
	}
	if !strings.Contains(output, "reloaded") {
		t.Errorf("expected message in output, got: %s", output)
	}
}

func TestSetupJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	setup(t, &buf, "info", "JSON")

	New("json-test").Info("json check")

	if !strings.Contains(buf.String(), `"level":"INFO"`) {
		t.Errorf("expected JSON level field, got: %s", buf.String())
	}
}

func TestSetupFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	setup(t, &buf, "warn", "")

	New("filter").Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered at warn level, got: %s", buf.String())
	}
}

func TestSetupRejectsUnknownValues(t *testing.T) {
	var buf bytes.Buffer
	if err := Setup(&buf, "info", "xml"); err == nil || !strings.Contains(err.Error(), "xml") {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
	if err := Setup(&buf, "loud", "text"); err == nil {
		t.Fatal("expected unsupported level error")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q)=%v,%v want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
