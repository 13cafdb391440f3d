package platform

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{input: "", want: slog.LevelInfo},
		{input: "info", want: slog.LevelInfo},
		{input: "debug", want: slog.LevelDebug},
		{input: "warn", want: slog.LevelWarn},
		{input: "warning", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "bad", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("expected error for %q", tt.input)
			}
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", tt.input, err)
		}
		if got != tt.want {
			t.Fatalf("expected %v, got %v for %q", tt.want, got, tt.input)
		}
	}
}

func TestParseLogFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    LogFormat
		wantErr bool
	}{
		{input: "", want: LogFormatText},
		{input: "text", want: LogFormatText},
		{input: "json", want: LogFormatJSON},
		{input: "Pretty", want: LogFormatPretty},
		{input: "bad", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseLogFormat(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("expected error for %q", tt.input)
			}
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", tt.input, err)
		}
		if got != tt.want {
			t.Fatalf("expected %v, got %v for %q", tt.want, got, tt.input)
		}
	}
}

func TestConfigureLoggerFormats(t *testing.T) {
	for _, format := range []string{"text", "json", "pretty"} {
		var buf bytes.Buffer
		logger, err := ConfigureLogger("warn", format, &buf)
		if err != nil {
			t.Fatalf("ConfigureLogger(%s): %v", format, err)
		}
		logger.Info("hidden")
		logger.Warn("shown", slog.String("repo", "bar"))
		out := buf.String()
		if strings.Contains(out, "hidden") {
			t.Fatalf("%s: info record passed a warn level: %q", format, out)
		}
		if !strings.Contains(out, "shown") || !strings.Contains(out, "bar") {
			t.Fatalf("%s: missing warn record: %q", format, out)
		}
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
}

func TestConfigureLoggerRejectsUnknownValues(t *testing.T) {
	if _, err := ConfigureLogger("loud", "text", &bytes.Buffer{}); err == nil {
		t.Fatalf("expected level error")
	}
	if _, err := ConfigureLogger("info", "xml", &bytes.Buffer{}); err == nil {
		t.Fatalf("expected format error")
	}
}
