package logger

import (
	"bytes"
	"strings"
	"testing"
)

// TestConsoleLevelFilter tests that messages below the configured level
// are dropped.
func TestConsoleLevelFilter(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  []string
		drop  []string
	}{
		{
			name:  "info drops debug and trace",
			level: "info",
			want:  []string{"info msg", "warn msg", "error msg"},
			drop:  []string{"trace msg", "debug msg"},
		},
		{
			name:  "trace keeps everything",
			level: "trace",
			want:  []string{"trace msg", "debug msg", "info msg", "warn msg", "error msg"},
		},
		{
			name:  "error keeps only errors",
			level: "error",
			want:  []string{"error msg"},
			drop:  []string{"trace msg", "debug msg", "info msg", "warn msg"},
		},
		{
			name:  "unknown level defaults to info",
			level: "loud",
			want:  []string{"info msg"},
			drop:  []string{"debug msg"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			c := NewConsole(&buf, tt.level)

			c.Tracef("trace msg")
			c.Debugf("debug msg")
			c.Infof("info msg")
			c.Warnf("warn msg")
			c.Errorf("error msg")

			out := buf.String()
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
			for _, drop := range tt.drop {
				if strings.Contains(out, drop) {
					t.Errorf("output should not contain %q:\n%s", drop, out)
				}
			}
		})
	}
}

// TestConsoleFormat tests the line layout and formatting args
func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, "info")

	c.Infof("organized %d of %d", 3, 5)

	out := buf.String()
	if !strings.Contains(out, "[INFO] organized 3 of 5") {
		t.Errorf("unexpected line: %q", out)
	}
	if !strings.HasPrefix(out, "[") {
		t.Errorf("line should start with a timestamp: %q", out)
	}
}

// TestConsoleNilWriter tests that a nil writer discards silently
func TestConsoleNilWriter(t *testing.T) {
	c := NewConsole(nil, "info")
	c.Infof("should not panic")
}
