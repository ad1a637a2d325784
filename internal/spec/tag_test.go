package spec

import (
	"testing"
)

// TestNewTag tests capture-group validation of tag patterns
func TestNewTag(t *testing.T) {
	tests := []struct {
		name    string
		tagName string
		pattern string
		wantErr bool
	}{
		{
			name:    "one capturing group",
			tagName: "day",
			pattern: "day-([0-9]+)",
		},
		{
			name:    "no capturing group",
			tagName: "day",
			pattern: "day-[0-9]+",
			wantErr: true,
		},
		{
			name:    "two capturing groups",
			tagName: "day",
			pattern: "(day)-([0-9]+)",
			wantErr: true,
		},
		{
			name:    "non-capturing group does not count",
			tagName: "day",
			pattern: "(?:day|session)-([0-9]+)",
		},
		{
			name:    "bad regex",
			tagName: "day",
			pattern: "day-([0-9",
			wantErr: true,
		},
		{
			name:    "empty name",
			tagName: "",
			pattern: "([0-9]+)",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTag(tt.tagName, tt.pattern)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewTag(%q, %q) error = %v, wantErr %v", tt.tagName, tt.pattern, err, tt.wantErr)
			}
		})
	}
}

// TestTagExtract tests value extraction from paths
func TestTagExtract(t *testing.T) {
	tag, err := NewTag("mice", "mice-([a-zA-Z0-9]+)")
	if err != nil {
		t.Fatalf("NewTag() error = %v", err)
	}

	if v, ok := tag.Extract("mice-G1/day-02/file.npy"); !ok || v != "G1" {
		t.Errorf("Extract() = %q, %v, want %q, true", v, ok, "G1")
	}
	if _, ok := tag.Extract("rats-G1/day-02/file.npy"); ok {
		t.Error("Extract() matched, want no match")
	}
}

// TestCaptureBody tests extraction of the capturing group's body
func TestCaptureBody(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
		wantOK  bool
	}{
		{pattern: "day-([0-9]+)", want: "[0-9]+", wantOK: true},
		{pattern: "(?:sub|ses)-(\\d{2})", want: "\\d{2}", wantOK: true},
		{pattern: "([a-z(]+)", want: "[a-z(]+", wantOK: true},
		{pattern: "(a(?:b)c)", want: "a(?:b)c", wantOK: true},
		{pattern: "\\((x)\\)", want: "x", wantOK: true},
		{pattern: "no group", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, ok := captureBody(tt.pattern)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("captureBody(%q) = %q, %v, want %q, %v", tt.pattern, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
