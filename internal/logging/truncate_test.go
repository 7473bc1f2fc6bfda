package logging

import (
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "short string unchanged",
			input:    "echo 1",
			expected: "echo 1",
		},
		{
			name:     "exact length unchanged",
			input:    strings.Repeat("x", MaxLogFieldLength),
			expected: strings.Repeat("x", MaxLogFieldLength),
		},
		{
			name:     "long string truncated",
			input:    strings.Repeat("x", MaxLogFieldLength+1),
			expected: strings.Repeat("x", MaxLogFieldLength) + "...",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Truncate(tt.input)
			if result != tt.expected {
				t.Errorf("Truncate() = %q (len=%d), want %q (len=%d)",
					result, len(result), tt.expected, len(tt.expected))
			}
		})
	}
}

func TestTruncateN(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		n        int
		expected string
	}{
		{name: "short string unchanged", input: "bash -l run.sh", n: 20, expected: "bash -l run.sh"},
		{name: "long string truncated", input: "connection refused", n: 10, expected: "connection..."},
		{name: "exact length unchanged", input: "done.", n: 5, expected: "done."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TruncateN(tt.input, tt.n)
			if result != tt.expected {
				t.Errorf("TruncateN(%q, %d) = %q, want %q", tt.input, tt.n, result, tt.expected)
			}
		})
	}
}

func TestEscapeNewlines(t *testing.T) {
	got := EscapeNewlines("line one\nline two\n")
	want := "line one\\nline two\\n"
	if got != want {
		t.Errorf("EscapeNewlines() = %q, want %q", got, want)
	}
}
