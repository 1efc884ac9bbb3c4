package util

import "testing"

func TestSanitizeForLog(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "clean path",
			input:    "wp-content/plugins/hello.php",
			expected: "wp-content/plugins/hello.php",
		},
		{
			name:     "path with newline",
			input:    "evil\nname.php",
			expected: "evil name.php",
		},
		{
			name:     "carriage return and newline",
			input:    "evil\r\nname.php",
			expected: "evil name.php",
		},
		{
			name:     "control characters",
			input:    "a\x00\x01\x1Fb",
			expected: "a b",
		},
		{
			name:     "DEL character",
			input:    "a\x7Fb",
			expected: "a b",
		},
		{
			name:     "tab",
			input:    "a\tb",
			expected: "a b",
		},
		{
			name:     "only control chars",
			input:    "\x00\x01\x02\x1F\x7F",
			expected: " ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeForLog(tt.input)
			if result != tt.expected {
				t.Errorf("SanitizeForLog(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
