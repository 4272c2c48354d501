package util

import "testing"

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"shorter than limit", "hello", 10, "hello"},
		{"exactly at limit", "hello", 5, "hello"},
		{"truncated", "hello world", 8, "hello..."},
		{"tiny limit", "hello", 3, "..."},
		{"multibyte runes", "héllo wörld", 8, "héllo..."},
		{"empty", "", 10, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestTruncateANSIPlainText(t *testing.T) {
	if got := TruncateANSI("hello world", 8); got != "hello..." {
		t.Errorf("TruncateANSI = %q", got)
	}
	if got := TruncateANSI("short", 20); got != "short" {
		t.Errorf("TruncateANSI = %q", got)
	}
}

func TestTruncateANSIStyled(t *testing.T) {
	styled := "\x1b[31mhello world\x1b[0m"

	// Escape sequences carry no width; only the visible text counts.
	if got := TruncateANSI(styled, 20); got != styled {
		t.Errorf("TruncateANSI kept = %q, want unchanged", got)
	}

	truncated := TruncateANSI(styled, 8)
	if truncated == styled {
		t.Error("TruncateANSI did not truncate styled string")
	}
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"single line", "one line", "one line"},
		{"multi line", "first\nsecond\nthird", "first"},
		{"leading newline", "\nsecond", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FirstLine(tt.input, 40); got != tt.want {
				t.Errorf("FirstLine(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
