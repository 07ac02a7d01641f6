package util

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00.000"},
		{1500 * time.Millisecond, "00:00:01.500"},
		{61*time.Minute + 2*time.Second, "01:01:02.000"},
		{-time.Second, "00:00:00.000"},
		{59999600 * time.Microsecond, "00:01:00.000"},
		{3599999800 * time.Microsecond, "01:00:00.000"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatSeconds(t *testing.T) {
	if got := FormatSeconds(65.25); got != "01:05.2" && got != "01:05.3" {
		t.Errorf("FormatSeconds(65.25) = %q", got)
	}
	if got := FormatSeconds(3); got != "00:03.0" {
		t.Errorf("FormatSeconds(3) = %q", got)
	}
	if got := FormatSeconds(59.96); got != "01:00.0" {
		t.Errorf("FormatSeconds(59.96) = %q", got)
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"30/1", 30},
		{"25/2", 12.5},
		{"0/0", 0},
		{"garbage", 0},
	}
	for _, tt := range tests {
		if got := ParseFrameRate(tt.in); got != tt.want {
			t.Errorf("ParseFrameRate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
