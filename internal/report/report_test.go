package report

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{in: 0, want: "0s"},
		{in: 59.9, want: "59s"},
		{in: 61, want: "1m 1s"},
		{in: 3725, want: "1h 2m 5s"},
		{in: -3, want: "0s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	if got := FormatTimestamp(3725); got != "[01:02:05]" {
		t.Fatalf("unexpected timestamp: %q", got)
	}
}

func TestSafeLocation(t *testing.T) {
	if SafeLocation(nil) != time.UTC {
		t.Fatal("expected UTC fallback")
	}
}

func TestPlatformDisplayName(t *testing.T) {
	tests := map[string]string{
		"google_meet": "Google Meet",
		"discord":     "Discord",
		"":            "Unknown",
	}
	for in, want := range tests {
		if got := PlatformDisplayName(in); got != want {
			t.Errorf("PlatformDisplayName(%q) = %q, want %q", in, got, want)
		}
	}
}
