package common

import (
	"testing"
	"time"
)

func TestGetDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{in: 1500 * time.Microsecond, want: "2ms"},
		{in: 1234567 * time.Microsecond, want: "1.23s"},
	}
	for _, tt := range tests {
		if got := GetDuration(tt.in); got != tt.want {
			t.Errorf("GetDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
