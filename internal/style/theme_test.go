package style

import (
	"strings"
	"testing"
)

func TestInit_DisablesColor(t *testing.T) {
	Init(false)
	if Enabled {
		t.Error("expected Enabled=false after Init(false)")
	}
	Init(true)
}

func TestIcons_NoColor(t *testing.T) {
	Init(false)
	defer Init(true)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"success", SuccessIcon(), "OK"},
		{"error", ErrorIcon(), "ERROR"},
		{"warning", WarningIcon(), "WARN"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s icon = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestSuccessIcon_WithColor(t *testing.T) {
	Init(true)
	if !strings.Contains(SuccessIcon(), "✓") {
		t.Errorf("expected SuccessIcon to contain '✓', got %q", SuccessIcon())
	}
}

func TestHint(t *testing.T) {
	Init(false)
	defer Init(true)
	h := Hint("check MVNPUB_PASSWORD")
	if h != "→ check MVNPUB_PASSWORD" {
		t.Errorf("unexpected hint %q", h)
	}
}

func TestFailure_NoColor(t *testing.T) {
	Init(false)
	defer Init(true)
	if got := Failure("AuthFailure", "401 Unauthorized"); got != "AuthFailure: 401 Unauthorized" {
		t.Errorf("Failure() = %q", got)
	}
}
