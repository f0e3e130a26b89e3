// ABOUTME: Tests for the serve command
// ABOUTME: Startup must fail fast when credentials are missing

package commands

import (
	"bytes"
	"strings"
	"testing"
)

func TestServeCmd_MissingCredentials(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ASSISTANT_ID", "asst_123")

	cmd := NewRootCmd()
	var output bytes.Buffer
	cmd.SetOut(&output)
	cmd.SetErr(&output)
	cmd.SetArgs([]string{"serve"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
	for _, name := range []string{"TELEGRAM_BOT_KEY", "OPENAI_API_KEY"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q should name %s", err, name)
		}
	}
	if strings.Contains(err.Error(), "ASSISTANT_ID") {
		t.Errorf("error %q should not name a variable that is set", err)
	}
}

func TestLogLevel(t *testing.T) {
	defer func() { verbose, quiet = false, false }()

	tests := []struct {
		verbose, quiet bool
		want           string
	}{
		{false, false, "info"},
		{true, false, "debug"},
		{false, true, "warn"},
	}
	for _, tt := range tests {
		verbose, quiet = tt.verbose, tt.quiet
		if got := logLevel("info"); got != tt.want {
			t.Errorf("logLevel(verbose=%v, quiet=%v) = %q, want %q", tt.verbose, tt.quiet, got, tt.want)
		}
	}
}
