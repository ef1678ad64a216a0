package core

import (
	"testing"

	"github.com/charmbracelet/log"
)

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		value string
		want  log.Level
	}{
		{"", log.DebugLevel},
		{"debug", log.DebugLevel},
		{"info", log.InfoLevel},
		{"WARN", log.WarnLevel},
		{"Error", log.ErrorLevel},
		{"nonsense", log.DebugLevel},
	}
	for _, tt := range tests {
		t.Run("level_"+tt.value, func(t *testing.T) {
			t.Setenv("IGLOO_LOG_LEVEL", tt.value)
			if got := levelFromEnv(); got != tt.want {
				t.Errorf("levelFromEnv() with %q = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
