package logger_test

import (
	"testing"

	"casino-bot/internal/logger"
)

func TestNew(t *testing.T) {
	for _, env := range []string{"development", "production"} {
		log, err := logger.New(env, "debug")
		if err != nil {
			t.Fatalf("%s: New failed: %v", env, err)
		}
		log.Debug("logger ready")
	}

	if _, err := logger.New("development", "loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
