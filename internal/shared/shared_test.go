package shared

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestLogger(t *testing.T) {
	t.Run("SetLogLevel", func(t *testing.T) {
		logger := NewLogger(&bytes.Buffer{})

		SetLogLevel(logger, log.DebugLevel)
		if logger.GetLevel() != log.DebugLevel {
			t.Errorf("expected debug level, got %v", logger.GetLevel())
		}
	})

	t.Run("WithLogger Adds Fields", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)

		child := WithLogger(logger, "component", "gateway")
		child.Info("hello")

		if !strings.Contains(buf.String(), "component=gateway") {
			t.Errorf("expected the child field in output, got %q", buf.String())
		}
	})
}
