package vklog

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestBootAndWarnWriteToConfiguredOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	Boot("stage %d up", 1)
	Warn("device %s missing", "ttyS1")

	out := buf.String()
	if !strings.Contains(out, "boot: stage 1 up") {
		t.Fatalf("missing boot line, got %q", out)
	}
	if !strings.Contains(out, "warn: device ttyS1 missing") {
		t.Fatalf("missing warn line, got %q", out)
	}
}

func TestFatalPanicsWithFormattedMessage(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("Fatal did not panic")
		}
		if r.(string) != "disk read at 4096: short read" {
			t.Fatalf("panic value = %v", r)
		}
	}()
	Fatal("disk read at %d: short read", 4096)
}
