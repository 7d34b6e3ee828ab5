// Package vklog is the kernel's logging surface: a handful of boot
// messages and fatal-fault reports, wrapping stdlib log.Logger rather
// than a structured logging library -- the teacher logs kernel-internal
// events with bare fmt.Printf throughout proc.go and pmap.go, and no
// repo in the examples pack pulls in a logging library for this kind of
// work either. Kept terse on purpose: this core traces boot and fatal
// conditions only, never per-syscall activity.
package vklog

import (
	"fmt"
	"io"
	"log"
	"os"
)

var std = log.New(os.Stderr, "", 0)

// SetOutput redirects every subsequent message, for hostharness to point
// at a log file instead of stderr.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// Boot logs a one-line boot-sequence message, matching kernel/main.go's
// "done! ... APs found" style terse progress prints.
func Boot(format string, args ...any) {
	std.Printf("boot: "+format, args...)
}

// Fatal logs a fatal-fault report and then panics, the core's only
// escalation path per spec 7 ("assertions and kernel bugs halt the
// machine"). Never returns.
func Fatal(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	std.Printf("fatal: %s", msg)
	panic(msg)
}

// Warn logs a recoverable anomaly worth a human's attention -- a killed
// process, a device that failed to open -- without halting anything.
func Warn(format string, args ...any) {
	std.Printf("warn: "+format, args...)
}
