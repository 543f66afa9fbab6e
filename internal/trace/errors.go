package trace

import (
	"fmt"
	"os"
	"runtime"

	"github.com/pkg/errors"
)

// osExit is os.Exit indirected through a variable so tests can observe
// a fatal call without killing the test binary; see fatal_test.go.
var osExit = os.Exit

// fatal prints a single-line "file:line: condition" diagnostic and
// terminates the process, matching spec §7: "All fatal errors produce
// a single-line diagnostic ... and terminate the process; the core
// does not catch or translate them." The teacher's main.go reports
// usage errors the same way (fmt.Fprintf to stderr, then os.Exit).
func fatal(format string, args ...any) {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file, line = "unknown", 0
	}
	fmt.Fprintf(os.Stderr, "%s:%d: %s\n", file, line, fmt.Sprintf(format, args...))
	osExit(1)
}

// wrapf returns a recoverable error (unsupported opcode, malformed
// kernel emission) wrapped with a stack trace, per the error-handling
// convention documented in SPEC_FULL.md (grounded in
// other_examples' bin2ll.go, which wraps every propagated error with
// errors.WithStack from github.com/pkg/errors).
func wrapf(format string, args ...any) error {
	return errors.WithStack(fmt.Errorf(format, args...))
}
