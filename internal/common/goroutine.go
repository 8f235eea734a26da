// -----------------------------------------------------------------------
// Panic-protected execution for scheduled runs
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"runtime"

	"github.com/ternarybob/arbor"
)

// SafeRun calls fn and converts a panic into an error.
// A scheduled run that panics must not take the scheduler down with it.
func SafeRun(logger arbor.ILogger, name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)

			if logger != nil {
				logger.Error().
					Str("task", name).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(buf[:n])).
					Msg("Recovered from panic in task")
			}
			err = fmt.Errorf("%s panicked: %v", name, r)
		}
	}()

	return fn()
}
