package lifecycle

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Protect runs fn and converts a panic into a call to onFault instead of
// crashing the process. It is used to wrap background goroutines (the drain
// poller, scheduled jobs, file watchers) so a fault anywhere outside a
// request handler still gives in-flight requests a chance to drain.
//
// The panic is logged with its stack trace before onFault is invoked.
func Protect(name string, onFault func(error), fn func()) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}

			slog.Error("panic in background task",
				"task", name,
				"error", err,
				"stack", string(debug.Stack()),
			)

			if onFault != nil {
				onFault(err)
			}
		}
	}()

	fn()
}

// Go runs fn on a new goroutine under Protect.
func Go(name string, onFault func(error), fn func()) {
	go Protect(name, onFault, fn)
}
