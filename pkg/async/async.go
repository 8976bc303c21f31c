// Package async runs background work on goroutines that cannot take the
// process down with an unrecovered panic.
package async

import (
	"github.com/critiquelabs/critique/pkg/observability"
)

// Go runs fn on a new goroutine. A panic in fn is recovered and logged
// under the given task name instead of crashing the process.
func Go(log *observability.Logger, task string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.WithField("task", task).Errorf("recovered panic in background task: %v", r)
			}
		}()
		fn()
	}()
}
