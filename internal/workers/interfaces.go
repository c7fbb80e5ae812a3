// Package workers runs the background loops of the client: connectivity
// monitoring, replay on reconnect and the periodic queue run.
//
// Workers are started in registration order and stopped in reverse order,
// so a loop never outlives the loops it depends on.
package workers

import "context"

// Worker is a background loop with an explicit lifecycle.
//
// Start must not block: implementations spawn their own goroutines and
// return. Stop blocks until those goroutines have exited. Both must be safe
// to call more than once.
type Worker interface {
	Start(ctx context.Context)
	Stop()
}
