package incremental

import "errors"

// Sentinel errors
var (
	// ErrAlreadyWatching is reported when Watch is called on a session
	// whose watcher is still running.
	ErrAlreadyWatching = errors.New("already watching")
)
