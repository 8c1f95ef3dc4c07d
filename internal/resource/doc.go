// Package resource accounts for the memory held by contribution lists.
//
// Per-streamline lists dominate the memory of a mapping run, so every list is
// charged against a Controller when it is deposited. With a limit configured
// the charge fails fast instead of blocking; without one the controller only
// tracks usage.
//
//	rc := resource.NewController(resource.Config{MemoryLimitBytes: 8 << 30})
//	if err := rc.AcquireMemory(list.SizeBytes()); err != nil {
//	    // ErrMemoryLimitExceeded
//	}
//
// All methods are safe for concurrent use and are no-ops on a nil Controller.
package resource
