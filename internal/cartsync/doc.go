// Package cartsync keeps a client-side cart mirror convergent with the server
// cart without blocking the caller.
//
// Local mutations apply to the Mirror immediately. Server writes are debounced:
// each mutation re-arms a single timer, and when the window elapses the engine
// sends one call per touched line. Adds go out as a single summed increment so
// quantity already held by the server is kept; quantity edits go out as the
// final value, removals as a delete. At most one batch is in flight; mutations
// made meanwhile go into a follow-up batch.
//
// Server writes are best effort. Failures are logged and dropped, and the next
// Hydrate is the correction point.
package cartsync
