// Package task implements the background persistence queue for note bodies.
//
// Body writes are fire-and-forget from the caller's point of view: the
// catalogue update is committed synchronously while the durable write races
// behind it. To keep that race safe, the queue guarantees FIFO ordering for
// writes to the same (user, topic) key, so a stale body can never overwrite
// a newer one.
package task
