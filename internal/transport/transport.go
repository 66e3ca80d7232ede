// SPDX-License-Identifier: MIT
/*
Package transport publishes session snapshots to renderer processes. The
engine itself draws nothing; external renderers subscribe to a frame feed and
paint whatever subset of it they want.
*/
package transport

// Transport delivers encoded frames to subscribers. Implementations must be
// safe for concurrent use.
type Transport interface {
	Send(data any) error
	Close() error
}
