// Package store provides the keyed realtime store the board runs on: a JSON
// value tree addressed by slash-separated paths, with last-write-wins writes,
// subtree subscriptions, and server-side disconnect cleanup hooks.
package store

import "errors"

// ErrEmptyPath is returned when an operation is given an empty path.
var ErrEmptyPath = errors.New("store: empty path")

// Store is the capability contract every board component is written against.
// Values are plain decoded JSON: map[string]any, []any, string, float64,
// bool or nil. A nil value means the path does not exist.
type Store interface {
	// Get performs a one-shot read of the full value under path.
	Get(path string) (any, error)

	// Set replaces the full value under path.
	Set(path string, value any) error

	// Update merges the named fields into the map at path, creating it if
	// absent. Fields not named are left untouched.
	Update(path string, fields map[string]any) error

	// Remove deletes the subtree under path. Removing a missing path is not
	// an error.
	Remove(path string) error

	// Push appends value under path with a generated child id and returns
	// that id.
	Push(path string, value any) (string, error)

	// Subscribe registers fn for the subtree under path. fn is invoked
	// immediately with the current full value, and again with the new full
	// value after every change that touches the subtree. The returned func
	// cancels the subscription.
	Subscribe(path string, fn func(value any)) (cancel func())

	// OnDisconnect schedules a Remove(path) to run if the client identified
	// by clientID disconnects. The returned func cancels the pending
	// removal (used on explicit release).
	OnDisconnect(clientID, path string) (cancel func())
}
