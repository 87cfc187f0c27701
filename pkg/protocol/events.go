package protocol

// Events pushed from server to client.
const (
	// EventCacheCleared is broadcast to every connected client after the
	// provider client cache is emptied. Payload: {"evicted": n}.
	EventCacheCleared = "cache.cleared"

	// EventConfigChanged is broadcast after a config hot reload.
	// Payload: {"hash": h}.
	EventConfigChanged = "config.changed"

	// EventShutdown is sent once before the server closes connections.
	EventShutdown = "shutdown"
)
