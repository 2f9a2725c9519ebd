package zkfs

import "context"

// NodeStat is the subset of store node metadata the filesystem consumes.
// Times are in the store's native unit (milliseconds since the epoch).
type NodeStat struct {
	PayloadLength    int64
	ChildCount       int32
	ModifyTimeMillis int64
	CreateTimeMillis int64
}

// Store is the backing-store client boundary. Paths are absolute,
// slash-separated and relative to the mount target (any chroot is applied by
// the implementation). Implementations must be safe for concurrent use and
// report missing nodes with [ErrNotFound] and session loss with
// [ErrBackingStoreUnavailable].
type Store interface {
	// Exists reports whether a node exists at path
	Exists(ctx context.Context, path string) (bool, error)

	Stat(ctx context.Context, path string) (*NodeStat, error)

	// Children returns the names of the immediate children in creation order
	Children(ctx context.Context, path string) ([]string, error)

	// Get returns the full payload
	Get(ctx context.Context, path string) ([]byte, error)

	// Set replaces the full payload of an existing node
	Set(ctx context.Context, path string, data []byte) error

	// CreatePath creates the node at path and any missing ancestors with
	// empty payloads. Existing nodes along the way are left untouched.
	CreatePath(ctx context.Context, path string) error

	// Delete removes a single node. It fails with [ErrNotEmpty] if the node
	// has children.
	Delete(ctx context.Context, path string) error

	// Close releases the session
	Close() error
}
