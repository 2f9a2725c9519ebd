package zkfs

import "context"

// Attr is the POSIX-style metadata synthesized for a virtual entry.
// Mode holds permission bits only; Dir tells the entry kind.
type Attr struct {
	Dir   bool
	Mode  uint32
	Size  uint64
	Nlink uint32
	Uid   uint32
	Gid   uint32
	// Seconds since the epoch
	Atime uint64
	Mtime uint64
	Ctime uint64
}

// Capabilities is the fixed set of predicates and accessors the kernel
// binding dispatches into. Predicates never fail: a store error makes them
// report false. All methods are safe for concurrent use.
type Capabilities interface {
	IsDirectory(ctx context.Context, path string) bool
	IsFile(ctx context.Context, path string) bool
	CanWrite(ctx context.Context, path string) bool
	IsExecutable(ctx context.Context, path string) bool
	CanMakeDirectory(ctx context.Context, path string) bool
	CanRemoveDirectory(ctx context.Context, path string) bool

	AttributesOf(ctx context.Context, path string) (*Attr, error)
	ListEntries(ctx context.Context, path string) ([]string, error)

	ReadPayload(ctx context.Context, path string) ([]byte, error)
	WritePayload(ctx context.Context, path string, data []byte) error
	// CreateFile registers a just-created leaf entry so metadata queries
	// succeed before any payload reaches the store.
	CreateFile(ctx context.Context, path string) (*Attr, error)
	MakeDirectory(ctx context.Context, path string) error
	RemoveDirectory(ctx context.Context, path string) error

	// Extended attributes are not stored: gets and lists are empty and sets
	// echo the value back.
	GetXattr(ctx context.Context, path, name string) []byte
	ListXattr(ctx context.Context, path string) []string
	SetXattr(ctx context.Context, path, name string, value []byte) []byte
}
