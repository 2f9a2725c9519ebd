package fuse

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// handle is the open-file state for a leaf entry. Reads and writes go
// straight to the store; the handle only remembers whether it was created
// by this open and whether anything was written through it.
type handle struct {
	id      string // log correlation
	path    string
	created bool
	written atomic.Bool
}

func newHandle(path string, created bool) *handle {
	return &handle{id: uuid.NewString(), path: path, created: created}
}

// needsCommit reports whether a created file still has no store node and
// claims the commit so it happens once
func (h *handle) needsCommit() bool {
	return h.created && h.written.CompareAndSwap(false, true)
}
