package zkfs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for paths with no store node and no placeholder
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied is reserved for access policy; nothing raises it yet
	// except a store rejecting the session's credentials.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrBackingStoreUnavailable is returned when a session can't be
	// established or is lost mid-call.
	ErrBackingStoreUnavailable = errors.New("backing store unavailable")
	// ErrInvalidOperation is returned when a mutation's capability check fails
	ErrInvalidOperation = errors.New("invalid operation")
)

// Refinements of [ErrInvalidOperation]. errors.Is matches both the refinement
// and ErrInvalidOperation.
var (
	ErrExists   = fmt.Errorf("%w: already exists", ErrInvalidOperation)
	ErrNotEmpty = fmt.Errorf("%w: not empty", ErrInvalidOperation)
	ErrNoParent = fmt.Errorf("%w: parent does not exist", ErrInvalidOperation)
	ErrNotLeaf  = fmt.Errorf("%w: not a %s path", ErrInvalidOperation, LeafSuffix)
)
