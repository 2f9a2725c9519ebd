// Package zkfs contains the core domain types and interfaces for exposing a
// hierarchical coordination store (ZooKeeper) as a mountable filesystem.
//
// A store node can hold a payload and children at the same time while a
// filesystem entry is either a file or a directory. zkfs resolves this by
// surfacing a node's children under a directory named after the node and its
// payload as a file named after the node plus [LeafSuffix].
package zkfs

// LeafSuffix marks a virtual path's final segment as the file exposing the
// payload of the store node named by the segment without the suffix.
const LeafSuffix = ".contents"

// WriteProbeName is the child name probed under a directory to decide whether
// the directory is reported as writable.
const WriteProbeName = "._zkfs_check"
