package filesystem

import (
	"path"
	"strings"

	"github.com/brettbedarf/zkfs"
)

const rootPath = "/"

// cleanPath normalizes a virtual path to an absolute, slash-separated form
// with no trailing slash ("" and "." become "/").
func cleanPath(p string) string {
	if p == "" {
		return rootPath
	}
	return path.Clean("/" + p)
}

func isRoot(p string) bool {
	return cleanPath(p) == rootPath
}

// IsLeafKind reports whether the final segment of p carries [zkfs.LeafSuffix]
// after a non-empty base name. Intermediate segments are never considered.
func IsLeafKind(p string) bool {
	base := path.Base(cleanPath(p))
	return len(base) > len(zkfs.LeafSuffix) && strings.HasSuffix(base, zkfs.LeafSuffix)
}

// ToStorePath maps a virtual path to its store path, stripping the leaf
// suffix exactly once from the final segment of leaf-kind paths.
func ToStorePath(p string) string {
	p = cleanPath(p)
	if !IsLeafKind(p) {
		return p
	}
	return strings.TrimSuffix(p, zkfs.LeafSuffix)
}

// LeafName returns the virtual name exposing the payload of store node name
func LeafName(name string) string {
	return name + zkfs.LeafSuffix
}

func parentPath(p string) string {
	return path.Dir(cleanPath(p))
}

func joinPath(dir, name string) string {
	return path.Join(cleanPath(dir), name)
}
