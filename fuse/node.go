// Package fuse binds a [zkfs.Capabilities] to the kernel through go-fuse's
// node API. Nodes carry only their virtual path; every call is answered by
// the capability set, which in turn queries the store.
package fuse

import (
	"context"
	"errors"
	"path"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/brettbedarf/zkfs"
	"github.com/brettbedarf/zkfs/config"
	"github.com/brettbedarf/zkfs/filesystem"
	"github.com/brettbedarf/zkfs/internal/util"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

const blockSize = 4096

// Node is a directory or leaf entry of the mounted tree
type Node struct {
	fs.Inode

	path string // virtual path, "/" for the root
	caps zkfs.Capabilities
	cfg  *config.Config

	// serializes read-splice-write cycles issued through this node
	writeMu sync.Mutex
}

var (
	_ fs.NodeLookuper      = (*Node)(nil)
	_ fs.NodeGetattrer     = (*Node)(nil)
	_ fs.NodeSetattrer     = (*Node)(nil)
	_ fs.NodeReaddirer     = (*Node)(nil)
	_ fs.NodeOpener        = (*Node)(nil)
	_ fs.NodeReader        = (*Node)(nil)
	_ fs.NodeWriter        = (*Node)(nil)
	_ fs.NodeFlusher       = (*Node)(nil)
	_ fs.NodeReleaser      = (*Node)(nil)
	_ fs.NodeCreater       = (*Node)(nil)
	_ fs.NodeMkdirer       = (*Node)(nil)
	_ fs.NodeRmdirer       = (*Node)(nil)
	_ fs.NodeUnlinker      = (*Node)(nil)
	_ fs.NodeGetxattrer    = (*Node)(nil)
	_ fs.NodeListxattrer   = (*Node)(nil)
	_ fs.NodeSetxattrer    = (*Node)(nil)
	_ fs.NodeRemovexattrer = (*Node)(nil)
	_ fs.NodeAccesser      = (*Node)(nil)
)

// NewRoot returns the root node for caps
func NewRoot(caps zkfs.Capabilities, cfg *config.Config) *Node {
	return &Node{path: "/", caps: caps, cfg: cfg}
}

// Path returns the node's virtual path
func (n *Node) Path() string {
	return n.path
}

func (n *Node) child(name string) *Node {
	return &Node{path: path.Join(n.path, name), caps: n.caps, cfg: n.cfg}
}

func (n *Node) attrTimeout() time.Duration {
	return config.Seconds(n.cfg.AttrTimeout)
}

func (n *Node) entryTimeout() time.Duration {
	return config.Seconds(n.cfg.EntryTimeout)
}

func (n *Node) maxPayload() int64 {
	if n.cfg.MaxPayloadSize > 0 {
		return n.cfg.MaxPayloadSize
	}
	return config.DefaultMaxPayloadSize
}

// fillAttr copies synthesized metadata into the wire attr
func fillAttr(out *fuse.Attr, p string, a *zkfs.Attr) {
	kind := uint32(syscall.S_IFREG)
	if a.Dir {
		kind = syscall.S_IFDIR
	}
	out.Ino = inodeFor(p)
	out.Mode = kind | a.Mode
	out.Size = a.Size
	out.Blocks = (a.Size + 511) / 512
	out.Blksize = blockSize
	out.Nlink = a.Nlink
	out.Owner = fuse.Owner{Uid: a.Uid, Gid: a.Gid}
	out.Atime = a.Atime
	out.Mtime = a.Mtime
	out.Ctime = a.Ctime
}

func stableFor(p string, a *zkfs.Attr) fs.StableAttr {
	mode := uint32(syscall.S_IFREG)
	if a.Dir {
		mode = syscall.S_IFDIR
	}
	return fs.StableAttr{Mode: mode, Ino: inodeFor(p)}
}

// Lookup resolves name beneath this directory
func (n *Node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	logger := util.GetLogger("Fuse.Lookup")
	child := n.child(name)
	attr, err := n.caps.AttributesOf(ctx, child.path)
	if err != nil {
		if !errors.Is(err, zkfs.ErrNotFound) {
			logger.Warn().Err(err).Str("path", child.path).Msg("Lookup failed")
		}
		return nil, ToErrno(err)
	}
	logger.Trace().Str("path", child.path).Bool("dir", attr.Dir).Msg("Lookup")

	fillAttr(&out.Attr, child.path, attr)
	out.SetEntryTimeout(n.entryTimeout())
	out.SetAttrTimeout(n.attrTimeout())
	return n.NewInode(ctx, child, stableFor(child.path, attr)), 0
}

func (n *Node) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	attr, err := n.caps.AttributesOf(ctx, n.path)
	if err != nil {
		logger := util.GetLogger("Fuse.Getattr")
		logger.Debug().Err(err).Str("path", n.path).Msg("Getattr failed")
		return ToErrno(err)
	}
	fillAttr(&out.Attr, n.path, attr)
	out.SetTimeout(n.attrTimeout())
	return 0
}

// Setattr only honors size changes, which truncate or zero-extend the
// payload. Mode, owner and time changes are accepted and ignored.
func (n *Node) Setattr(ctx context.Context, f fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	logger := util.GetLogger("Fuse.Setattr")
	if sz, ok := in.GetSize(); ok {
		if !filesystem.IsLeafKind(n.path) {
			return syscall.EISDIR
		}
		if sz > uint64(n.maxPayload()) {
			logger.Debug().Str("path", n.path).Uint64("size", sz).Msg("Truncate beyond payload limit")
			return syscall.EFBIG
		}
		n.writeMu.Lock()
		cur, errno := n.payload(ctx, f)
		if errno == 0 {
			errno = ToErrno(n.caps.WritePayload(ctx, n.path, resize(cur, sz)))
		}
		n.writeMu.Unlock()
		if errno != 0 {
			logger.Warn().Str("path", n.path).Uint64("size", sz).Str("errno", errno.Error()).Msg("Truncate failed")
			return errno
		}
		markWritten(f)
		logger.Debug().Str("path", n.path).Uint64("size", sz).Msg("Resized payload")
	}
	return n.Getattr(ctx, f, out)
}

func (n *Node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	logger := util.GetLogger("Fuse.Readdir")
	names, err := n.caps.ListEntries(ctx, n.path)
	if err != nil {
		logger.Warn().Err(err).Str("path", n.path).Msg("Readdir failed")
		return nil, ToErrno(err)
	}
	entries := make([]fuse.DirEntry, 0, len(names))
	for _, name := range names {
		p := path.Join(n.path, name)
		mode := uint32(syscall.S_IFDIR)
		if filesystem.IsLeafKind(p) {
			mode = syscall.S_IFREG
		}
		entries = append(entries, fuse.DirEntry{Name: name, Mode: mode, Ino: inodeFor(p)})
	}
	logger.Trace().Str("path", n.path).Int("entries", len(entries)).Msg("Readdir")
	return fs.NewListDirStream(entries), 0
}

func (n *Node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	logger := util.GetLogger("Fuse.Open")
	if !filesystem.IsLeafKind(n.path) {
		return nil, 0, syscall.EISDIR
	}
	h := newHandle(n.path, false)
	if flags&syscall.O_TRUNC != 0 {
		n.writeMu.Lock()
		err := n.caps.WritePayload(ctx, n.path, []byte{})
		n.writeMu.Unlock()
		if err != nil {
			logger.Warn().Err(err).Str("path", n.path).Msg("Truncate on open failed")
			return nil, 0, ToErrno(err)
		}
		h.written.Store(true)
	}
	logger.Debug().Str("path", n.path).Str("handle", h.id).Uint32("flags", flags).Msg("Opened")
	return h, n.openFlags(), 0
}

func (n *Node) openFlags() uint32 {
	if n.cfg.DirectIO {
		return fuse.FOPEN_DIRECT_IO
	}
	return 0
}

// payload returns the current payload, or an empty one for a created file
// that has no store node yet. A handle opened by Create counts as created
// even after its placeholder expired.
func (n *Node) payload(ctx context.Context, f fs.FileHandle) ([]byte, syscall.Errno) {
	data, err := n.caps.ReadPayload(ctx, n.path)
	if err == nil {
		return data, 0
	}
	if errors.Is(err, zkfs.ErrNotFound) {
		if h, ok := f.(*handle); ok && h.created {
			return []byte{}, 0
		}
		if _, aerr := n.caps.AttributesOf(ctx, n.path); aerr == nil {
			return []byte{}, 0
		}
	}
	return nil, ToErrno(err)
}

// Read fetches the whole payload and returns the requested range
func (n *Node) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	data, errno := n.payload(ctx, f)
	if errno != 0 {
		logger := util.GetLogger("Fuse.Read")
		logger.Debug().Str("path", n.path).Str("errno", errno.Error()).Msg("Read failed")
		return nil, errno
	}
	if off >= int64(len(data)) {
		return fuse.ReadResultData(nil), 0
	}
	end := min(off+int64(len(dest)), int64(len(data)))
	return fuse.ReadResultData(data[off:end]), 0
}

// Write splices data into the current payload at off and writes the whole
// payload back
func (n *Node) Write(ctx context.Context, f fs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	logger := util.GetLogger("Fuse.Write")
	if off < 0 {
		return 0, syscall.EINVAL
	}
	if off > n.maxPayload()-int64(len(data)) {
		logger.Debug().Str("path", n.path).Int64("offset", off).Int("bytes", len(data)).Msg("Write beyond payload limit")
		return 0, syscall.EFBIG
	}
	n.writeMu.Lock()
	defer n.writeMu.Unlock()

	cur, errno := n.payload(ctx, f)
	if errno != 0 {
		return 0, errno
	}
	if err := n.caps.WritePayload(ctx, n.path, splice(cur, data, off)); err != nil {
		logger.Warn().Err(err).Str("path", n.path).Int64("offset", off).Msg("Write failed")
		return 0, ToErrno(err)
	}
	markWritten(f)
	logger.Trace().Str("path", n.path).Int64("offset", off).Int("bytes", len(data)).Msg("Wrote")
	return uint32(len(data)), 0
}

// Flush commits an empty payload for a file created through this handle
// and never written, so the entry survives beyond its placeholder.
func (n *Node) Flush(ctx context.Context, f fs.FileHandle) syscall.Errno {
	h, ok := f.(*handle)
	if !ok || !h.needsCommit() {
		return 0
	}
	logger := util.GetLogger("Fuse.Flush")
	n.writeMu.Lock()
	err := n.caps.WritePayload(ctx, n.path, []byte{})
	n.writeMu.Unlock()
	if err != nil {
		h.written.Store(false)
		logger.Warn().Err(err).Str("path", n.path).Str("handle", h.id).Msg("Failed to commit created file")
		return ToErrno(err)
	}
	logger.Debug().Str("path", n.path).Str("handle", h.id).Msg("Committed empty created file")
	return 0
}

func (n *Node) Release(ctx context.Context, f fs.FileHandle) syscall.Errno {
	if h, ok := f.(*handle); ok {
		logger := util.GetLogger("Fuse.Release")
		logger.Trace().Str("path", h.path).Str("handle", h.id).Msg("Released")
	}
	return 0
}

// Create makes a leaf entry visible immediately through a placeholder; the
// store node appears on the first write or on flush.
func (n *Node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	logger := util.GetLogger("Fuse.Create")
	child := n.child(name)
	if !filesystem.IsLeafKind(child.path) {
		logger.Debug().Str("path", child.path).Msg("Refusing to create file without leaf suffix")
		return nil, nil, 0, syscall.EPERM
	}

	existed := n.caps.IsFile(ctx, child.path)
	attr, err := n.caps.CreateFile(ctx, child.path)
	if err != nil {
		logger.Warn().Err(err).Str("path", child.path).Msg("Create failed")
		return nil, nil, 0, ToErrno(err)
	}
	h := newHandle(child.path, !existed)
	if existed && flags&syscall.O_TRUNC != 0 {
		if err := n.caps.WritePayload(ctx, child.path, []byte{}); err != nil {
			return nil, nil, 0, ToErrno(err)
		}
		attr.Size = 0
		h.written.Store(true)
	}

	fillAttr(&out.Attr, child.path, attr)
	out.SetEntryTimeout(n.entryTimeout())
	out.SetAttrTimeout(n.attrTimeout())
	logger.Debug().Str("path", child.path).Str("handle", h.id).Bool("existed", existed).Msg("Created")
	return n.NewInode(ctx, child, stableFor(child.path, attr)), h, n.openFlags(), 0
}

func (n *Node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	logger := util.GetLogger("Fuse.Mkdir")
	child := n.child(name)
	if err := n.caps.MakeDirectory(ctx, child.path); err != nil {
		logger.Debug().Err(err).Str("path", child.path).Msg("Mkdir refused")
		return nil, ToErrno(err)
	}
	attr, err := n.caps.AttributesOf(ctx, child.path)
	if err != nil {
		return nil, ToErrno(err)
	}
	fillAttr(&out.Attr, child.path, attr)
	out.SetEntryTimeout(n.entryTimeout())
	out.SetAttrTimeout(n.attrTimeout())
	return n.NewInode(ctx, child, stableFor(child.path, attr)), 0
}

func (n *Node) Rmdir(ctx context.Context, name string) syscall.Errno {
	logger := util.GetLogger("Fuse.Rmdir")
	p := path.Join(n.path, name)
	if err := n.caps.RemoveDirectory(ctx, p); err != nil {
		logger.Debug().Err(err).Str("path", p).Msg("Rmdir refused")
		return ToErrno(err)
	}
	return 0
}

// Unlink is refused: a payload goes away with its node, through rmdir.
func (n *Node) Unlink(ctx context.Context, name string) syscall.Errno {
	logger := util.GetLogger("Fuse.Unlink")
	logger.Debug().Str("path", path.Join(n.path, name)).Msg("Unlink refused")
	return syscall.EPERM
}

func (n *Node) Getxattr(ctx context.Context, attr string, dest []byte) (uint32, syscall.Errno) {
	v := n.caps.GetXattr(ctx, n.path, attr)
	if len(dest) < len(v) {
		return uint32(len(v)), syscall.ERANGE
	}
	return uint32(copy(dest, v)), 0
}

func (n *Node) Listxattr(ctx context.Context, dest []byte) (uint32, syscall.Errno) {
	names := n.caps.ListXattr(ctx, n.path)
	if len(names) == 0 {
		return 0, 0
	}
	buf := []byte(strings.Join(names, "\x00") + "\x00")
	if len(dest) < len(buf) {
		return uint32(len(buf)), syscall.ERANGE
	}
	return uint32(copy(dest, buf)), 0
}

func (n *Node) Setxattr(ctx context.Context, attr string, data []byte, flags uint32) syscall.Errno {
	n.caps.SetXattr(ctx, n.path, attr, data)
	return 0
}

func (n *Node) Removexattr(ctx context.Context, attr string) syscall.Errno {
	return 0
}

// Access grants everything; no access control is modeled.
func (n *Node) Access(ctx context.Context, mask uint32) syscall.Errno {
	return 0
}

func markWritten(f fs.FileHandle) {
	if h, ok := f.(*handle); ok {
		h.written.Store(true)
	}
}

// splice overlays data onto cur at off, zero-filling any gap
func splice(cur, data []byte, off int64) []byte {
	end := int(off) + len(data)
	out := make([]byte, max(len(cur), end))
	copy(out, cur)
	copy(out[off:], data)
	return out
}

// resize truncates or zero-extends cur to size
func resize(cur []byte, size uint64) []byte {
	out := make([]byte, size)
	copy(out, cur)
	return out
}
