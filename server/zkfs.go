package server

import (
	"github.com/brettbedarf/zkfs"
	"github.com/brettbedarf/zkfs/config"
	"github.com/brettbedarf/zkfs/filesystem"
	zfuse "github.com/brettbedarf/zkfs/fuse"
	"github.com/brettbedarf/zkfs/internal/util"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// ZkFs contains the core filesystem state and operations with abstractions
// over the underlying FUSE wire protocol implementation
type ZkFs struct {
	*filesystem.FileSystem
	cfg    *config.Config
	server *fuse.Server
}

// New creates a ZkFs instance over store given your config.
func New(cfg *config.Config, store zkfs.Store) *ZkFs {
	return &ZkFs{
		filesystem.NewFS(cfg, store),
		cfg,
		nil,
	}
}

// Serve mounts the filesystem at the given mountPoint and returns once the
// mount is live. Requests are served in the background until unmount.
func (z *ZkFs) Serve(mountPoint string) error {
	logger := util.GetLogger("ZkFs.Serve")
	root := zfuse.NewRoot(z.FileSystem, z.cfg)
	opts := z.cfg.MountOptions
	entryTimeout := config.Seconds(z.cfg.EntryTimeout)
	attrTimeout := config.Seconds(z.cfg.AttrTimeout)

	srv, err := fs.Mount(mountPoint, root, &fs.Options{
		EntryTimeout: &entryTimeout,
		AttrTimeout:  &attrTimeout,
		MountOptions: fuse.MountOptions{
			Name:       opts.Name,
			FsName:     opts.FsName,
			AllowOther: opts.AllowOther,
			Debug:      opts.Debug || z.cfg.LogLvl == util.TraceLevel,
			Logger:     util.NewLogLogger("FuseServer", util.TraceLevel),
		},
		Logger: util.NewLogLogger("FuseBridge", util.DebugLevel),
	})
	if err != nil {
		return err
	}
	z.server = srv
	logger.Info().Str("mountpoint", mountPoint).Msg("Filesystem mounted")
	return nil
}

// Wait blocks until the filesystem is unmounted, by [ZkFs.Unmount] or
// externally.
func (z *ZkFs) Wait() {
	if z.server == nil {
		return
	}
	z.server.Wait()
}

// Unmount cleanly unmounts the filesystem.
func (z *ZkFs) Unmount() error {
	if z.server == nil {
		return nil
	}
	return z.server.Unmount()
}

// Close releases the backing store session
func (z *ZkFs) Close() error {
	return z.Store().Close()
}
