package filesystem

import (
	"context"
	"os"
	"testing"

	"github.com/brettbedarf/zkfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAttributesOf_Directory(t *testing.T) {
	t.Parallel()
	fs, ms := createTestFS(t)
	seed(t, ms, "/a/b", nil)

	attr, err := fs.AttributesOf(context.Background(), "/a")
	require.NoError(t, err)

	secs := uint64(testEpoch.Unix())
	assert.Equal(t, &zkfs.Attr{
		Dir:   true,
		Mode:  DirModePermissive,
		Nlink: 1,
		Uid:   uint32(os.Getuid()),
		Gid:   uint32(os.Getgid()),
		Atime: secs,
		Mtime: secs,
		Ctime: secs,
	}, attr)
}

func TestAttributesOf_File(t *testing.T) {
	t.Parallel()
	fs, ms := createTestFS(t)
	seed(t, ms, "/cfg/db", []byte("host=1.2.3.4"))

	attr, err := fs.AttributesOf(context.Background(), "/cfg/db.contents")
	require.NoError(t, err)

	assert.False(t, attr.Dir)
	assert.Equal(t, uint32(0o666), attr.Mode, "read and write for all, never execute")
	assert.Equal(t, uint64(len("host=1.2.3.4")), attr.Size)
	assert.Equal(t, uint32(1), attr.Nlink)
	assert.Equal(t, attr.Mtime, attr.Atime)
	assert.Equal(t, uint64(testEpoch.Unix()), attr.Mtime)
}

func TestAttributesOf_Times(t *testing.T) {
	t.Parallel()
	fs, m := createMockFS(t)
	m.On("Stat", mock.Anything, "/n").Return(&zkfs.NodeStat{
		PayloadLength:    3,
		ModifyTimeMillis: 9_999,
		CreateTimeMillis: 2_500,
	}, nil)

	attr, err := fs.AttributesOf(context.Background(), "/n.contents")
	require.NoError(t, err)
	assert.Equal(t, uint64(9), attr.Mtime)
	assert.Equal(t, uint64(9), attr.Atime)
	assert.Equal(t, uint64(2), attr.Ctime)
	assert.Equal(t, uint64(3), attr.Size)
}

func TestAttributesOf_NotFound(t *testing.T) {
	t.Parallel()
	fs, ms := createTestFS(t)
	seed(t, ms, "/a", nil)

	for _, p := range []string{"/missing", "/missing.contents", "/a/b", "/a.contents/b"} {
		_, err := fs.AttributesOf(context.Background(), p)
		assert.ErrorIs(t, err, zkfs.ErrNotFound, p)
	}
}

func TestAttributesOf_StoreErrorPropagates(t *testing.T) {
	t.Parallel()
	fs, m := createMockFS(t)
	m.On("Stat", mock.Anything, "/a").Return(nil, zkfs.ErrBackingStoreUnavailable)

	_, err := fs.AttributesOf(context.Background(), "/a.contents")
	assert.ErrorIs(t, err, zkfs.ErrBackingStoreUnavailable)
}

func TestAttributesOf_RootOfMissingChroot(t *testing.T) {
	t.Parallel()
	fs, m := createMockFS(t)
	m.On("Stat", mock.Anything, "/").Return(nil, zkfs.ErrNotFound)

	attr, err := fs.AttributesOf(context.Background(), "/")
	require.NoError(t, err)
	assert.True(t, attr.Dir)
	assert.Equal(t, DirModePermissive, attr.Mode)
	assert.Zero(t, attr.Mtime)
}

func TestAttributesOf_Placeholder(t *testing.T) {
	t.Parallel()
	fs, _ := createTestFS(t)
	ctx := context.Background()

	created, err := fs.CreateFile(ctx, "/new.contents")
	require.NoError(t, err)
	assert.Equal(t, 1, fs.placeholders.Len())

	// Returned verbatim while no node exists
	attr, err := fs.AttributesOf(ctx, "/new.contents")
	require.NoError(t, err)
	assert.Equal(t, created, attr)
	assert.Zero(t, attr.Size)
	assert.Equal(t, uint32(0o666), attr.Mode)

	// The directory side of the name still does not exist
	_, err = fs.AttributesOf(ctx, "/new")
	assert.ErrorIs(t, err, zkfs.ErrNotFound)

	require.NoError(t, fs.WritePayload(ctx, "/new.contents", []byte("abc")))
	assert.Equal(t, 0, fs.placeholders.Len())

	attr, err = fs.AttributesOf(ctx, "/new.contents")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), attr.Size)
}

func TestAttributesOf_ObservedNodeDropsPlaceholder(t *testing.T) {
	t.Parallel()
	fs, ms := createTestFS(t)
	ctx := context.Background()

	_, err := fs.CreateFile(ctx, "/x.contents")
	require.NoError(t, err)

	// Someone else creates the node behind our back
	seed(t, ms, "/x", []byte("remote"))

	attr, err := fs.AttributesOf(ctx, "/x.contents")
	require.NoError(t, err)
	assert.Equal(t, uint64(len("remote")), attr.Size)
	assert.Equal(t, 0, fs.placeholders.Len())
}
