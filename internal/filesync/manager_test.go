package filesync

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retro-sync/internal/cache"
	"retro-sync/internal/config"
	"retro-sync/internal/remotecli"
)

type fakeRemote struct {
	mu         sync.Mutex
	downloads  []string
	uploads    []string
	downloadFn func(remotePath, localPath string) remotecli.Result
	uploadFn   func(localPath, remotePath string) remotecli.Result
}

func (f *fakeRemote) Download(ctx context.Context, remotePath, localPath string) remotecli.Result {
	f.mu.Lock()
	f.downloads = append(f.downloads, remotePath)
	f.mu.Unlock()
	if f.downloadFn != nil {
		return f.downloadFn(remotePath, localPath)
	}
	if err := os.WriteFile(localPath, []byte("lda #$01\n"), 0644); err != nil {
		return remotecli.Result{Err: err}
	}
	return remotecli.Result{Success: true}
}

func (f *fakeRemote) Upload(ctx context.Context, localPath, remotePath string) remotecli.Result {
	f.mu.Lock()
	f.uploads = append(f.uploads, remotePath)
	f.mu.Unlock()
	if f.uploadFn != nil {
		return f.uploadFn(localPath, remotePath)
	}
	return remotecli.Result{Success: true}
}

func (f *fakeRemote) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

func newTestManager(t *testing.T, remote *fakeRemote) *Manager {
	t.Helper()
	dir := t.TempDir()

	meta, err := cache.NewSyncCache(filepath.Join(dir, "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = meta.Close() })

	cfg := &config.Config{}
	cfg.Sync.CacheRoot = filepath.Join(dir, "cache")
	cfg.Sync.Editor = "true"
	cfg.Viewer.Command = "true"
	config.ApplyDefaults(cfg)

	m, err := NewManager(cfg, remote, meta)
	require.NoError(t, err)

	// no interactive prompts or external processes in tests
	m.confirm = func(string) (bool, error) { return true, nil }
	m.runCmd = func(command, filePath string) error { return nil }
	return m
}

func TestLocalPathMirrorsRemotePath(t *testing.T) {
	m := newTestManager(t, &fakeRemote{})

	local := m.LocalPathFor("/games/demo/main.asm")
	rel, err := filepath.Rel(m.cacheRoot, local)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join("games", "demo", "main.asm"), rel)
}

func TestOpenFileRegistersMapping(t *testing.T) {
	remote := &fakeRemote{}
	m := newTestManager(t, remote)

	err := m.OpenFile(context.Background(), "/src/main.asm")

	require.NoError(t, err)
	cf, ok := m.Tracked(m.LocalPathFor("/src/main.asm"))
	require.True(t, ok)
	assert.True(t, cf.IsText)
	assert.Equal(t, "/src/main.asm", cf.RemotePath)
}

func TestOpenFileUnsupportedIsNoOp(t *testing.T) {
	remote := &fakeRemote{}
	m := newTestManager(t, remote)

	err := m.OpenFile(context.Background(), "/stuff/archive.zip")

	require.NoError(t, err)
	assert.Empty(t, remote.downloads)
	_, ok := m.Tracked(m.LocalPathFor("/stuff/archive.zip"))
	assert.False(t, ok)
}

func TestOpenFileDownloadFailureRegistersNothing(t *testing.T) {
	remote := &fakeRemote{
		downloadFn: func(remotePath, localPath string) remotecli.Result {
			return remotecli.Result{Success: false, Output: "device offline"}
		},
	}
	m := newTestManager(t, remote)

	err := m.OpenFile(context.Background(), "/src/main.asm")

	assert.Error(t, err)
	_, ok := m.Tracked(m.LocalPathFor("/src/main.asm"))
	assert.False(t, ok, "no partial state after a failed download")
}

func TestOpenFileDirtyCancelKeepsLocalCopy(t *testing.T) {
	remote := &fakeRemote{}
	m := newTestManager(t, remote)

	require.NoError(t, m.OpenFile(context.Background(), "/src/main.asm"))
	localPath := m.LocalPathFor("/src/main.asm")

	// unsaved local edit
	require.NoError(t, os.WriteFile(localPath, []byte("lda #$02 ; edited\n"), 0644))

	m.confirm = func(string) (bool, error) { return false, nil }
	require.NoError(t, m.OpenFile(context.Background(), "/src/main.asm"))

	// the cancelled re-open must not have re-downloaded
	assert.Equal(t, []string{"/src/main.asm"}, remote.downloads)
	data, err := os.ReadFile(localPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "edited")
}

// Keeping local changes on re-open must still register the mapping: the kept
// edits belong to the remote path, and saving them has to upload.
func TestOpenFileDirtyCancelStillUploadsSaves(t *testing.T) {
	remote := &fakeRemote{}
	m := newTestManager(t, remote)

	require.NoError(t, m.OpenFile(context.Background(), "/src/main.asm"))
	localPath := m.LocalPathFor("/src/main.asm")
	require.NoError(t, os.WriteFile(localPath, []byte("lda #$02 ; edited\n"), 0644))

	// fresh session: the mapping table is empty, only cache files and
	// metadata survive
	m.Dispose()

	m.confirm = func(string) (bool, error) { return false, nil }
	require.NoError(t, m.OpenFile(context.Background(), "/src/main.asm"))

	cf, ok := m.Tracked(localPath)
	require.True(t, ok, "cancel path must register the mapping")
	assert.Equal(t, "/src/main.asm", cf.RemotePath)

	require.NoError(t, m.HandleSave(context.Background(), localPath))
	assert.Equal(t, []string{"/src/main.asm"}, remote.uploads)
}

func TestSaveWithoutOpenIsNoOp(t *testing.T) {
	remote := &fakeRemote{}
	m := newTestManager(t, remote)

	err := m.HandleSave(context.Background(), filepath.Join(m.cacheRoot, "never", "opened.asm"))

	require.NoError(t, err)
	assert.Zero(t, remote.uploadCount())
}

func TestSaveOfBinaryFileIsIgnored(t *testing.T) {
	remote := &fakeRemote{}
	m := newTestManager(t, remote)

	require.NoError(t, m.OpenFile(context.Background(), "/bin/demo.prg"))

	err := m.HandleSave(context.Background(), m.LocalPathFor("/bin/demo.prg"))

	require.NoError(t, err)
	assert.Zero(t, remote.uploadCount(), "binary files never auto-upload")
}

func TestSaveOfIgnoredEditorDroppingIsSkipped(t *testing.T) {
	remote := &fakeRemote{}
	m := newTestManager(t, remote)

	err := m.HandleSave(context.Background(), filepath.Join(m.cacheRoot, "src", "main.asm.swp"))

	require.NoError(t, err)
	assert.Zero(t, remote.uploadCount())
}

func TestSaveUploadsAndClearsGuard(t *testing.T) {
	remote := &fakeRemote{}
	m := newTestManager(t, remote)

	require.NoError(t, m.OpenFile(context.Background(), "/src/main.asm"))
	localPath := m.LocalPathFor("/src/main.asm")

	require.NoError(t, m.HandleSave(context.Background(), localPath))
	assert.Equal(t, 1, remote.uploadCount())

	// the guard was cleared, so a later save uploads again
	require.NoError(t, m.HandleSave(context.Background(), localPath))
	assert.Equal(t, 2, remote.uploadCount())
}

func TestSaveGuardClearsAfterUploadFailure(t *testing.T) {
	remote := &fakeRemote{
		uploadFn: func(localPath, remotePath string) remotecli.Result {
			return remotecli.Result{Success: false, Output: "device offline"}
		},
	}
	m := newTestManager(t, remote)

	require.NoError(t, m.OpenFile(context.Background(), "/src/main.asm"))
	localPath := m.LocalPathFor("/src/main.asm")

	assert.Error(t, m.HandleSave(context.Background(), localPath))
	// mark cleared regardless of outcome
	assert.False(t, m.uploading.Contains(localPath))
}

// Overlapping saves of one path: the second save is dropped while the first
// upload is in flight. This silently skips the newer content — preserved
// behavior, not a bug fix waiting to happen.
func TestSaveWhileUploadInFlightIsDropped(t *testing.T) {
	block := make(chan struct{})
	entered := make(chan struct{})
	remote := &fakeRemote{
		uploadFn: func(localPath, remotePath string) remotecli.Result {
			close(entered)
			<-block
			return remotecli.Result{Success: true}
		},
	}
	m := newTestManager(t, remote)

	require.NoError(t, m.OpenFile(context.Background(), "/src/main.asm"))
	localPath := m.LocalPathFor("/src/main.asm")

	done := make(chan error, 1)
	go func() { done <- m.HandleSave(context.Background(), localPath) }()
	<-entered

	// second save arrives while the first upload is suspended
	require.NoError(t, m.HandleSave(context.Background(), localPath))

	close(block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, remote.uploadCount(), "overlapping save must be dropped, not queued")
}

func TestDisposeClearsMappingButKeepsCacheFiles(t *testing.T) {
	remote := &fakeRemote{}
	m := newTestManager(t, remote)

	require.NoError(t, m.OpenFile(context.Background(), "/src/main.asm"))
	localPath := m.LocalPathFor("/src/main.asm")

	m.Dispose()

	_, ok := m.Tracked(localPath)
	assert.False(t, ok)
	_, err := os.Stat(localPath)
	assert.NoError(t, err, "cached files persist across sessions")
}
