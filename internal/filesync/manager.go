package filesync

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gobwas/glob"
	"github.com/manifoldco/promptui"

	"retro-sync/internal/cache"
	"retro-sync/internal/config"
	"retro-sync/internal/events"
	"retro-sync/internal/remotecli"
	"retro-sync/internal/remotefs"
	"retro-sync/internal/util"
)

// CachedFile binds a remote path to its local cache file. IsText is fixed at
// creation by extension classification and decides whether saves auto-upload.
type CachedFile struct {
	LocalPath  string
	RemotePath string
	IsText     bool
}

// Remote is the slice of the device CLI the sync manager needs.
type Remote interface {
	Download(ctx context.Context, remotePath, localPath string) remotecli.Result
	Upload(ctx context.Context, localPath, remotePath string) remotecli.Result
}

// Confirmer resolves the overwrite-or-cancel choice when opening a file whose
// cached copy has unsaved local modifications.
type Confirmer func(remotePath string) (overwrite bool, err error)

// Manager keeps local cache files and remote files synchronized: remote to
// local on open, local to remote on every save. The cache directory is owned
// exclusively by the manager; cached files persist across sessions and are
// never evicted.
type Manager struct {
	cacheRoot string
	remote    Remote
	meta      *cache.SyncCache

	mu    sync.Mutex
	files map[string]*CachedFile // keyed by local path

	// uploading is the in-flight upload guard: a save event for a path
	// already in the set is dropped, not queued.
	uploading mapset.Set[string]

	ignores   []glob.Glob
	confirm   Confirmer
	editorCmd string
	viewerCmd string

	watcher *saveWatcher

	// runCmd launches the editor/viewer; swapped out in tests.
	runCmd func(command, filePath string) error
}

// NewManager creates a sync manager rooted at cfg.Sync.CacheRoot.
func NewManager(cfg *config.Config, remote Remote, meta *cache.SyncCache) (*Manager, error) {
	absRoot, err := filepath.Abs(cfg.Sync.CacheRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache root: %v", err)
	}
	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache root %s: %v", absRoot, err)
	}

	var ignores []glob.Glob
	for _, pattern := range cfg.Sync.Ignores {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %v", pattern, err)
		}
		ignores = append(ignores, g)
	}

	m := &Manager{
		cacheRoot: absRoot,
		remote:    remote,
		meta:      meta,
		files:     make(map[string]*CachedFile),
		uploading: mapset.NewSet[string](),
		ignores:   ignores,
		confirm:   promptOverwrite,
		editorCmd: cfg.Sync.Editor,
		viewerCmd: cfg.Viewer.Command,
		runCmd:    runInteractive,
	}
	return m, nil
}

// IsOpenable reports whether this subsystem opens the given filename at all.
func (m *Manager) IsOpenable(name string) bool {
	return remotefs.IsOpenable(name)
}

// LocalPathFor maps a remote path into the cache: the remote path with its
// leading slash stripped becomes a relative path under the cache root. The
// open/save round trip depends on this mirroring being exact.
func (m *Manager) LocalPathFor(remotePath string) string {
	rel := strings.TrimPrefix(remotePath, "/")
	return filepath.Join(m.cacheRoot, filepath.FromSlash(rel))
}

// OpenFile downloads a remote file into the cache, registers the mapping and
// presents it. Unsupported extensions are a logged no-op, not an error.
func (m *Manager) OpenFile(ctx context.Context, remotePath string) error {
	name := path.Base(remotePath)
	class := remotefs.Classify(name)
	if class == remotefs.ClassUnsupported {
		util.Default.Printf("⏭️  %s is not an editable or viewable file type, skipping\n", name)
		return nil
	}

	localPath := m.LocalPathFor(remotePath)

	dirty, err := m.meta.IsDirty(localPath)
	if err != nil {
		return fmt.Errorf("failed to check local modifications for %s: %v", localPath, err)
	}
	if dirty {
		overwrite, err := m.confirm(remotePath)
		if err != nil {
			return fmt.Errorf("overwrite prompt failed: %v", err)
		}
		if !overwrite {
			// the kept local copy still belongs to this remote path, so
			// saves of it must keep uploading
			m.register(localPath, remotePath, class)
			util.Default.Printf("↩️  Keeping local changes for %s\n", name)
			return m.present(class, localPath)
		}
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory for %s: %v", remotePath, err)
	}

	if res := m.remote.Download(ctx, remotePath, localPath); !res.Success {
		// no partial state: the mapping is only registered after a
		// successful download
		return fmt.Errorf("download of %s failed: %v (%s)", remotePath, res.Err, res.Output)
	}

	m.register(localPath, remotePath, class)

	if err := m.meta.RecordSync(localPath, remotePath); err != nil {
		util.Default.Printf("⚠️  Failed to record sync metadata for %s: %v\n", name, err)
	}

	events.GlobalBus.Publish(events.EventFileOpened, remotePath)
	util.Default.Printf("⬇️  Opened %s\n", remotePath)

	return m.present(class, localPath)
}

// register records the local-to-remote mapping for a cached file.
func (m *Manager) register(localPath, remotePath string, class remotefs.FileClass) {
	m.mu.Lock()
	m.files[localPath] = &CachedFile{
		LocalPath:  localPath,
		RemotePath: remotePath,
		IsText:     class == remotefs.ClassText,
	}
	m.mu.Unlock()
}

// present hands the cached file to the editor (text) or the external binary
// viewer. A missing viewer yields an install hint; no synthetic viewer is
// built here.
func (m *Manager) present(class remotefs.FileClass, localPath string) error {
	if class == remotefs.ClassText {
		if err := m.runCmd(m.editorCmd, localPath); err != nil {
			return fmt.Errorf("editor %q failed: %v", m.editorCmd, err)
		}
		return nil
	}
	if m.viewerCmd == "" {
		util.Default.Println("💡 No binary viewer configured. Set viewer.command in retro-sync.yaml to view binary files.")
		return nil
	}
	if err := m.runCmd(m.viewerCmd, localPath); err != nil {
		return fmt.Errorf("viewer %q failed: %v", m.viewerCmd, err)
	}
	return nil
}

// Tracked looks up the mapping for a local path.
func (m *Manager) Tracked(localPath string) (*CachedFile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cf, ok := m.files[localPath]
	return cf, ok
}

// HandleSave uploads the saved document back to the device. Untracked or
// binary-classified paths are ignored. A save whose path is already mid-
// upload is dropped outright: no retry is queued, so a rapid double-save can
// skip uploading the newer content.
func (m *Manager) HandleSave(ctx context.Context, localPath string) error {
	base := filepath.Base(localPath)
	for _, g := range m.ignores {
		if g.Match(base) {
			return nil
		}
	}

	cf, ok := m.Tracked(localPath)
	if !ok || !cf.IsText {
		return nil
	}

	if !m.uploading.Add(localPath) {
		util.Default.Printf("⏳ Upload of %s already in flight, save dropped\n", base)
		return nil
	}
	defer m.uploading.Remove(localPath)

	res := m.remote.Upload(ctx, localPath, cf.RemotePath)
	if !res.Success {
		err := fmt.Errorf("upload of %s failed: %v (%s)", cf.RemotePath, res.Err, res.Output)
		util.Default.Printf("❌ %v\n", err)
		return err
	}

	if err := m.meta.RecordSync(localPath, cf.RemotePath); err != nil {
		util.Default.Printf("⚠️  Failed to record sync metadata for %s: %v\n", base, err)
	}

	events.GlobalBus.Publish(events.EventFileUploaded, cf.RemotePath)
	// transient, status-bar style
	util.Default.PrintBlock(fmt.Sprintf("⬆️  Uploaded %s", cf.RemotePath), true)
	return nil
}

// StartWatching begins delivering save events from the cache root. Safe to
// call once per manager.
func (m *Manager) StartWatching() error {
	if m.watcher != nil {
		return nil
	}
	w, err := newSaveWatcher(m)
	if err != nil {
		return err
	}
	m.watcher = w
	events.GlobalBus.Publish(events.EventSyncStarted)
	return nil
}

// Dispose releases the watcher and clears the mapping table. Cached local
// files are deliberately left on disk for later reuse.
func (m *Manager) Dispose() {
	if m.watcher != nil {
		m.watcher.stop()
		m.watcher = nil
	}
	m.mu.Lock()
	m.files = make(map[string]*CachedFile)
	m.mu.Unlock()
	events.GlobalBus.Publish(events.EventSyncStopped)
}

// promptOverwrite is the interactive Confirmer used outside tests.
func promptOverwrite(remotePath string) (bool, error) {
	util.Default.Suspend()
	defer util.Default.Resume()

	prompt := promptui.Select{
		Label: fmt.Sprintf("%s has unsaved local changes", path.Base(remotePath)),
		Items: []string{
			"Overwrite with remote copy",
			"Cancel (keep local changes)",
		},
	}
	idx, _, err := prompt.Run()
	if err != nil {
		return false, err
	}
	return idx == 0, nil
}

// runInteractive launches an external command attached to the terminal.
func runInteractive(command, filePath string) error {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return fmt.Errorf("empty command")
	}
	args := append(parts[1:], filePath)
	cmd := exec.Command(parts[0], args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
