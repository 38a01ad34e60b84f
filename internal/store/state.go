package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FileState represents the last written version of a content file
type FileState struct {
	Hash      string `json:"hash"`
	SizeBytes int64  `json:"size_bytes"`
}

// AssetState records where a materialized asset came from
type AssetState struct {
	Source    string `json:"source"`
	Hash      string `json:"hash"`
	SizeBytes int64  `json:"size_bytes"`
}

// SyncState is the persisted record of past sync runs
type SyncState struct {
	ContentDir   string                 `json:"content_dir"`
	LastFullSync *time.Time             `json:"last_full_sync,omitempty"`
	FailedSteps  []string               `json:"failed_steps,omitempty"`
	Files        map[string]*FileState  `json:"files"`
	Assets       map[string]*AssetState `json:"assets"`
}

// StateTracker manages the sync state file. It lives outside the content
// tree so that the content output stays free of run metadata.
type StateTracker struct {
	state    *SyncState
	filePath string
	mu       sync.RWMutex
	dirty    bool
}

// NewStateTracker loads or creates the state for a content directory.
// Each content directory gets its own state file inside stateDir.
func NewStateTracker(stateDir, contentDir string) (*StateTracker, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(contentDir)
	if err != nil {
		abs = contentDir
	}
	filePath := filepath.Join(stateDir, "state-"+ShortHash([]byte(abs))+".json")

	st := &StateTracker{
		filePath: filePath,
		state:    newSyncState(abs),
	}

	if err := st.load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("ignoring unreadable sync state", "path", filePath, "error", err)
	}

	if st.state.ContentDir != abs {
		st.state = newSyncState(abs)
	}

	return st, nil
}

func newSyncState(contentDir string) *SyncState {
	return &SyncState{
		ContentDir: contentDir,
		Files:      make(map[string]*FileState),
		Assets:     make(map[string]*AssetState),
	}
}

// load reads state from disk
func (st *StateTracker) load() error {
	data, err := os.ReadFile(st.filePath)
	if err != nil {
		return err
	}

	state := &SyncState{}
	if err := json.Unmarshal(data, state); err != nil {
		return err
	}

	if state.Files == nil {
		state.Files = make(map[string]*FileState)
	}
	if state.Assets == nil {
		state.Assets = make(map[string]*AssetState)
	}

	st.state = state
	return nil
}

// Path returns the location of the state file
func (st *StateTracker) Path() string {
	return st.filePath
}

// Save persists state to disk
func (st *StateTracker) Save() error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.dirty {
		return nil
	}

	data, err := json.MarshalIndent(st.state, "", "  ")
	if err != nil {
		return err
	}

	if err := WriteAtomic(st.filePath, data); err != nil {
		return err
	}

	st.dirty = false
	return nil
}

// GetFileState returns the state for a specific file
func (st *StateTracker) GetFileState(path string) *FileState {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state.Files[path]
}

// SetFileState updates the state for a specific file
func (st *StateTracker) SetFileState(path string, state *FileState) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if prev, ok := st.state.Files[path]; ok && *prev == *state {
		return
	}
	st.state.Files[path] = state
	st.dirty = true
}

// RemoveFileState removes state for a file
func (st *StateTracker) RemoveFileState(path string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.state.Files[path]; !ok {
		return
	}
	delete(st.state.Files, path)
	st.dirty = true
}

// RecordAsset stores the origin of a materialized asset, keyed by its web path
func (st *StateTracker) RecordAsset(webPath string, asset *AssetState) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state.Assets[webPath] = asset
	st.dirty = true
}

// GetAsset returns the recorded state of an asset
func (st *StateTracker) GetAsset(webPath string) *AssetState {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state.Assets[webPath]
}

// GetAllPaths returns all tracked file paths, sorted
func (st *StateTracker) GetAllPaths() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()

	paths := make([]string, 0, len(st.state.Files))
	for path := range st.state.Files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// SetLastFullSync records the end of a sync run and the steps that failed
func (st *StateTracker) SetLastFullSync(t time.Time, failed []string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state.LastFullSync = &t
	st.state.FailedSteps = failed
	st.dirty = true
}

// GetLastFullSync returns the last full sync time
func (st *StateTracker) GetLastFullSync() *time.Time {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state.LastFullSync
}

// FailedSteps returns the steps that failed on the last run
func (st *StateTracker) FailedSteps() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return append([]string(nil), st.state.FailedSteps...)
}

// Clear removes all state
func (st *StateTracker) Clear() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state = newSyncState(st.state.ContentDir)
	st.dirty = true
}

// FileCount returns the number of tracked files
func (st *StateTracker) FileCount() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.state.Files)
}

// AssetCount returns the number of tracked assets
func (st *StateTracker) AssetCount() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.state.Assets)
}
