package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const HistoryDir = ".retro-sync"
const HistoryFile = "history.json"

// Entry is one recently browsed remote directory.
type Entry struct {
	Path       string    `json:"path"`
	LastAccess time.Time `json:"last_access"`
}

type History struct {
	Entries []Entry `json:"entries"`
}

func GetHistoryDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, HistoryDir)
}

func GetHistoryPath() string {
	return filepath.Join(GetHistoryDir(), HistoryFile)
}

func LoadHistory() (*History, error) {
	path := GetHistoryPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &History{Entries: []Entry{}}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func SaveHistory(h *History) error {
	if err := os.MkdirAll(GetHistoryDir(), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(GetHistoryPath(), data, 0644)
}

// AddPath records a remote directory visit, moving it to the top.
func AddPath(remotePath string) {
	h, err := LoadHistory()
	if err != nil {
		return
	}

	for i := range h.Entries {
		if h.Entries[i].Path == remotePath {
			h.Entries[i].LastAccess = time.Now()
			sortEntries(h)
			_ = SaveHistory(h)
			return
		}
	}

	h.Entries = append(h.Entries, Entry{Path: remotePath, LastAccess: time.Now()})
	sortEntries(h)

	// keep the list short
	if len(h.Entries) > 20 {
		h.Entries = h.Entries[:20]
	}
	_ = SaveHistory(h)
}

// GetAllPaths returns remote directories, most recently visited first.
func GetAllPaths() []string {
	h, err := LoadHistory()
	if err != nil {
		return nil
	}
	sortEntries(h)
	paths := make([]string, 0, len(h.Entries))
	for _, e := range h.Entries {
		paths = append(paths, e.Path)
	}
	return paths
}

// RemovePath deletes one remote directory from the history.
func RemovePath(remotePath string) {
	h, err := LoadHistory()
	if err != nil {
		return
	}
	filtered := h.Entries[:0]
	for _, e := range h.Entries {
		if e.Path != remotePath {
			filtered = append(filtered, e)
		}
	}
	h.Entries = filtered
	_ = SaveHistory(h)
}

// SearchPaths returns history entries containing the query substring.
func SearchPaths(query string) []string {
	var results []string
	for _, p := range GetAllPaths() {
		if strings.Contains(strings.ToLower(p), strings.ToLower(query)) {
			results = append(results, p)
		}
	}
	return results
}

func sortEntries(h *History) {
	sort.Slice(h.Entries, func(i, j int) bool {
		return h.Entries[i].LastAccess.After(h.Entries[j].LastAccess)
	})
}
