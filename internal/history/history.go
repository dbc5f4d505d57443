// ABOUTME: Playback history persistence
// ABOUTME: Keeps a de-duplicated, most-recent-first list of played URLs in a YAML file
package history

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultLimit is the number of entries kept when no limit is set
const DefaultLimit = 50

// Entry is one played stream
type Entry struct {
	URL       string    `yaml:"url"`
	Codec     string    `yaml:"codec,omitempty"`
	Name      string    `yaml:"name,omitempty"`
	LastPlay  time.Time `yaml:"last_played"`
	PlayCount int       `yaml:"play_count"`
}

// History is a list of played streams backed by a file
type History struct {
	path    string
	limit   int
	Entries []Entry `yaml:"entries"`
}

// DefaultPath returns the history file under the user config directory
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to find config directory: %w", err)
	}
	return filepath.Join(dir, "streamplay", "history.yaml"), nil
}

// Load reads the history at path. A missing file yields an empty history.
func Load(path string) (*History, error) {
	h := &History{path: path, limit: DefaultLimit}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return h, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	if err := yaml.Unmarshal(data, h); err != nil {
		return nil, fmt.Errorf("failed to parse history %s: %w", path, err)
	}
	return h, nil
}

// Add records a play of url, moving an existing entry to the front
func (h *History) Add(entry Entry) {
	if entry.LastPlay.IsZero() {
		entry.LastPlay = time.Now()
	}
	entry.PlayCount = 1

	for i, e := range h.Entries {
		if e.URL != entry.URL {
			continue
		}
		entry.PlayCount = e.PlayCount + 1
		if entry.Codec == "" {
			entry.Codec = e.Codec
		}
		if entry.Name == "" {
			entry.Name = e.Name
		}
		h.Entries = append(h.Entries[:i], h.Entries[i+1:]...)
		break
	}

	h.Entries = append([]Entry{entry}, h.Entries...)

	limit := h.limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(h.Entries) > limit {
		h.Entries = h.Entries[:limit]
	}
}

// Save writes the history, creating its directory if needed
func (h *History) Save() error {
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := yaml.Marshal(h)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	tmp := h.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return os.Rename(tmp, h.path)
}

// SetLimit changes the number of entries kept
func (h *History) SetLimit(limit int) {
	h.limit = limit
}
