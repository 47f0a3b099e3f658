// Package plugins decides which miner plugins may run. The excluded plugin
// identifiers are persisted as a JSON array; a missing file is created with the
// default exclusions.
package plugins

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"devicemonitor/internal/config"
	"devicemonitor/internal/logger"
)

// FilterFileName is the file name of the filter in the internals directory.
const FilterFileName = "SupportedPluginsFilter.json"

// BMinerPluginUUID identifies the integrated BMiner plugin.
const BMinerPluginUUID = "e5fbd330-7235-11e9-b20c-f9f12eb6d835"

// DefaultExcluded is written when no filter file exists.
var DefaultExcluded = []string{BMinerPluginUUID}

// Filter holds the set of excluded plugin identifiers.
type Filter struct {
	path string

	mu       sync.RWMutex
	excluded map[string]struct{}
}

// Load reads the filter at path. A missing file is written with
// DefaultExcluded. A malformed file is left untouched and the defaults are
// used until it is fixed.
func Load(path string) (*Filter, error) {
	f := &Filter{path: path}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

// Default returns a filter holding DefaultExcluded that is not backed by a file.
func Default() *Filter {
	f := &Filter{}
	f.set(DefaultExcluded)
	return f
}

func (f *Filter) load() error {
	log := logger.WithComponent("plugins")

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		if err := writeList(f.path, DefaultExcluded); err != nil {
			return err
		}
		log.Info().Str("path", f.path).Msg("Plugin filter not found, wrote defaults")
		f.set(DefaultExcluded)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read plugin filter: %w", err)
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		log.Warn().Err(err).Str("path", f.path).Msg("Plugin filter is malformed, using defaults")
		f.set(DefaultExcluded)
		return nil
	}

	f.set(list)
	return nil
}

// Reload re-reads the filter file.
func (f *Filter) Reload() error {
	if f.path == "" {
		return nil
	}
	return f.load()
}

func (f *Filter) set(list []string) {
	log := logger.WithComponent("plugins")

	excluded := make(map[string]struct{}, len(list))
	for _, s := range list {
		id := pluginKey(s)
		if id == "" {
			continue
		}
		excluded[id] = struct{}{}
	}

	f.mu.Lock()
	f.excluded = excluded
	f.mu.Unlock()

	log.Debug().Int("excluded", len(excluded)).Msg("Plugin filter loaded")
}

// pluginKey returns the lookup key for a plugin identifier. UUIDs are
// canonicalized so they compare case-insensitively; any other identifier is
// matched exactly after trimming.
func pluginKey(s string) string {
	s = strings.TrimSpace(s)
	if id, err := uuid.Parse(s); err == nil {
		return id.String()
	}
	return s
}

// IsSupported reports whether the plugin may run: it is supported unless its
// identifier is excluded.
func (f *Filter) IsSupported(pluginUUID string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, excluded := f.excluded[pluginKey(pluginUUID)]
	return !excluded
}

// Excluded returns the excluded identifiers, UUIDs in canonical form, sorted.
func (f *Filter) Excluded() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]string, 0, len(f.excluded))
	for id := range f.excluded {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Path returns the backing file, empty for Default.
func (f *Filter) Path() string {
	return f.path
}

// Watch reloads the filter whenever its file changes and then calls
// onReload, if set, with the updated filter.
func (f *Filter) Watch(onReload func(*Filter)) (*config.FileWatcher, error) {
	return config.NewFileWatcher(f.path, func() {
		if err := f.Reload(); err != nil {
			log := logger.WithComponent("plugins")
			log.Error().Err(err).Msg("Failed to reload plugin filter")
			return
		}
		if onReload != nil {
			onReload(f)
		}
	})
}

func writeList(path string, list []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create plugin filter directory: %w", err)
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode plugin filter: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write plugin filter: %w", err)
	}
	return nil
}
