package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/fsnotify/fsnotify"

	"devicemonitor/internal/logger"
)

// DefaultDebounce collapses the burst of events an editor or an atomic
// replace produces into one reload.
const DefaultDebounce = 200 * time.Millisecond

// FileWatcher watches one file and calls onChange after it is written,
// created or renamed into place.
type FileWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func()
	clock    clock.Clock
	debounce time.Duration

	mu       sync.Mutex
	running  bool
	pending  *clock.Timer
	stopChan chan struct{}
	done     chan struct{}
}

// NewFileWatcher creates a watcher that calls onChange when path changes.
func NewFileWatcher(path string, onChange func()) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &FileWatcher{
		path:     path,
		watcher:  w,
		onChange: onChange,
		clock:    clock.New(),
		debounce: DefaultDebounce,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. The parent directory is watched so the file may be
// created or replaced after Start.
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.running {
		return nil
	}
	if err := fw.watcher.Add(filepath.Dir(fw.path)); err != nil {
		return err
	}
	fw.running = true

	log := logger.WithComponent("file-watcher")

	log.Info().Str("path", fw.path).Msg("Started watching file")

	go fw.watch()
	return nil
}

// Stop stops watching and waits for the event loop to exit. A pending
// debounced callback is cancelled.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if !fw.running {
		fw.mu.Unlock()
		return fw.watcher.Close()
	}
	fw.running = false
	if fw.pending != nil {
		fw.pending.Stop()
		fw.pending = nil
	}
	fw.mu.Unlock()

	close(fw.stopChan)
	err := fw.watcher.Close()
	<-fw.done
	return err
}

// IsRunning returns whether the watcher is currently running.
func (fw *FileWatcher) IsRunning() bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.running
}

func (fw *FileWatcher) watch() {
	defer close(fw.done)

	log := logger.WithComponent("file-watcher")
	filename := filepath.Base(fw.path)

	for {
		select {
		case <-fw.stopChan:
			log.Info().Str("path", fw.path).Msg("File watcher stopped")
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug().Str("path", fw.path).Str("event", event.Op.String()).Msg("File changed")
			fw.schedule()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Str("path", fw.path).Msg("File watcher error")
		}
	}
}

// schedule (re)arms the debounce timer.
func (fw *FileWatcher) schedule() {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if !fw.running {
		return
	}
	if fw.pending != nil {
		fw.pending.Stop()
	}
	fw.pending = fw.clock.AfterFunc(fw.debounce, fw.fire)
}

func (fw *FileWatcher) fire() {
	fw.mu.Lock()
	running := fw.running
	fw.pending = nil
	fw.mu.Unlock()

	if !running || fw.onChange == nil {
		return
	}
	log := logger.WithComponent("file-watcher")
	log.Info().Str("path", fw.path).Msg("File changed, reloading")
	fw.onChange()
}

// NewMonitorWatcher creates a watcher that loads MonitorConfig on file change.
func NewMonitorWatcher(path string, callback func(*MonitorConfig)) (*FileWatcher, error) {
	return NewFileWatcher(path, func() {
		mc, err := LoadMonitor(path)
		if err != nil {
			log := logger.WithComponent("monitor-watcher")
			log.Error().Err(err).Msg("Failed to reload monitor configuration")
			return
		}
		if callback != nil {
			callback(mc)
		}
	})
}

// NewLoggingWatcher creates a watcher that loads logger.Config on file change.
func NewLoggingWatcher(path string, callback func(*logger.Config)) (*FileWatcher, error) {
	return NewFileWatcher(path, func() {
		lc, err := LoadLogging(path)
		if err != nil {
			log := logger.WithComponent("logging-watcher")
			log.Error().Err(err).Msg("Failed to reload logging configuration")
			return
		}
		if callback != nil {
			callback(lc)
		}
	})
}
