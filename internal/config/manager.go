package config

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"standupbot/pkg/logx"
)

// Manager holds the committed config and watches the file for changes.
// Reloads only publish settings that are safe to change live (log level,
// broadcast pacing); schedule changes require a restart and are logged
// as such.
type Manager struct {
	path string

	mu  sync.RWMutex
	cfg *Config

	subsMu sync.Mutex
	subs   []chan *Config

	log logx.Logger

	// lastHash avoids redundant publishes when editors emit multiple
	// write events without content changes.
	lastHash uint64
}

func NewManager(path string, log logx.Logger) *Manager {
	return &Manager{path: path, log: log}
}

// Load parses, validates and commits the file.
func (m *Manager) Load() (*Config, error) {
	cfg, err := Load(m.path)
	if err != nil {
		return nil, err
	}
	m.commit(cfg)
	return cfg, nil
}

func (m *Manager) Current() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) commit(cfg *Config) {
	m.mu.Lock()
	m.cfg = cfg
	m.lastHash = hashConfig(cfg)
	m.mu.Unlock()
}

// Subscribe returns a channel receiving each newly committed config.
func (m *Manager) Subscribe() <-chan *Config {
	ch := make(chan *Config, 1)
	m.subsMu.Lock()
	m.subs = append(m.subs, ch)
	m.subsMu.Unlock()
	return ch
}

func (m *Manager) publish(cfg *Config) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- cfg:
		default:
		}
	}
}

// Watch blocks until ctx is done, re-committing the file on change.
// Invalid edits keep the previous config and log the error.
func (m *Manager) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory: editors often replace the file atomically,
	// which drops a watch on the file itself.
	if err := w.Add(filepath.Dir(m.path)); err != nil {
		return err
	}

	var debounce *time.Timer
	reload := func() {
		cfg, err := Load(m.path)
		if err != nil {
			m.log.Warn("config reload rejected", logx.Err(err))
			return
		}
		h := hashConfig(cfg)
		m.mu.Lock()
		same := h == m.lastHash
		m.mu.Unlock()
		if same {
			return
		}
		m.commit(cfg)
		m.publish(cfg)
		m.log.Info("config reloaded", logx.String("path", m.path))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(m.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(250*time.Millisecond, reload)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.log.Warn("config watcher error", logx.Err(err))
		}
	}
}

func hashConfig(cfg *Config) uint64 {
	if cfg == nil {
		return 0
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}
