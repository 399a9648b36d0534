package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/gmssh-project/gmssh/pkg/logger"
	"github.com/gmssh-project/gmssh/pkg/models"
)

const (
	sessionsKey    = "sessions"
	dirPermissions = 0700
)

// Registry is the saved-session store. Records hold everything needed to
// reconnect except passwords, which are never persisted. The on-disk format
// is a YAML file owned entirely by this package; the rest of the core only
// sees whole SavedSession records.
type Registry struct {
	mu       sync.Mutex
	path     string
	sessions map[string]models.SavedSession
	logger   *logger.Logger
}

// DefaultPath returns the standard location of the session store.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".gmssh", "sessions.yaml"), nil
}

// New loads the registry at path, creating an empty one if the file does
// not exist yet.
func New(path string) (*Registry, error) {
	r := &Registry{
		path:     path,
		sessions: make(map[string]models.SavedSession),
		logger:   logger.Get(),
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return r, nil
		}
		return nil, fmt.Errorf("failed to read session store %s: %w", path, err)
	}

	var entries []models.SavedSession
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeHookFunc(time.RFC3339),
	))
	if err := v.UnmarshalKey(sessionsKey, &entries, decodeHook); err != nil {
		return nil, fmt.Errorf("failed to decode session store %s: %w", path, err)
	}
	for _, s := range entries {
		if s.Name == "" {
			continue
		}
		r.sessions[s.Name] = s
	}

	r.logger.Debugf("Loaded %d saved sessions from %s", len(r.sessions), path)
	return r, nil
}

// Get returns the saved session with the given name, if any.
func (r *Registry) Get(name string) (models.SavedSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[name]
	return s, ok
}

// Put stores or replaces a saved session and persists the store.
func (r *Registry) Put(s models.SavedSession) error {
	if s.Name == "" {
		return fmt.Errorf("saved session needs a name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.Name] = s
	return r.saveLocked()
}

// Delete removes a saved session by name. Deleting an unknown name is a
// no-op.
func (r *Registry) Delete(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[name]; !ok {
		return nil
	}
	delete(r.sessions, name)
	return r.saveLocked()
}

// List returns all saved sessions, most recently connected first, then by
// name.
func (r *Registry) List() []models.SavedSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.SavedSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].LastConnected, out[j].LastConnected
		switch {
		case ti != nil && tj != nil && !ti.Equal(*tj):
			return ti.After(*tj)
		case ti != nil && tj == nil:
			return true
		case ti == nil && tj != nil:
			return false
		default:
			return out[i].Name < out[j].Name
		}
	})
	return out
}

// MarkConnected stamps a saved session's last-connected time. Unknown names
// are ignored so quick connects don't pollute the store.
func (r *Registry) MarkConnected(name string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[name]
	if !ok {
		r.logger.Debugf("No saved session %q to stamp", name)
		return nil
	}
	s.LastConnected = &at
	r.sessions[name] = s
	return r.saveLocked()
}

func (r *Registry) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(r.path), dirPermissions); err != nil {
		return fmt.Errorf("failed to create session store directory: %w", err)
	}

	names := make([]string, 0, len(r.sessions))
	for name := range r.sessions {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		s := r.sessions[name]
		entry := map[string]interface{}{
			"name":      s.Name,
			"host":      s.Host,
			"port":      s.Port,
			"username":  s.Username,
			"key_file":  s.KeyFile,
			"timeout":   s.Timeout,
			"keepalive": s.Keepalive,
		}
		if s.LastConnected != nil {
			entry["last_connected"] = s.LastConnected.Format(time.RFC3339)
		}
		entries = append(entries, entry)
	}

	v := viper.New()
	v.SetConfigFile(r.path)
	v.SetConfigType("yaml")
	v.Set(sessionsKey, entries)
	if err := v.WriteConfigAs(r.path); err != nil {
		return fmt.Errorf("failed to write session store %s: %w", r.path, err)
	}
	return nil
}
