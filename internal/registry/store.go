package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const (
	stateFileName = "instances.json"
	logsDirName   = "logs"
)

// Store binds registry operations to a data directory on disk.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. An empty dir resolves to the
// per-user default (see DefaultDataDir).
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		var err error
		dir, err = DefaultDataDir()
		if err != nil {
			return nil, err
		}
	}
	return &Store{dir: dir}, nil
}

// DefaultDataDir returns the per-user application data directory for mdview.
func DefaultDataDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoDataDir, err)
	}
	return filepath.Join(base, "mdview"), nil
}

// Dir returns the store's data directory.
func (s *Store) Dir() string { return s.dir }

// StatePath returns the path of the registry state file.
func (s *Store) StatePath() string { return filepath.Join(s.dir, stateFileName) }

// LogsDir returns the directory holding per-instance log files.
func (s *Store) LogsDir() string { return filepath.Join(s.dir, logsDirName) }

// LogPath returns the log file path for the given watched file and port.
func (s *Store) LogPath(filePath string, port int) string {
	return filepath.Join(s.LogsDir(), LogFilename(filePath, port))
}

// ensureDirs creates the data and logs directories if needed.
func (s *Store) ensureDirs() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("registry: create data dir: %w", err)
	}
	if err := os.MkdirAll(s.LogsDir(), 0o755); err != nil {
		return fmt.Errorf("registry: create logs dir: %w", err)
	}
	return nil
}

// Load reads the registry from disk under a shared advisory lock.
//
// A missing state file yields an empty default. Unparsable content is
// non-fatal: the corrupt file is renamed aside with a ".bak" suffix and a
// fresh empty registry is returned, so one bad write never bricks the CLI.
func (s *Store) Load() (*Registry, error) {
	if err := s.ensureDirs(); err != nil {
		return nil, err
	}

	path := s.StatePath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(), nil
	}

	lock := flock.New(path)
	locked, err := lock.TryRLock()
	if err != nil || !locked {
		return nil, ErrLockFailed
	}
	data, readErr := os.ReadFile(path)
	if unlockErr := lock.Unlock(); unlockErr != nil && readErr == nil {
		return nil, ErrLockFailed
	}
	if readErr != nil {
		return nil, fmt.Errorf("registry: read state file: %w", readErr)
	}

	reg := New()
	if err := json.Unmarshal(data, reg); err != nil {
		backup := path + ".bak"
		os.Rename(path, backup)
		fmt.Fprintf(os.Stderr, "Warning: state file was corrupted, backed up to %s\n", backup)
		return New(), nil
	}
	if reg.Instances == nil {
		reg.Instances = make(map[string]Instance)
	}
	return reg, nil
}

// Save writes the registry to disk under an exclusive advisory lock,
// truncating any previous content. Lock acquisition failure is reported,
// never silently skipped.
func (s *Store) Save(reg *Registry) error {
	if err := s.ensureDirs(); err != nil {
		return err
	}

	path := s.StatePath()
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil || !locked {
		return ErrLockFailed
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("registry: encode state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("registry: write state file: %w", err)
	}
	return nil
}
