// Package registry persists the table of running preview instances.
//
// The registry is shared between every mdview process on the machine: the
// CLI reads it for list/stop, and each daemon writes its own entry on
// startup and removes it on shutdown. All file access goes through an
// explicit load/mutate/save cycle guarded by OS advisory locks; nothing is
// cached in memory beyond one operation.
package registry

import (
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Version is the current state file schema version.
const Version = 1

var (
	// ErrNoDataDir means the per-user data directory could not be determined.
	ErrNoDataDir = errors.New("registry: could not determine data directory")

	// ErrLockFailed means the advisory lock on the state file could not be
	// acquired. There is no retry; concurrent invocations surface this to
	// the user.
	ErrLockFailed = errors.New("registry: failed to lock state file")
)

// Instance describes one running background preview. Instances are
// immutable once registered; they are only ever added and removed whole.
type Instance struct {
	PID       int       `json:"pid"`
	Port      int       `json:"port"`
	FilePath  string    `json:"file_path"`
	StartedAt time.Time `json:"started_at"`
	LogFile   string    `json:"log_file"`
}

// Registry is the persisted mapping from canonical file path to Instance.
// At most one live instance exists per canonical path; entries whose pid is
// dead are stale and treated as absent by liveness checks.
type Registry struct {
	Version   int                 `json:"version"`
	Instances map[string]Instance `json:"instances"`
}

// New returns an empty registry at the current schema version.
func New() *Registry {
	return &Registry{
		Version:   Version,
		Instances: make(map[string]Instance),
	}
}

// Add inserts an instance keyed by its canonical file path.
func (r *Registry) Add(inst Instance) {
	if r.Instances == nil {
		r.Instances = make(map[string]Instance)
	}
	r.Instances[inst.FilePath] = inst
}

// Remove deletes the entry for path and reports whether it existed.
func (r *Registry) Remove(path string) (Instance, bool) {
	inst, ok := r.Instances[path]
	if ok {
		delete(r.Instances, path)
	}
	return inst, ok
}

// Get looks up the entry for path.
func (r *Registry) Get(path string) (Instance, bool) {
	inst, ok := r.Instances[path]
	return inst, ok
}

// CleanupStale removes every entry whose recorded process is no longer
// running and returns the removed instances. This is an in-memory pass;
// the caller saves afterward if anything was removed.
func (r *Registry) CleanupStale() []Instance {
	var removed []Instance
	for path, inst := range r.Instances {
		if !IsProcessRunning(inst.PID) {
			delete(r.Instances, path)
			removed = append(removed, inst)
		}
	}
	return removed
}

// LogFilename derives the per-instance log file name from the watched
// file's path and port: base name without extension, non [A-Za-z0-9_-]
// runes each replaced by '_', truncated to 50 runes, then "-{port}.log".
func LogFilename(path string, port int) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if stem == "" {
		stem = "unknown"
	}

	var b strings.Builder
	n := 0
	for _, c := range stem {
		if n >= 50 {
			break
		}
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
		n++
	}
	return b.String() + "-" + strconv.Itoa(port) + ".log"
}
