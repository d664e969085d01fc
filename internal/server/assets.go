package server

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Image suffixes the router recognizes as static assets. Everything else
// falls through to the page handler.
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".svg":  true,
	".webp": true,
	".bmp":  true,
	".ico":  true,
}

func isImagePath(urlPath string) bool {
	return imageExts[strings.ToLower(path.Ext(urlPath))]
}

// errEscapesBase marks a request whose resolved path left the sandbox.
// It is answered exactly like a missing file so a remote client cannot
// tell "blocked" from "absent", but it is logged and counted separately.
var errEscapesBase = errors.New("server: asset path escapes base directory")

// resolveAsset maps a URL path onto a file under the watched file's
// directory. Both the candidate and the base are fully resolved (symlinks
// and relative segments included) before the containment check, and only
// existing regular files pass.
func (e *Engine) resolveAsset(urlPath string) (string, error) {
	rel := strings.TrimPrefix(urlPath, "/")
	if rel == "" {
		return "", errors.New("server: empty asset path")
	}
	// NUL can arrive via %00; backslashes are platform-separator tricks.
	if strings.IndexByte(rel, 0) != -1 || strings.Contains(rel, "\\") {
		return "", errEscapesBase
	}

	base, err := filepath.EvalSymlinks(e.opts.BaseDir)
	if err != nil {
		return "", err
	}

	candidate, err := filepath.EvalSymlinks(filepath.Join(base, filepath.FromSlash(rel)))
	if err != nil {
		// Missing files surface here; traversal targets that do exist are
		// caught by the containment check below.
		return "", err
	}

	if candidate != base && !strings.HasPrefix(candidate, base+string(os.PathSeparator)) {
		return "", errEscapesBase
	}

	info, err := os.Stat(candidate)
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", errors.New("server: asset is not a regular file")
	}
	return candidate, nil
}

// handleAsset streams an image file from the sandbox. Missing or rejected
// paths are 404s; a file that resolves but cannot be read is a 500.
func (e *Engine) handleAsset(w http.ResponseWriter, r *http.Request) {
	resolved, err := e.resolveAsset(r.URL.Path)
	if err != nil {
		if errors.Is(err, errEscapesBase) {
			e.metrics.BlockedTraversals.Inc()
			e.logger.Warn("blocked asset traversal attempt", "path", r.URL.Path, "remote", r.RemoteAddr)
		}
		http.NotFound(w, r)
		return
	}

	f, err := os.Open(resolved)
	if err != nil {
		e.logger.Error("asset open failed", "path", resolved, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	ct := mime.TypeByExtension(strings.ToLower(path.Ext(resolved)))
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")

	if _, err := io.Copy(w, f); err != nil {
		// Client went away mid-stream; nothing to do.
		e.logger.Debug("asset write aborted", "path", resolved, "error", err)
	}
}
