// SPDX-License-Identifier: MIT
package artwork

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	applog "github.com/MaveDX/Bard/internal/log"
)

// Loose art files checked in a song's directory, in priority order.
var coverNames = []string{
	"cover.jpg", "cover.png",
	"folder.jpg", "folder.png",
	"albumart.jpg", "albumart.png",
}

// tempArtPrefix names intermediate extraction files in the OS temp dir so
// CleanStale can find leftovers from crashed runs.
const tempArtPrefix = "bard_art_"

// ErrNoArtwork means no cover could be found for a track by any strategy.
var ErrNoArtwork = errors.New("artwork: no cover found")

// Resolver locates cover art for songs and caches results, both on disk
// (extracted/copied images keyed by the song's relative path) and in memory
// (resolution outcomes, including misses).
type Resolver struct {
	musicDir string
	cacheDir string
	decoder  string // Decoder executable used for embedded art extraction.

	mu    sync.Mutex
	known map[string]string // Relative song path -> art path; "" records a miss.
}

// NewResolver creates a Resolver rooted at musicDir, caching under cacheDir,
// using the given decoder executable for embedded artwork.
func NewResolver(musicDir, cacheDir, decoder string) *Resolver {
	return &Resolver{
		musicDir: musicDir,
		cacheDir: cacheDir,
		decoder:  decoder,
		known:    make(map[string]string),
	}
}

// Resolve returns the on-disk path of the cover image for songPath (relative
// to the music dir), or false when no art can be found. Results are memoized
// for the life of the Resolver.
func (r *Resolver) Resolve(songPath string) (string, bool) {
	r.mu.Lock()
	if cached, ok := r.known[songPath]; ok {
		r.mu.Unlock()
		return cached, cached != ""
	}
	r.mu.Unlock()

	// Resolution touches the filesystem and may spawn the decoder; keep it
	// outside the critical section.
	result := r.resolve(songPath)

	r.mu.Lock()
	r.known[songPath] = result
	r.mu.Unlock()
	return result, result != ""
}

func (r *Resolver) resolve(songPath string) string {
	diskCachePath := filepath.Join(r.cacheDir, safeCacheName(songPath)+".jpg")

	// 1) On-disk cache from a previous run.
	if _, err := os.Stat(diskCachePath); err == nil {
		return diskCachePath
	}

	songFullPath := filepath.Join(r.musicDir, songPath)
	songDir := filepath.Dir(songFullPath)

	// 2) Loose art files next to the song.
	for _, name := range coverNames {
		artPath := filepath.Join(songDir, name)
		if _, err := os.Stat(artPath); err != nil {
			continue
		}
		if err := os.MkdirAll(r.cacheDir, 0755); err != nil {
			return artPath // Cache miss is fine; the loose file still serves.
		}
		if err := copyFile(artPath, diskCachePath); err != nil {
			applog.Debugf("artwork: caching %s failed: %v", artPath, err)
			return artPath
		}
		return diskCachePath
	}

	// 3) Embedded art extracted through the decoder.
	if err := os.MkdirAll(r.cacheDir, 0755); err != nil {
		return ""
	}
	if err := r.extractEmbedded(songFullPath, diskCachePath); err != nil {
		applog.Debugf("artwork: no embedded art in %s: %v", songPath, err)
		return ""
	}
	return diskCachePath
}

// extractEmbedded pulls the first attached picture out of an audio file by
// asking the decoder for a single video frame. It goes through a temp file so
// a failed extraction never leaves a truncated image in the cache.
func (r *Resolver) extractEmbedded(songPath, destPath string) error {
	tmp, err := os.CreateTemp("", tempArtPrefix+"*.jpg")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	cmd := exec.Command(r.decoder,
		"-i", songPath,
		"-an",
		"-vcodec", "mjpeg",
		"-vframes", "1",
		"-f", "image2",
		"-v", "quiet",
		"-y", tmpPath,
	)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("decoder: %w", err)
	}

	info, err := os.Stat(tmpPath)
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("decoder produced no image")
	}
	return copyFile(tmpPath, destPath)
}

// CleanStale removes leftover extraction temp files from previous runs and
// makes sure the cache directory exists. Failures are ignored; this is
// housekeeping, not setup.
func (r *Resolver) CleanStale() {
	entries, err := os.ReadDir(os.TempDir())
	if err == nil {
		for _, entry := range entries {
			name := entry.Name()
			if strings.HasPrefix(name, tempArtPrefix) && strings.HasSuffix(name, ".jpg") {
				os.Remove(filepath.Join(os.TempDir(), name))
			}
		}
	}
	if err := os.MkdirAll(r.cacheDir, 0755); err != nil {
		applog.Debugf("artwork: cache dir %s: %v", r.cacheDir, err)
	}
}

// safeCacheName derives a deterministic flat filename from a song's relative
// path.
func safeCacheName(songPath string) string {
	return strings.NewReplacer("/", "_", " ", "_").Replace(songPath)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
