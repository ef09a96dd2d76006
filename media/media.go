// Package media finds recordings on disk and identifies them.
package media

import (
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"lukechampine.com/blake3"

	"github.com/kbukum/lifescribe/errors"
)

// DefaultExtensions are the container and codec extensions ffmpeg can
// decode that a recorder is likely to produce.
var DefaultExtensions = []string{
	"3gp", "aac", "ac3", "aiff", "alac", "amr", "asf", "avi", "caf", "dts",
	"dv", "eac3", "flac", "flv", "gif", "gxf", "h261", "h263", "h264", "hevc",
	"m4a", "m4v", "matroska", "mjpeg", "mkv", "mov", "mp2", "mp3", "mp4", "mpeg",
	"mpeg2", "mpegts", "mts", "ogg", "ogv", "rm", "rmvb", "swf", "ts", "vob",
	"wav", "webm", "wma", "wmv", "yuv",
}

// Discover lists the media files directly inside dir whose extension is in
// extensions, compared case-insensitively. Subdirectories are not entered.
// Nil extensions means DefaultExtensions. The result is sorted.
func Discover(dir string, extensions []string) ([]string, error) {
	if extensions == nil {
		extensions = DefaultExtensions
	}
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.InvalidInput("dir", err.Error()).WithCause(err)
	}

	files := []string{}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(e.Name()), "."))
		if allowed[ext] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// Hash returns the hex BLAKE3-256 digest of r.
func Hash(r io.Reader) (string, error) {
	h := blake3.New(32, nil)
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashFile returns the hex BLAKE3-256 digest of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.InvalidInput("path", err.Error()).WithCause(err)
	}
	defer f.Close()

	sum, err := Hash(f)
	if err != nil {
		return "", errors.StorageError("hash", err)
	}
	return sum, nil
}

// ProbeDuration returns the length of a WAV file. Other formats report
// INVALID_FORMAT; callers fall back to the transcript's last timestamp.
func ProbeDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.InvalidInput("path", err.Error()).WithCause(err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return 0, errors.InvalidFormat("path", "wav")
	}
	dur, err := d.Duration()
	if err != nil {
		return 0, errors.InvalidFormat("path", "wav").WithCause(err)
	}
	return dur, nil
}
