package generator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/repo-generator/internal/logger"
)

// MarkerFilename marks an output directory that a generator is writing to.
const MarkerFilename = ".repo-generator.lock"

// markerFileMode is the mode of the marker file.
const markerFileMode = 0o644

// errBuildInProgress indicates another live generator holds the marker.
var errBuildInProgress = errors.New("another generator is building into this directory")

// buildMarker is a held marker file.
type buildMarker struct {
	path string
}

// acquireMarker creates the marker in outputDir. A marker left by a process
// that is gone, or by this process, is reclaimed.
func acquireMarker(ctx context.Context, outputDir string) (*buildMarker, error) {
	path := filepath.Join(outputDir, MarkerFilename)

	if owner, ok := readMarkerOwner(path); ok {
		if isGeneratorRunning(ctx, owner) {
			return nil, fmt.Errorf("%w: pid %d", errBuildInProgress, owner)
		}

		logger.InfoKV(ctx, "Reclaiming stale build marker", "pid", owner)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale marker: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, markerFileMode)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, errBuildInProgress
		}

		return nil, fmt.Errorf("create marker: %w", err)
	}

	_, err = f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write marker: %w", err)
	}

	return &buildMarker{path: path}, nil
}

// release removes the marker.
func (m *buildMarker) release(ctx context.Context) {
	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "Unable to remove build marker", "path", m.path, "error", err)
	}
}

// readMarkerOwner returns the PID stored in the marker, if it holds one.
func readMarkerOwner(path string) (int, bool) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return 0, false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}

	return pid, true
}

// isGeneratorRunning reports whether pid is another live process running the same executable.
func isGeneratorRunning(ctx context.Context, pid int) bool {
	if pid == os.Getpid() {
		return false
	}

	process, err := ps.FindProcess(pid)
	if err != nil {
		// Unknown is treated as running so two builds never interleave.
		logger.WarnKV(ctx, "Unable to inspect marker owner", "pid", pid, "error", err)
		return true
	}

	if process == nil {
		return false
	}

	self, err := ps.FindProcess(os.Getpid())
	if err != nil || self == nil {
		return true
	}

	return process.Executable() == self.Executable()
}
