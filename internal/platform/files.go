package platform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

// Operating system constants
const (
	OSDarwin  = "darwin"
	OSWindows = "windows"
	OSLinux   = "linux"
)

// File permissions
const (
	DefaultDirPermissions = 0o755
)

// Command constants
const (
	OpenCommand     = "open"
	ExplorerCommand = "explorer"
	XDGOpenCommand  = "xdg-open"
)

// Command parameters
const (
	MacOSSelectFlag    = "-R"
	WindowsSelectParam = "/select,"
)

// RevealTimeout bounds how long a file manager launch may block
const RevealTimeout = 10 * time.Second

// AppDirName is the per-user directory name for config and data
const AppDirName = "streamgrab"

// LinuxFileManagers are tried in order when xdg-open is unavailable
var LinuxFileManagers = []string{"nautilus", "dolphin", "thunar", "nemo", "pcmanfm"}

// SkippedExtensions mark partial downloads that are never a final result
var SkippedExtensions = []string{".part", ".ytdl", ".temp"}

// MaxNameDifference is the largest length difference between two names that
// still counts as the same file after engine sanitization
const MaxNameDifference = 10

var (
	// ErrEmptyPath is returned for an empty file path
	ErrEmptyPath = errors.New("file path is empty")
	// ErrFileNotFound is returned when neither the path nor a similar file exists
	ErrFileNotFound = errors.New("file not found")
	// ErrUnsupportedOS is returned by Reveal on platforms without a file manager
	ErrUnsupportedOS = errors.New("unsupported operating system")
)

// execCommand is replaced in tests
var execCommand = exec.CommandContext

// CreateDirectoryIfNotExists creates dirPath and its parents if absent
func CreateDirectoryIfNotExists(dirPath string) error {
	if _, err := os.Stat(dirPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", dirPath, err)
	}
	if err := os.MkdirAll(dirPath, DefaultDirPermissions); err != nil {
		return fmt.Errorf("create directory %s: %w", dirPath, err)
	}
	return nil
}

// GetHomeDownloadsDir returns the standard Downloads directory for the user
func GetHomeDownloadsDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, "Downloads"), nil
}

// ConfigDir returns the per-user configuration directory of the application
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(base, AppDirName), nil
}

// DataDir returns the per-user directory for logs and the history database
func DataDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user cache directory: %w", err)
	}
	return filepath.Join(base, AppDirName), nil
}

// FindFileWithFallback returns filePath if it exists. Otherwise it looks in the
// same directory for a file with the same extension and a similar name, since
// the engine may sanitize titles differently from the computed path.
func FindFileWithFallback(filePath string) (string, error) {
	if strings.TrimSpace(filePath) == "" {
		return "", ErrEmptyPath
	}
	if _, err := os.Stat(filePath); err == nil {
		return filePath, nil
	}

	dir := filepath.Dir(filePath)
	ext := filepath.Ext(filePath)
	base := strings.TrimSuffix(filepath.Base(filePath), ext)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var candidates []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || isPartial(name) || filepath.Ext(name) != ext {
			continue
		}
		if isSimilarFileName(strings.TrimSuffix(name, ext), base) {
			candidates = append(candidates, filepath.Join(dir, name))
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, filePath)
	}
	sort.Strings(candidates)
	return candidates[0], nil
}

// isSimilarFileName reports whether two names differ only by engine
// sanitization or truncation
func isSimilarFileName(name1, name2 string) bool {
	clean1 := strings.TrimSpace(name1)
	clean2 := strings.TrimSpace(name2)
	if clean1 == clean2 {
		return true
	}
	if normalize(clean1) == normalize(clean2) {
		return true
	}
	if strings.Contains(clean1, clean2) || strings.Contains(clean2, clean1) {
		diff := len(clean1) - len(clean2)
		if diff < 0 {
			diff = -diff
		}
		return diff <= MaxNameDifference
	}
	return false
}

// normalize folds separators yt-dlp substitutes when restricting filenames
func normalize(name string) string {
	return strings.ToLower(strings.NewReplacer("_", " ", "-", " ", "  ", " ").Replace(name))
}

func isPartial(name string) bool {
	for _, ext := range SkippedExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// OpenFileInManager reveals filePath in the system file manager
func OpenFileInManager(ctx context.Context, filePath string) error {
	foundPath, err := FindFileWithFallback(filePath)
	if err != nil {
		return fmt.Errorf("file does not exist: %w", err)
	}
	absPath, err := filepath.Abs(foundPath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, RevealTimeout)
	defer cancel()

	switch runtime.GOOS {
	case OSDarwin:
		return execCommand(ctx, OpenCommand, MacOSSelectFlag, absPath).Run()
	case OSWindows:
		// explorer exits with status 1 even on success
		_ = execCommand(ctx, ExplorerCommand, WindowsSelectParam, absPath).Run()
		return nil
	case OSLinux:
		return openDirLinux(ctx, filepath.Dir(absPath))
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedOS, runtime.GOOS)
	}
}

// openDirLinux opens dir since file selection is not standardized on Linux
func openDirLinux(ctx context.Context, dir string) error {
	if err := execCommand(ctx, XDGOpenCommand, dir).Run(); err == nil {
		return nil
	}
	for _, fm := range LinuxFileManagers {
		if _, err := exec.LookPath(fm); err == nil {
			return execCommand(ctx, fm, dir).Run()
		}
	}
	return errors.New("no suitable file manager found")
}
