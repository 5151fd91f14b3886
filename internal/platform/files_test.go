package platform

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
)

func TestCreateDirectoryIfNotExists(t *testing.T) {
	tempDir := t.TempDir()
	testDir := filepath.Join(tempDir, "a", "b")

	if _, err := os.Stat(testDir); !os.IsNotExist(err) {
		t.Fatalf("Test directory already exists: %s", testDir)
	}

	if err := CreateDirectoryIfNotExists(testDir); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if _, err := os.Stat(testDir); err != nil {
		t.Fatalf("Directory was not created: %s", testDir)
	}

	// Second call should not fail
	if err := CreateDirectoryIfNotExists(testDir); err != nil {
		t.Fatalf("Failed to handle existing directory: %v", err)
	}
}

func TestCreateDirectoryIfNotExists_FileInTheWay(t *testing.T) {
	tempDir := t.TempDir()
	blocker := filepath.Join(tempDir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CreateDirectoryIfNotExists(filepath.Join(blocker, "sub")); err == nil {
		t.Error("Expected error when a file blocks the path, got nil")
	}
}

func TestGetHomeDownloadsDir(t *testing.T) {
	downloadsDir, err := GetHomeDownloadsDir()
	if err != nil {
		t.Fatalf("Failed to get downloads directory: %v", err)
	}
	if filepath.Base(downloadsDir) != "Downloads" {
		t.Errorf("Expected directory to end with 'Downloads', got: %s", downloadsDir)
	}
}

func TestAppDirs(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_CACHE_HOME", "")

	for name, fn := range map[string]func() (string, error){"config": ConfigDir, "data": DataDir} {
		dir, err := fn()
		if err != nil {
			t.Fatalf("%s dir: %v", name, err)
		}
		if filepath.Base(dir) != AppDirName {
			t.Errorf("%s dir should end with %q, got %s", name, AppDirName, dir)
		}
	}
}

func TestFindFileWithFallback_ExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video.mp4")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	foundPath, err := FindFileWithFallback(path)
	if err != nil {
		t.Fatalf("Failed to find existing file: %v", err)
	}
	if foundPath != path {
		t.Errorf("Expected path %s, got %s", path, foundPath)
	}
}

func TestFindFileWithFallback_SimilarFileName(t *testing.T) {
	tempDir := t.TempDir()
	similarPath := filepath.Join(tempDir, "My_Video_Title.mp4")
	if err := os.WriteFile(similarPath, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	// partial files are never returned
	if err := os.WriteFile(filepath.Join(tempDir, "My Video Title.mp4.part"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	foundPath, err := FindFileWithFallback(filepath.Join(tempDir, "My Video Title.mp4"))
	if err != nil {
		t.Fatalf("Failed to find similar file: %v", err)
	}
	if foundPath != similarPath {
		t.Errorf("Expected path %s, got %s", similarPath, foundPath)
	}
}

func TestFindFileWithFallback_NoSimilarFile(t *testing.T) {
	tempDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tempDir, "other.mp4"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tempDir, "test_video.mkv"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := FindFileWithFallback(filepath.Join(tempDir, "test_video.mp4"))
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Expected ErrFileNotFound, got %v", err)
	}
}

func TestFindFileWithFallback_EmptyPath(t *testing.T) {
	if _, err := FindFileWithFallback(" "); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("Expected ErrEmptyPath, got %v", err)
	}
}

func TestIsSimilarFileName(t *testing.T) {
	tests := []struct {
		name1, name2 string
		expected     bool
	}{
		{"test", "test", true},
		{"test", "-test", true},
		{"test", "test_", true},
		{"test", " test", true},
		{"My Video", "My_Video", true},
		{"my-video", "My Video", true},
		{"test", "other", false},
		{"test_video", "test_video_long", true},
		{"test_video_very_long_name", "test_video", false},
	}

	for _, tt := range tests {
		t.Run(tt.name1+"_"+tt.name2, func(t *testing.T) {
			result := isSimilarFileName(tt.name1, tt.name2)
			if result != tt.expected {
				t.Errorf("isSimilarFileName(%q, %q) = %v, expected %v",
					tt.name1, tt.name2, result, tt.expected)
			}
		})
	}
}

func TestOpenFileInManager_NonExistentFile(t *testing.T) {
	err := OpenFileInManager(context.Background(), filepath.Join(t.TempDir(), "nonexistent.txt"))
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Expected ErrFileNotFound, got %v", err)
	}
}

func TestOpenFileInManager_RunsFileManager(t *testing.T) {
	if runtime.GOOS != OSLinux && runtime.GOOS != OSDarwin && runtime.GOOS != OSWindows {
		t.Skip("no file manager on this platform")
	}

	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	var calls [][]string
	orig := execCommand
	execCommand = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		calls = append(calls, append([]string{name}, args...))
		// the test binary with no matching tests exits 0
		return exec.CommandContext(ctx, os.Args[0], "-test.run=^$")
	}
	t.Cleanup(func() { execCommand = orig })

	if err := OpenFileInManager(context.Background(), path); err != nil {
		t.Fatalf("OpenFileInManager failed: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("Expected one command, got %v", calls)
	}

	want := map[string]string{OSDarwin: OpenCommand, OSWindows: ExplorerCommand, OSLinux: XDGOpenCommand}[runtime.GOOS]
	if calls[0][0] != want {
		t.Errorf("Expected %s, got %s", want, calls[0][0])
	}
}
