// Package config loads and stores user settings in a TOML or YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/ytget/streamgrab/internal/model"
	"github.com/ytget/streamgrab/internal/platform"
)

// Engine names
const (
	EngineYTDLP  = "ytdlp"
	EngineNative = "native"
)

// Default values
const (
	DefaultMaxParallel        = 2
	DefaultQuality            = model.QualityBest
	DefaultCodec              = model.CodecH264
	DefaultFilenameTemplate   = "%(title)s.%(ext)s"
	DefaultLanguage           = "system"
	DefaultEngine             = EngineYTDLP
	DefaultLogLevel           = "info"
	DefaultAutoRevealComplete = false
	DefaultFileName           = "config.toml"
	fallbackDownloadDir       = "downloads"
)

// Parallelism bounds
const (
	MinParallel = 1
	MaxParallel = 10
)

// ErrUnknownFormat is returned for config files that are neither TOML nor YAML
var ErrUnknownFormat = errors.New("unknown config file format")

// Values is the on-disk settings document
type Values struct {
	DownloadDir        string `toml:"download_directory" yaml:"download_directory"`
	MaxParallel        int    `toml:"max_parallel_downloads" yaml:"max_parallel_downloads"`
	Quality            string `toml:"quality" yaml:"quality"`
	Codec              string `toml:"codec" yaml:"codec"`
	FilenameTemplate   string `toml:"filename_template" yaml:"filename_template"`
	Language           string `toml:"app_language" yaml:"app_language"`
	Engine             string `toml:"engine" yaml:"engine"`
	YTDLPPath          string `toml:"ytdlp_path" yaml:"ytdlp_path"`
	LogDir             string `toml:"log_directory" yaml:"log_directory"`
	LogLevel           string `toml:"log_level" yaml:"log_level"`
	HistoryDB          string `toml:"history_database" yaml:"history_database"`
	AutoRevealComplete bool   `toml:"auto_reveal_on_complete" yaml:"auto_reveal_on_complete"`
}

// Settings manages application configuration backed by a file
type Settings struct {
	mu     sync.RWMutex
	path   string
	values Values
}

// DefaultPath returns the per-user config file path
func DefaultPath() (string, error) {
	dir, err := platform.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultFileName), nil
}

// Defaults returns the settings used when no file exists
func Defaults() Values {
	downloads, err := platform.GetHomeDownloadsDir()
	if err != nil {
		downloads = fallbackDownloadDir
	}
	v := Values{
		DownloadDir:        downloads,
		MaxParallel:        DefaultMaxParallel,
		Quality:            string(DefaultQuality),
		Codec:              string(DefaultCodec),
		FilenameTemplate:   DefaultFilenameTemplate,
		Language:           DefaultLanguage,
		Engine:             DefaultEngine,
		LogLevel:           DefaultLogLevel,
		AutoRevealComplete: DefaultAutoRevealComplete,
	}
	if data, err := platform.DataDir(); err == nil {
		v.LogDir = filepath.Join(data, "logs")
		v.HistoryDB = filepath.Join(data, "history.db")
	}
	return v
}

// Load reads settings from path. A missing file yields defaults; keys absent
// from the file keep their default values.
func Load(path string) (*Settings, error) {
	s := &Settings{path: path, values: Defaults()}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	switch formatOf(path) {
	case "toml":
		if _, err := toml.Decode(string(data), &s.values); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &s.values); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}

	s.values.MaxParallel = clamp(s.values.MaxParallel)
	return s, nil
}

// Save writes settings back to the file they were loaded from
func (s *Settings) Save() error {
	s.mu.RLock()
	values := s.values
	s.mu.RUnlock()

	var buf bytes.Buffer
	switch formatOf(s.path) {
	case "toml":
		if err := toml.NewEncoder(&buf).Encode(values); err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
	case "yaml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(values); err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, s.path)
	}

	if err := platform.CreateDirectoryIfNotExists(filepath.Dir(s.path)); err != nil {
		return err
	}
	if err := os.WriteFile(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", s.path, err)
	}
	return nil
}

// Path returns the backing file path
func (s *Settings) Path() string {
	return s.path
}

// Values returns a copy of all settings
func (s *Settings) Values() Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values
}

// GetDownloadDirectory returns the configured download directory
func (s *Settings) GetDownloadDirectory() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.DownloadDir
}

// SetDownloadDirectory sets the download directory
func (s *Settings) SetDownloadDirectory(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.DownloadDir = dir
}

// GetMaxParallelDownloads returns the maximum number of parallel downloads
func (s *Settings) GetMaxParallelDownloads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.MaxParallel
}

// SetMaxParallelDownloads sets the maximum number of parallel downloads
func (s *Settings) SetMaxParallelDownloads(count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.MaxParallel = clamp(count)
}

// GetQuality returns the default quality tier
func (s *Settings) GetQuality() model.Quality {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.ParseQuality(s.values.Quality)
}

// SetQuality sets the default quality tier
func (s *Settings) SetQuality(q model.Quality) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.Quality = string(q)
}

// GetCodec returns the preferred video codec
func (s *Settings) GetCodec() model.Codec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.ParseCodec(s.values.Codec)
}

// SetCodec sets the preferred video codec
func (s *Settings) SetCodec(c model.Codec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.Codec = string(c)
}

// GetFilenameTemplate returns the filename template
func (s *Settings) GetFilenameTemplate() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.values.FilenameTemplate == "" {
		return DefaultFilenameTemplate
	}
	return s.values.FilenameTemplate
}

// SetFilenameTemplate sets the filename template
func (s *Settings) SetFilenameTemplate(template string) {
	if template == "" {
		template = DefaultFilenameTemplate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.FilenameTemplate = template
}

// GetLanguage returns the configured language
func (s *Settings) GetLanguage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.values.Language == "" {
		return DefaultLanguage
	}
	return s.values.Language
}

// SetLanguage sets the application language
func (s *Settings) SetLanguage(lang string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.Language = lang
}

// GetEngine returns the fetch engine name, EngineYTDLP unless native is chosen
func (s *Settings) GetEngine() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if strings.EqualFold(s.values.Engine, EngineNative) {
		return EngineNative
	}
	return EngineYTDLP
}

// SetEngine sets the fetch engine name
func (s *Settings) SetEngine(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.Engine = name
}

// GetAutoRevealOnComplete returns whether to reveal completed downloads
func (s *Settings) GetAutoRevealOnComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.AutoRevealComplete
}

// SetAutoRevealOnComplete sets whether to reveal completed downloads
func (s *Settings) SetAutoRevealOnComplete(autoReveal bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.AutoRevealComplete = autoReveal
}

// GetLanguageOptions returns available language options
func (s *Settings) GetLanguageOptions() map[string]string {
	return map[string]string{
		"system": "System Default",
		"en":     "English",
		"ru":     "Русский",
		"pt":     "Português",
	}
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return "toml"
	case ".yaml", ".yml":
		return "yaml"
	}
	return ""
}

func clamp(count int) int {
	if count < MinParallel {
		return MinParallel
	}
	if count > MaxParallel {
		return MaxParallel
	}
	return count
}
