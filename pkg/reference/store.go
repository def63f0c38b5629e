package reference

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/menta2k/visual-assert/internal/utils"
)

// Store loads and saves reference screenshots from a directory
type Store struct {
	config Config
}

// Config holds configuration for the reference store
type Config struct {
	Dir              string
	SupportedFormats []string
}

// New creates a new Store with default configuration
func New() *Store {
	return &Store{
		config: Config{
			Dir:              "reference-screenshots",
			SupportedFormats: []string{"png", "jpeg", "webp"},
		},
	}
}

// NewWithConfig creates a new Store with custom configuration
func NewWithConfig(config Config) *Store {
	return &Store{config: config}
}

// Config returns a copy of the store configuration
func (s *Store) Config() Config {
	cfg := s.config
	cfg.SupportedFormats = append([]string(nil), s.config.SupportedFormats...)
	return cfg
}

// Dir returns the reference directory
func (s *Store) Dir() string {
	return s.config.Dir
}

// Path returns the full path of a named reference screenshot
func (s *Store) Path(name string) string {
	return filepath.Join(s.config.Dir, utils.SanitizeFilename(name))
}

// Load reads the raw bytes of a reference screenshot and checks that it
// decodes as one of the supported formats
func (s *Store) Load(name string) ([]byte, error) {
	path := s.Path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference screenshot %s: %w", name, err)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode reference screenshot %s: %w", name, err)
	}
	if !s.isFormatSupported(format) {
		return nil, fmt.Errorf("unsupported image format: %s", format)
	}

	return data, nil
}

// Save writes a screenshot buffer under the given name, creating the
// reference directory if needed
func (s *Store) Save(name string, data []byte) error {
	if err := utils.EnsureDir(s.config.Dir); err != nil {
		return fmt.Errorf("failed to create reference directory: %w", err)
	}
	if err := os.WriteFile(s.Path(name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write reference screenshot: %w", err)
	}
	return nil
}

// Exists reports whether a reference screenshot with that name exists
func (s *Store) Exists(name string) bool {
	return utils.FileExists(s.Path(name))
}

// List returns the names of all image files in the reference directory
func (s *Store) List() ([]string, error) {
	files, err := utils.ListImageFiles(s.config.Dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(s.config.Dir, f)
		if err != nil {
			rel = filepath.Base(f)
		}
		names = append(names, rel)
	}
	return names, nil
}

func (s *Store) isFormatSupported(format string) bool {
	for _, supported := range s.config.SupportedFormats {
		if strings.EqualFold(format, supported) {
			return true
		}
	}
	return false
}
