package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lpernett/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "VISUAL_ASSERT_"

// Recognition backends.
const (
	BackendGCV      = "gcv"
	BackendOllama   = "ollama"
	BackendLlamaCpp = "llamacpp"
	BackendLocal    = "local"
)

// Config holds the application configuration
type Config struct {
	Diff        DiffConfig        `json:"diff"`
	Reference   ReferenceConfig   `json:"reference"`
	Recognition RecognitionConfig `json:"recognition"`
	OCR         OCRConfig         `json:"ocr"`
	Corners     CornersConfig     `json:"corners"`
}

// DiffConfig holds configuration for pixel comparison
type DiffConfig struct {
	Threshold            float64 `json:"threshold"`
	IgnoreSizeDifference bool    `json:"ignore_size_difference"`
	ArtifactPath         string  `json:"artifact_path"`
	ArtifactFormat       string  `json:"artifact_format"`
	PassBelow            int     `json:"pass_below"`
}

// ReferenceConfig holds the reference screenshot location
type ReferenceConfig struct {
	Dir string `json:"dir"`
}

// RecognitionConfig selects and tunes the recognition engine
type RecognitionConfig struct {
	Backend      string `json:"backend"`
	URL          string `json:"url"`
	Model        string `json:"model"`
	MaxDimension int    `json:"max_dimension"`
	SendFormat   string `json:"send_format"`
	SendQuality  int    `json:"send_quality"`
	// Timeout is in seconds.
	Timeout int `json:"timeout"`
}

// OCRConfig holds configuration for local text recognition
type OCRConfig struct {
	Language string `json:"language"`
}

// CornersConfig holds configuration for corner color sampling
type CornersConfig struct {
	Size float64 `json:"size"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Diff: DiffConfig{
			Threshold:      0.1,
			ArtifactPath:   "diff.png",
			ArtifactFormat: "png",
			PassBelow:      2,
		},
		Reference: ReferenceConfig{
			Dir: "reference-screenshots",
		},
		Recognition: RecognitionConfig{
			Backend:      BackendGCV,
			URL:          "http://localhost:11434",
			Model:        "qwen2.5vl:7b",
			MaxDimension: 1536,
			SendFormat:   "jpg",
			SendQuality:  85,
			Timeout:      300,
		},
		OCR: OCRConfig{
			Language: "eng",
		},
		Corners: CornersConfig{
			Size: 10,
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Missing keys keep
// their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Load reads filename if it exists, otherwise starts from Default, then
// applies .env and environment overrides and validates the result.
func Load(filename string) (*Config, error) {
	config := Default()
	if filename != "" {
		loaded, err := LoadFromFile(filename)
		switch {
		case err == nil:
			config = loaded
		case !errors.Is(err, fs.ErrNotExist):
			return nil, err
		}
	}
	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv loads a .env file from the working directory when present and
// overrides fields from VISUAL_ASSERT_* variables.
func (c *Config) ApplyEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	var errs []error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}

	float("DIFF_THRESHOLD", &c.Diff.Threshold)
	boolean("DIFF_IGNORE_SIZE_DIFFERENCE", &c.Diff.IgnoreSizeDifference)
	str("DIFF_ARTIFACT_PATH", &c.Diff.ArtifactPath)
	str("DIFF_ARTIFACT_FORMAT", &c.Diff.ArtifactFormat)
	integer("DIFF_PASS_BELOW", &c.Diff.PassBelow)
	str("REFERENCE_DIR", &c.Reference.Dir)
	str("RECOGNITION_BACKEND", &c.Recognition.Backend)
	str("RECOGNITION_URL", &c.Recognition.URL)
	str("RECOGNITION_MODEL", &c.Recognition.Model)
	integer("RECOGNITION_MAX_DIMENSION", &c.Recognition.MaxDimension)
	str("RECOGNITION_SEND_FORMAT", &c.Recognition.SendFormat)
	integer("RECOGNITION_SEND_QUALITY", &c.Recognition.SendQuality)
	integer("RECOGNITION_TIMEOUT", &c.Recognition.Timeout)
	str("OCR_LANGUAGE", &c.OCR.Language)
	float("CORNERS_SIZE", &c.Corners.Size)

	return errors.Join(errs...)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if !(c.Diff.Threshold >= 0 && c.Diff.Threshold <= 1) {
		return fmt.Errorf("diff.threshold must be between 0 and 1")
	}

	if c.Diff.PassBelow < 1 {
		return fmt.Errorf("diff.pass_below must be positive")
	}

	switch strings.ToLower(c.Diff.ArtifactFormat) {
	case "png", "webp":
	default:
		return fmt.Errorf("diff.artifact_format must be png or webp")
	}

	if c.Reference.Dir == "" {
		return fmt.Errorf("reference.dir cannot be empty")
	}

	switch c.Recognition.Backend {
	case BackendGCV, BackendLocal:
	case BackendOllama, BackendLlamaCpp:
		if c.Recognition.URL == "" {
			return fmt.Errorf("recognition.url is required for the %s backend", c.Recognition.Backend)
		}
		if c.Recognition.Model == "" && c.Recognition.Backend == BackendOllama {
			return fmt.Errorf("recognition.model is required for the ollama backend")
		}
	default:
		return fmt.Errorf("recognition.backend must be one of gcv, ollama, llamacpp, local")
	}

	if c.Recognition.SendQuality < 1 || c.Recognition.SendQuality > 100 {
		return fmt.Errorf("recognition.send_quality must be between 1 and 100")
	}

	if c.Recognition.MaxDimension < 0 {
		return fmt.Errorf("recognition.max_dimension cannot be negative")
	}

	if c.Recognition.Timeout < 1 {
		return fmt.Errorf("recognition.timeout must be positive")
	}

	if c.Corners.Size <= 0 {
		return fmt.Errorf("corners.size must be positive")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "visual-assert", "config.json")
}
