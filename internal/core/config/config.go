package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/guiyumin/bgscribe/internal/core/crypto"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName = "config.yml"
	AppDirName     = "bgscribe"

	DefaultOutputDir    = "transcripts"
	DefaultAudioDir     = "audio_segments"
	DefaultChunkMinutes = 3.07
	DefaultLanguageTag  = "bg-BG"
	DefaultProvider     = "openai"
	DefaultCalibration  = 200 * time.Millisecond
)

var (
	// ErrNoAPIKey is returned when a provider needs a key and none is configured.
	ErrNoAPIKey = errors.New("no API key configured")

	// ErrPINRequired is returned when only an encrypted key exists and no PIN was given.
	ErrPINRequired = errors.New("API key is encrypted, PIN required")
)

// ConfigDir returns the standard config directory for bgscribe.
// Windows: %APPDATA%\bgscribe\
// macOS/Linux: ~/.config/bgscribe/
func ConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, AppDirName), nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppDirName), nil
}

// ConfigPath returns the path to the config file.
// e.g., ~/.config/bgscribe/config.yml
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

type Config struct {
	// Language of console messages and report labels ("bg", "en")
	Language string `yaml:"language,omitempty" env:"BGSCRIBE_LANGUAGE"`

	// Directory for transcripts and generated segments
	OutputDir string `yaml:"output_dir,omitempty" env:"BGSCRIBE_OUTPUT_DIR"`

	// Default folder for folder mode
	AudioDir string `yaml:"audio_dir,omitempty" env:"BGSCRIBE_AUDIO_DIR"`

	// Segment length for large-file mode, in minutes
	ChunkMinutes float64 `yaml:"chunk_minutes,omitempty" env:"BGSCRIBE_CHUNK_MINUTES"`

	// Where temporary conversion files go (default: system temp dir)
	TempDir string `yaml:"temp_dir,omitempty" env:"BGSCRIBE_TEMP_DIR"`

	// debug, info, warn, error
	LogLevel string `yaml:"log_level,omitempty" env:"BGSCRIBE_LOG_LEVEL"`

	Recognition   RecognitionConfig   `yaml:"recognition,omitempty"`
	Summarization SummarizationConfig `yaml:"summarization,omitempty"`

	// PIN decrypts stored API keys. Never written to disk.
	PIN string `yaml:"-" env:"BGSCRIBE_PIN"`
}

// RecognitionConfig selects and configures the speech-recognition backend.
type RecognitionConfig struct {
	// openai, compatible, google
	Provider string `yaml:"provider,omitempty" env:"BGSCRIBE_PROVIDER"`

	// BCP-47 language tag sent to the recognizer (e.g. "bg-BG")
	Language string `yaml:"language,omitempty" env:"BGSCRIBE_RECOGNITION_LANGUAGE"`

	Model   string `yaml:"model,omitempty" env:"BGSCRIBE_MODEL"`
	BaseURL string `yaml:"base_url,omitempty" env:"BGSCRIBE_BASE_URL"`

	// Per-request timeout, 0 means no extra limit
	Timeout time.Duration `yaml:"timeout,omitempty" env:"BGSCRIBE_TIMEOUT"`

	// Ambient-noise calibration window consumed before recognition
	Calibration time.Duration `yaml:"calibration,omitempty" env:"BGSCRIBE_CALIBRATION"`

	APIKeyEncrypted string `yaml:"api_key_encrypted,omitempty"`
	APIKey          string `yaml:"-" env:"BGSCRIBE_API_KEY"`
}

// SummarizationConfig configures the optional summary artifact.
type SummarizationConfig struct {
	Enabled bool `yaml:"enabled,omitempty" env:"BGSCRIBE_SUMMARIZE"`

	// openai, anthropic
	Provider string `yaml:"provider,omitempty" env:"BGSCRIBE_SUMMARY_PROVIDER"`
	Model    string `yaml:"model,omitempty" env:"BGSCRIBE_SUMMARY_MODEL"`
	BaseURL  string `yaml:"base_url,omitempty" env:"BGSCRIBE_SUMMARY_BASE_URL"`

	APIKeyEncrypted string `yaml:"api_key_encrypted,omitempty"`
	APIKey          string `yaml:"-" env:"BGSCRIBE_SUMMARY_API_KEY"`
}

// NeedsAPIKey reports whether the provider refuses to run without a key.
// OpenAI-compatible servers are often local and unauthenticated.
func (r RecognitionConfig) NeedsAPIKey() bool {
	return r.Provider != "compatible"
}

// ResolveAPIKey returns the plaintext recognition key, decrypting the stored one with pin.
func (r RecognitionConfig) ResolveAPIKey(pin string) (string, error) {
	return resolveKey(r.APIKey, r.APIKeyEncrypted, pin)
}

// ResolveAPIKey returns the plaintext summarization key.
func (s SummarizationConfig) ResolveAPIKey(pin string) (string, error) {
	return resolveKey(s.APIKey, s.APIKeyEncrypted, pin)
}

func resolveKey(plain, encrypted, pin string) (string, error) {
	if plain != "" {
		return plain, nil
	}
	if encrypted == "" {
		return "", ErrNoAPIKey
	}
	if pin == "" {
		return "", ErrPINRequired
	}
	key, err := crypto.Decrypt(encrypted, pin)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt API key: %w", err)
	}
	return key, nil
}

// ChunkDuration returns the configured segment length.
func (c *Config) ChunkDuration() time.Duration {
	return MinutesToDuration(c.ChunkMinutes)
}

// MinutesToDuration converts fractional minutes, rounding to the millisecond.
func MinutesToDuration(minutes float64) time.Duration {
	return time.Duration(minutes*60*1000+0.5) * time.Millisecond
}

// Validate checks values that would make a run fail late.
func (c *Config) Validate() error {
	if !(c.ChunkMinutes > 0) || math.IsInf(c.ChunkMinutes, 0) {
		return fmt.Errorf("chunk_minutes must be positive, got %v", c.ChunkMinutes)
	}
	switch c.Recognition.Provider {
	case "openai", "compatible", "google":
	default:
		return fmt.Errorf("unsupported recognition provider: %s", c.Recognition.Provider)
	}
	if c.Recognition.Provider == "compatible" && c.Recognition.BaseURL == "" {
		return fmt.Errorf("recognition provider 'compatible' requires base_url")
	}
	if c.Summarization.Enabled {
		switch c.Summarization.Provider {
		case "openai", "anthropic":
		default:
			return fmt.Errorf("unsupported summarization provider: %s", c.Summarization.Provider)
		}
	}
	return nil
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Language:     "bg",
		OutputDir:    DefaultOutputDir,
		AudioDir:     DefaultAudioDir,
		ChunkMinutes: DefaultChunkMinutes,
		LogLevel:     "warn",
		Recognition: RecognitionConfig{
			Provider:    DefaultProvider,
			Language:    DefaultLanguageTag,
			Calibration: DefaultCalibration,
		},
		Summarization: SummarizationConfig{
			Provider: "openai",
		},
	}
}

// Exists checks if config file exists
func Exists() bool {
	path, err := ConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Load reads the config from ~/.config/bgscribe/config.yml
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads a config file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %w", err)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.OutputDir = expandPath(cfg.OutputDir)
	cfg.AudioDir = expandPath(cfg.AudioDir)
	cfg.TempDir = expandPath(cfg.TempDir)

	return cfg, nil
}

// ApplyEnv loads envFile (if present) and overlays BGSCRIBE_* variables.
// Variables already set in the process environment win over the file.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if err := env.Parse(c); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	c.OutputDir = expandPath(c.OutputDir)
	c.AudioDir = expandPath(c.AudioDir)
	c.TempDir = expandPath(c.TempDir)
	return nil
}

// expandPath expands the tilde (~) in the path to the user's home directory.
// Both "~/" and "~\" are accepted so configs travel between platforms.
func expandPath(path string) string {
	if path == "" {
		return ""
	}

	if strings.HasPrefix(path, "~") {
		if len(path) == 1 || path[1] == '/' || path[1] == '\\' {
			home, err := os.UserHomeDir()
			if err == nil {
				subPath := path[1:]
				if len(subPath) > 0 && (subPath[0] == '/' || subPath[0] == '\\') {
					subPath = subPath[1:]
				}
				return filepath.Join(home, subPath)
			}
		}
	}

	return path
}

// Save writes the config to ~/.config/bgscribe/config.yml
func Save(cfg *Config) error {
	configPath, err := ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	return SaveFile(cfg, configPath)
}

// SaveFile writes the config to path, creating parent directories.
func SaveFile(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	header := "# bgscribe configuration file\n# Run 'bgscribe init' to regenerate with defaults\n\n"
	content := header + string(data)

	// API keys may be in here, encrypted or not
	return os.WriteFile(path, []byte(content), 0600)
}

// SavePath returns the path where config will be saved
func SavePath() string {
	if path, err := ConfigPath(); err == nil {
		return path
	}
	return ConfigFileName
}

// LoadOrDefault loads the config file, or returns defaults when there is
// none. A file that exists but cannot be read or parsed is an error.
func LoadOrDefault() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFileOrDefault(path)
}

// LoadFileOrDefault is LoadOrDefault for an explicit path.
func LoadFileOrDefault(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
