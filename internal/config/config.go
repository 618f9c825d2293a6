package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	ScratchDir string `toml:"scratch_dir"`
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
}

// Server contains HTTP daemon settings. Tokens maps bearer credentials to
// user ids and acts as the identity collaborator.
type Server struct {
	Bind   string           `toml:"bind"`
	Tokens map[string]int64 `toml:"tokens"`
}

// Tools names the external transform executables.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	Magick  string `toml:"magick"`
	Soffice string `toml:"soffice"`
	Rembg   string `toml:"rembg"`
	FFprobe string `toml:"ffprobe"`
}

// Engine contains worker pool sizing and per-category item timeouts (seconds).
type Engine struct {
	Workers           int  `toml:"workers"`
	ImageTimeout      int  `toml:"image_timeout"`
	VideoTimeout      int  `toml:"video_timeout"`
	GifTimeout        int  `toml:"gif_timeout"`
	DocumentTimeout   int  `toml:"document_timeout"`
	BackgroundTimeout int  `toml:"background_timeout"`
	VerifyOutputs     bool `toml:"verify_outputs"`
}

// Limits holds the per-category batch ceilings.
type Limits struct {
	Image            int `toml:"image"`
	VideoAudio       int `toml:"video_audio"`
	Gif              int `toml:"gif"`
	Document         int `toml:"document"`
	RemoveBackground int `toml:"remove_background"`
	Compress         int `toml:"compress"`
}

// S3 configures the optional S3 source localizer.
type S3 struct {
	Enabled      bool   `toml:"enabled"`
	Region       string `toml:"region"`
	Endpoint     string `toml:"endpoint"`
	UsePathStyle bool   `toml:"use_path_style"`
}

// Events configures the optional AMQP history publisher.
type Events struct {
	AMQPURL    string `toml:"amqp_url"`
	Exchange   string `toml:"exchange"`
	RoutingKey string `toml:"routing_key"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for Converto.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Server  Server  `toml:"server"`
	Tools   Tools   `toml:"tools"`
	Engine  Engine  `toml:"engine"`
	Limits  Limits  `toml:"limits"`
	S3      S3      `toml:"s3"`
	Events  Events  `toml:"events"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	loadDotEnv(resolvedPath)

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv overlays .env files found beside the config and in the working
// directory. Variables already present in the environment win.
func loadDotEnv(configPath string) {
	candidates := []string{".env"}
	if dir := filepath.Dir(configPath); dir != "" && dir != "." {
		candidates = append([]string{filepath.Join(dir, ".env")}, candidates...)
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err != nil || info.IsDir() {
			continue
		}
		_ = godotenv.Load(candidate)
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("converto.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon and CLI operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ScratchDir, c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryDBPath returns the SQLite database location for task history.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.DataDir, "history.db")
}

// WorkerCount returns the configured pool size, defaulting to one less than
// the available CPUs with a floor of one.
func (c *Config) WorkerCount() int {
	if c.Engine.Workers > 0 {
		return c.Engine.Workers
	}
	return max(1, runtime.NumCPU()-1)
}

// Seconds converts a positive seconds value into a duration.
func Seconds(value int) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the config as TOML. API tokens are redacted.
func (c *Config) Encode() ([]byte, error) {
	clone := *c
	if len(c.Server.Tokens) > 0 {
		clone.Server.Tokens = make(map[string]int64, len(c.Server.Tokens))
		for token, user := range c.Server.Tokens {
			clone.Server.Tokens[redact(token)] = user
		}
	}
	data, err := toml.Marshal(clone)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

func redact(value string) string {
	if len(value) <= 4 {
		return "****"
	}
	return value[:2] + strings.Repeat("*", len(value)-4) + value[len(value)-2:]
}
