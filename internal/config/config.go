package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DBPath           string        `yaml:"db_path"`
	HTTPPort         int           `yaml:"http_port"`
	LogLevel         string        `yaml:"log_level"`
	DropDir          string        `yaml:"drop_dir"`
	DropSettleDelay  time.Duration `yaml:"drop_settle_delay"`
	Converter        string        `yaml:"converter"`
	MagickPath       string        `yaml:"magick_path"`
	ExiftoolPath     string        `yaml:"exiftool_path"`
	PreserveMetadata bool          `yaml:"preserve_metadata"`
	MaxWorkers       int           `yaml:"max_workers"`
	NoticeDuration   time.Duration `yaml:"notice_duration"`
	CorsOrigins      []string      `yaml:"cors_origins"`
	StaticDir        string        `yaml:"static_dir"`
}

func Default() *Config {
	return &Config{
		DBPath:           "./data/webpconv.db",
		HTTPPort:         8000,
		LogLevel:         "INFO",
		DropSettleDelay:  time.Second,
		MagickPath:       "magick",
		ExiftoolPath:     "exiftool",
		PreserveMetadata: true,
		MaxWorkers:       1,
		NoticeDuration:   6 * time.Second,
		CorsOrigins:      []string{"*"},
	}
}

// Load builds the configuration from defaults, the YAML file named by
// CONFIG_FILE and the environment, in that order. Variables from envFiles (or
// ./.env when none are given) are loaded first; a missing file is not an error.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
		log.Printf("no .env file found, using process environment")
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// LoadFile overlays the values present in a YAML file.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.HTTPPort = getEnvInt("HTTP_PORT", c.HTTPPort)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.DropDir = getEnv("DROP_DIR", c.DropDir)
	c.DropSettleDelay = getEnvDuration("DROP_SETTLE_DELAY", c.DropSettleDelay)
	c.Converter = getEnv("CONVERTER", c.Converter)
	c.MagickPath = getEnv("MAGICK_PATH", c.MagickPath)
	c.ExiftoolPath = getEnv("EXIFTOOL_PATH", c.ExiftoolPath)
	c.PreserveMetadata = getEnvBool("PRESERVE_METADATA", c.PreserveMetadata)
	c.MaxWorkers = getEnvInt("MAX_WORKERS", c.MaxWorkers)
	c.NoticeDuration = getEnvDuration("NOTICE_DURATION", c.NoticeDuration)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CorsOrigins = splitAndTrim(v)
	}
	c.StaticDir = getEnv("STATIC_DIR", c.StaticDir)
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT: %d", c.HTTPPort)
	}
	if c.MaxWorkers < 1 {
		return fmt.Errorf("invalid MAX_WORKERS: %d", c.MaxWorkers)
	}
	if c.DBPath == "" {
		return errors.New("DB_PATH must not be empty")
	}
	for _, o := range c.CorsOrigins {
		if o != "*" && !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			return fmt.Errorf("invalid CORS_ORIGINS entry: %q", o)
		}
	}
	return nil
}

func (c *Config) HTTPAddr() string { return fmt.Sprintf(":%d", c.HTTPPort) }

// GinMode maps LOG_LEVEL onto a gin mode.
func (c *Config) GinMode() string {
	if strings.EqualFold(c.LogLevel, "DEBUG") {
		return "debug"
	}
	return "release"
}

func splitAndTrim(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getEnvDuration accepts a Go duration ("1500ms") or whole seconds ("2").
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}
