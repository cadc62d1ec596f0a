package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/02loveslollipop/hydrodata/services/hydrodata/internal/ana"
	"github.com/02loveslollipop/hydrodata/services/hydrodata/internal/httpclient"
	"github.com/02loveslollipop/hydrodata/services/hydrodata/internal/recordstore"
)

const (
	defaultConfigFile = "hydrodata.yaml"
	defaultAPIPort    = 8080

	RecordBackendDir   = "dir"
	RecordBackendRedis = "redis"
)

// Config holds runtime configuration for the hydrodata tool.
type Config struct {
	// ANAToken authorizes real network requests when set.
	ANAToken    string
	ANABaseURL  string
	ANAFileType int
	DownloadDir string
	Extract     bool

	HTTPTimeout   time.Duration
	UserAgent     string
	RecordDir     string
	RecordBackend string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DatabaseURL string

	APIPort     int
	BearerToken string
}

// fileConfig mirrors the YAML schema of hydrodata.yaml.
type fileConfig struct {
	HTTP struct {
		Timeout       string `yaml:"timeout"`
		UserAgent     string `yaml:"user_agent"`
		RecordDir     string `yaml:"record_dir"`
		RecordBackend string `yaml:"record_backend"`
	} `yaml:"http"`
	ANA struct {
		BaseURL     string `yaml:"base_url"`
		FileType    int    `yaml:"file_type"`
		DownloadDir string `yaml:"download_dir"`
		Extract     *bool  `yaml:"extract"`
	} `yaml:"ana"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	DatabaseURL string `yaml:"database_url"`
	API         struct {
		Port        int    `yaml:"port"`
		BearerToken string `yaml:"bearer_token"`
	} `yaml:"api"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		ANABaseURL:    ana.DefaultBaseURL,
		ANAFileType:   int(ana.FileTypeCSV),
		DownloadDir:   ana.DefaultDownloadDir,
		HTTPTimeout:   httpclient.DefaultTimeout,
		UserAgent:     httpclient.DefaultUserAgent,
		RecordDir:     recordstore.DefaultDir,
		RecordBackend: RecordBackendDir,
		RedisAddr:     "localhost:6379",
		APIPort:       defaultAPIPort,
	}
}

// Load resolves configuration in priority order: defaults, YAML file,
// environment (optionally seeded from .env). An empty path falls back to
// HYDRODATA_CONFIG and then to hydrodata.yaml if that file exists.
func Load(path string) (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = strings.TrimSpace(os.Getenv("HYDRODATA_CONFIG"))
		explicit = path != ""
	}
	if !explicit {
		path = defaultConfigFile
	}

	if err := applyFile(&cfg, path, explicit); err != nil {
		return cfg, err
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.HTTP.Timeout != "" {
		d, err := time.ParseDuration(fc.HTTP.Timeout)
		if err != nil {
			return fmt.Errorf("invalid http.timeout: %w", err)
		}
		cfg.HTTPTimeout = d
	}
	setString(&cfg.UserAgent, fc.HTTP.UserAgent)
	setString(&cfg.RecordDir, fc.HTTP.RecordDir)
	setString(&cfg.RecordBackend, fc.HTTP.RecordBackend)

	setString(&cfg.ANABaseURL, fc.ANA.BaseURL)
	if fc.ANA.FileType != 0 {
		cfg.ANAFileType = fc.ANA.FileType
	}
	setString(&cfg.DownloadDir, fc.ANA.DownloadDir)
	if fc.ANA.Extract != nil {
		cfg.Extract = *fc.ANA.Extract
	}

	setString(&cfg.RedisAddr, fc.Redis.Addr)
	setString(&cfg.RedisPassword, fc.Redis.Password)
	if fc.Redis.DB != 0 {
		cfg.RedisDB = fc.Redis.DB
	}

	setString(&cfg.DatabaseURL, fc.DatabaseURL)
	if fc.API.Port != 0 {
		cfg.APIPort = fc.API.Port
	}
	setString(&cfg.BearerToken, fc.API.BearerToken)
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.ANAToken, env("ANA_API_TOKEN"))
	setString(&cfg.ANABaseURL, env("ANA_BASE_URL"))
	setString(&cfg.DownloadDir, env("ANA_DOWNLOAD_DIR"))
	setString(&cfg.UserAgent, env("HTTP_USER_AGENT"))
	setString(&cfg.RecordDir, env("HTTP_RECORD_DIR"))
	setString(&cfg.RecordBackend, env("HTTP_RECORD_BACKEND"))
	setString(&cfg.RedisAddr, env("REDIS_ADDR"))
	setString(&cfg.RedisPassword, env("REDIS_PASSWORD"))
	setString(&cfg.DatabaseURL, env("DATABASE_URL"))
	setString(&cfg.BearerToken, env("API_BEARER_TOKEN"))

	if v := env("ANA_FILE_TYPE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ANA_FILE_TYPE: %w", err)
		}
		cfg.ANAFileType = n
	}

	if v := env("ANA_EXTRACT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid ANA_EXTRACT: %w", err)
		}
		cfg.Extract = b
	}

	if v := env("HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
		}
		cfg.HTTPTimeout = d
	}

	if v := env("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		cfg.RedisDB = n
	}

	if v := env("API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			return fmt.Errorf("invalid API_PORT: %s", v)
		}
		cfg.APIPort = port
	}

	return nil
}

// Validate checks values that have a restricted range.
func (c Config) Validate() error {
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive, got %s", c.HTTPTimeout)
	}
	switch ana.FileType(c.ANAFileType) {
	case ana.FileTypeMDB, ana.FileTypeTXT, ana.FileTypeCSV:
	default:
		return fmt.Errorf("invalid ANA file type %d (want 1, 2 or 3)", c.ANAFileType)
	}
	switch c.RecordBackend {
	case RecordBackendDir, RecordBackendRedis:
	default:
		return fmt.Errorf("invalid record backend %q (want %q or %q)", c.RecordBackend, RecordBackendDir, RecordBackendRedis)
	}
	if c.APIPort <= 0 {
		return fmt.Errorf("invalid api port %d", c.APIPort)
	}
	return nil
}

// ANA returns the provider settings.
func (c Config) ANA() ana.Config {
	return ana.Config{
		BaseURL:     c.ANABaseURL,
		FileType:    ana.FileType(c.ANAFileType),
		DownloadDir: c.DownloadDir,
		Extract:     c.Extract,
	}
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.APIPort)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
