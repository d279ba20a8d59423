package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/attrition-backend/internal/platform/envutil"
)

const (
	EncodingBatch  = "batch"
	EncodingSchema = "schema"
)

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		d.Duration = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		u, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		return d.parse(u)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("duration must be a JSON string like \"5s\" or an int nanoseconds: %w", err)
	}
	d.Duration = time.Duration(n)
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar, got kind %d", node.Kind)
	}
	if node.Tag == "!!int" {
		n, err := strconv.ParseInt(node.Value, 10, 64)
		if err != nil {
			return err
		}
		d.Duration = time.Duration(n)
		return nil
	}
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	if strings.TrimSpace(s) == "" {
		d.Duration = 0
		return nil
	}
	dd, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	d.Duration = dd
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: Duration{Duration: 5 * time.Second},
			IdleTimeout:       Duration{Duration: 2 * time.Minute},
			ShutdownTimeout:   Duration{Duration: 15 * time.Second},
			MaxUploadBytes:    10 << 20,
		},
		Artifact: ArtifactConfig{
			Path:     filepath.Join("models", "attrition_model.json"),
			Encoding: EncodingBatch,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "file:attrition.db?_busy_timeout=5000",
		},
		Redis: RedisConfig{
			KeyPrefix:  "attrition",
			SummaryTTL: Duration{Duration: 5 * time.Minute},
		},
		Telemetry: TelemetryConfig{
			ServiceName: "attrition-backend",
		},
	}
}

// Load reads the config file named by ATTRITION_CONFIG_PATH (or
// ./config/config.{json,yaml,yml}), applies env overrides, then defaults and
// validation.
func Load() (*Config, error) {
	cfg := defaultConfig()

	cfgPath := strings.TrimSpace(os.Getenv("ATTRITION_CONFIG_PATH"))
	if cfgPath == "" {
		cfgPath = findDefaultConfig()
	}
	if cfgPath != "" {
		if err := readFile(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
	}

	applyEnv(cfg)

	if err := normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findDefaultConfig() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for _, name := range []string{"config.json", "config.yaml", "config.yml"} {
		p := filepath.Join(wd, "config", name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// readFile overlays the file onto cfg so omitted keys keep their defaults.
func readFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	default:
		return json.Unmarshal(b, cfg)
	}
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String("LOG_MODE", cfg.Env)
	cfg.HTTP.Addr = envutil.String("ATTRITION_HTTP_ADDR", cfg.HTTP.Addr)
	cfg.Artifact.Path = envutil.String("ATTRITION_ARTIFACT_PATH", cfg.Artifact.Path)
	cfg.Artifact.GCSEndpoint = envutil.String("ATTRITION_GCS_ENDPOINT", cfg.Artifact.GCSEndpoint)
	cfg.Artifact.Encoding = envutil.String("ATTRITION_ARTIFACT_ENCODING", cfg.Artifact.Encoding)
	cfg.Artifact.Required = envutil.Bool("ATTRITION_ARTIFACT_REQUIRED", cfg.Artifact.Required)
	cfg.Database.Driver = envutil.String("ATTRITION_DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = envutil.String("ATTRITION_DB_DSN", cfg.Database.DSN)
	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envutil.String("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envutil.Int("REDIS_DB", cfg.Redis.DB)
	cfg.Telemetry.Version = envutil.String("ATTRITION_VERSION", cfg.Telemetry.Version)
}

func normalize(cfg *Config) error {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "development"
	}
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.MaxUploadBytes <= 0 {
		cfg.HTTP.MaxUploadBytes = 10 << 20
	}
	if cfg.HTTP.ShutdownTimeout.Duration <= 0 {
		cfg.HTTP.ShutdownTimeout = Duration{Duration: 15 * time.Second}
	}

	cfg.Artifact.Path = strings.TrimSpace(cfg.Artifact.Path)
	if cfg.Artifact.Path == "" {
		return fmt.Errorf("artifact.path is required")
	}
	cfg.Artifact.Encoding = strings.ToLower(strings.TrimSpace(cfg.Artifact.Encoding))
	switch cfg.Artifact.Encoding {
	case "":
		cfg.Artifact.Encoding = EncodingBatch
	case EncodingBatch, EncodingSchema:
	default:
		return fmt.Errorf("invalid artifact.encoding=%q", cfg.Artifact.Encoding)
	}
	if cfg.Artifact.ParallelChunk < 0 {
		return fmt.Errorf("invalid artifact.parallel_chunk=%d", cfg.Artifact.ParallelChunk)
	}

	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	switch cfg.Database.Driver {
	case "postgres", "postgresql":
		cfg.Database.Driver = "postgres"
	case "sqlite", "sqlite3":
		cfg.Database.Driver = "sqlite"
	default:
		return fmt.Errorf("invalid database.driver=%q", cfg.Database.Driver)
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}

	cfg.Redis.Addr = strings.TrimSpace(cfg.Redis.Addr)
	if strings.TrimSpace(cfg.Redis.KeyPrefix) == "" {
		cfg.Redis.KeyPrefix = "attrition"
	}
	if cfg.Redis.SummaryTTL.Duration <= 0 {
		cfg.Redis.SummaryTTL = Duration{Duration: 5 * time.Minute}
	}
	if strings.TrimSpace(cfg.Telemetry.ServiceName) == "" {
		cfg.Telemetry.ServiceName = "attrition-backend"
	}
	return nil
}
