package config

import "time"

type Duration struct {
	Duration time.Duration
}

type HTTPConfig struct {
	Addr              string   `json:"addr" yaml:"addr"`
	ReadHeaderTimeout Duration `json:"read_header_timeout" yaml:"read_header_timeout"`
	IdleTimeout       Duration `json:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout   Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`

	// MaxUploadBytes caps CSV uploads and JSON bodies.
	MaxUploadBytes int64    `json:"max_upload_bytes" yaml:"max_upload_bytes"`
	CORSOrigins    []string `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty"`
}

type ArtifactConfig struct {
	// Path is a filesystem path or a gs://bucket/object URI.
	Path string `json:"path" yaml:"path"`

	// GCSEndpoint overrides the storage API endpoint for gs:// paths.
	GCSEndpoint string `json:"gcs_endpoint,omitempty" yaml:"gcs_endpoint,omitempty"`

	// Encoding selects the one-hot category universe:
	// - "batch": categories observed in the scored batch, first one dropped
	// - "schema": reference levels derived from the trained column list
	Encoding string `json:"encoding,omitempty" yaml:"encoding,omitempty"`

	// Required turns a failed load into a startup error. Off by default: the
	// service keeps accepting employees and scores them with the fallback.
	Required bool `json:"required,omitempty" yaml:"required,omitempty"`

	// ParallelChunk is the row count above which schema-mode alignment is split
	// across goroutines. Zero disables chunking.
	ParallelChunk int `json:"parallel_chunk,omitempty" yaml:"parallel_chunk,omitempty"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver string `json:"driver" yaml:"driver"`
	DSN    string `json:"dsn" yaml:"dsn"`
}

type RedisConfig struct {
	// Addr empty disables the summary cache.
	Addr       string   `json:"addr,omitempty" yaml:"addr,omitempty"`
	Password   string   `json:"password,omitempty" yaml:"password,omitempty"`
	DB         int      `json:"db,omitempty" yaml:"db,omitempty"`
	KeyPrefix  string   `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`
	SummaryTTL Duration `json:"summary_ttl,omitempty" yaml:"summary_ttl,omitempty"`
}

type TelemetryConfig struct {
	ServiceName string `json:"service_name,omitempty" yaml:"service_name,omitempty"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
}

type Config struct {
	Env       string          `json:"env" yaml:"env"`
	HTTP      HTTPConfig      `json:"http" yaml:"http"`
	Artifact  ArtifactConfig  `json:"artifact" yaml:"artifact"`
	Database  DatabaseConfig  `json:"database" yaml:"database"`
	Redis     RedisConfig     `json:"redis" yaml:"redis"`
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`
}
