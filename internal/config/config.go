package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the drastic pipeline configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	LDP       LDPConfig       `yaml:"ldp"`
	SPARQL    SPARQLConfig    `yaml:"sparql"`
	Search    SearchConfig    `yaml:"search"`
	NATS      NATSConfig      `yaml:"nats"`
	Redis     RedisConfig     `yaml:"redis"`
	Crawler   CrawlerConfig   `yaml:"crawler"`
	Indexer   IndexerConfig   `yaml:"indexer"`
	Assembler AssemblerConfig `yaml:"assembler"`
	Retry     RetryConfig     `yaml:"retry"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds admin API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds admin HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// LDPConfig holds object store client settings.
type LDPConfig struct {
	// BaseURL, when set, replaces scheme and host of every resource IRI
	// before a request is sent.
	BaseURL    string `yaml:"base_url"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// SPARQLConfig holds triple store endpoints.
type SPARQLConfig struct {
	QueryURL   string `yaml:"query_url"`
	UpdateURL  string `yaml:"update_url"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// SearchConfig holds search index settings.
type SearchConfig struct {
	URL            string `yaml:"url"`
	Index          string `yaml:"index"`
	AuthorityIndex string `yaml:"authority_index"`
	TimeoutSec     int    `yaml:"timeout_sec"`
}

// NATSConfig holds event bus settings.
type NATSConfig struct {
	URL           string         `yaml:"url"`
	Stream        string         `yaml:"stream"`
	SubjectPrefix string         `yaml:"subject_prefix"`
	AckWaitSec    int            `yaml:"ack_wait_sec"`
	MaxDeliver    int            `yaml:"max_deliver"`
	NakDelaySec   int            `yaml:"nak_delay_sec"`
	Workers       map[string]int `yaml:"workers"` // per stage, default 1
}

// RedisConfig holds the optional coordination store. Empty Addrs disables it.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	LockTTLSec       int      `yaml:"lock_ttl_sec"`
	VisitedTTLSec    int      `yaml:"visited_ttl_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// CrawlerConfig holds crawler settings.
type CrawlerConfig struct {
	MaxDepth        int     `yaml:"max_depth"`
	Dedupe          bool    `yaml:"dedupe"`
	GenericEnvelope bool    `yaml:"generic_envelope"`
	EmitPerSecond   float64 `yaml:"emit_per_second"` // 0 = unlimited
	EmitBurst       int     `yaml:"emit_burst"`
}

// IndexerConfig holds indexer settings.
type IndexerConfig struct {
	SkipPaths []string `yaml:"skip_paths"`
}

// AssemblerConfig holds paged document assembly settings.
type AssemblerConfig struct {
	Workers int `yaml:"workers"`
}

// RetryConfig bounds in-process retries of remote calls.
type RetryConfig struct {
	MaxAttempts       int `yaml:"max_attempts"`
	InitialIntervalMs int `yaml:"initial_interval_ms"`
	MaxIntervalMs     int `yaml:"max_interval_ms"`
}

// Enabled reports whether a Redis deployment is configured.
func (r RedisConfig) Enabled() bool { return len(r.Addrs) > 0 }

// Seconds converts a seconds setting to a duration.
func Seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates raw YAML.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.LDP.TimeoutSec <= 0 {
		c.LDP.TimeoutSec = 30
	}
	if c.SPARQL.TimeoutSec <= 0 {
		c.SPARQL.TimeoutSec = 30
	}
	if c.Search.Index == "" {
		c.Search.Index = "descriptions"
	}
	if c.Search.AuthorityIndex == "" {
		c.Search.AuthorityIndex = "authority-records"
	}
	if c.Search.TimeoutSec <= 0 {
		c.Search.TimeoutSec = 15
	}
	if c.NATS.Stream == "" {
		c.NATS.Stream = "DRASTIC"
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "drastic"
	}
	if c.NATS.AckWaitSec <= 0 {
		c.NATS.AckWaitSec = 60
	}
	if c.NATS.MaxDeliver <= 0 {
		c.NATS.MaxDeliver = 5
	}
	if c.NATS.NakDelaySec <= 0 {
		c.NATS.NakDelaySec = 5
	}
	if c.Redis.LockTTLSec <= 0 {
		c.Redis.LockTTLSec = 60
	}
	if c.Redis.VisitedTTLSec <= 0 {
		c.Redis.VisitedTTLSec = 86400
	}
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.Crawler.MaxDepth <= 0 {
		c.Crawler.MaxDepth = 20
	}
	if c.Crawler.EmitBurst <= 0 {
		c.Crawler.EmitBurst = 1
	}
	if c.Indexer.SkipPaths == nil {
		c.Indexer.SkipPaths = []string{"", "/", "/description", "/description/", "/submissions", "/submissions/"}
	}
	if c.Assembler.Workers <= 0 {
		c.Assembler.Workers = 4
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.InitialIntervalMs <= 0 {
		c.Retry.InitialIntervalMs = 200
	}
	if c.Retry.MaxIntervalMs <= 0 {
		c.Retry.MaxIntervalMs = 5000
	}
}

// WorkersFor returns the configured worker count for a stage.
func (n NATSConfig) WorkersFor(stage string) int {
	if w := n.Workers[stage]; w > 0 {
		return w
	}
	return 1
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required")
	}
	for name, raw := range map[string]string{
		"sparql.query_url":  c.SPARQL.QueryURL,
		"sparql.update_url": c.SPARQL.UpdateURL,
		"search.url":        c.Search.URL,
	} {
		if raw == "" {
			return fmt.Errorf("%s is required", name)
		}
		if err := checkURL(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.LDP.BaseURL != "" {
		if err := checkURL(c.LDP.BaseURL); err != nil {
			return fmt.Errorf("ldp.base_url: %w", err)
		}
	}
	if c.Crawler.EmitPerSecond < 0 {
		return fmt.Errorf("crawler.emit_per_second must not be negative")
	}
	if c.Crawler.Dedupe && !c.Redis.Enabled() {
		return fmt.Errorf("crawler.dedupe requires redis.addrs")
	}
	if c.Retry.MaxIntervalMs < c.Retry.InitialIntervalMs {
		return fmt.Errorf("retry.max_interval_ms must be >= retry.initial_interval_ms")
	}
	return nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
