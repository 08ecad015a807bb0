package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/unihelp/internal/domain"
)

// Config holds the unihelp configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	RAG        RAGConfig        `yaml:"rag"`
	Auth       AuthConfig       `yaml:"auth"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Upload     UploadConfig     `yaml:"upload"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds admin API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// Database drivers.
const (
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// DatabaseConfig holds vector index connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	HNSWM            int      `yaml:"hnsw_m"`
	HNSWEFConstruct  int      `yaml:"hnsw_ef_construction"`
}

// Embedding providers.
const (
	EmbeddingOpenAI = "openai"
	EmbeddingLocal  = "local"
)

// LocalEmbeddingDimensions is the fixed vector size of the local hash embedder.
const LocalEmbeddingDimensions = 384

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider            string `yaml:"provider"` // openai, local (default: openai)
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
	TimeoutSec          int    `yaml:"timeout_sec"`
	BatchConcurrency    int    `yaml:"batch_concurrency"`
	MaxBatchSize        int    `yaml:"max_batch_size"` // texts per provider request, 0 = 256
	Cache               bool   `yaml:"cache"`
	CacheTTLHours       int    `yaml:"cache_ttl_hours"` // 0 = forever
}

// Timeout returns the per-call embedding timeout.
func (e EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSec) * time.Second
}

// Generation providers.
const (
	GenerationOpenAI = "openai"
	GenerationGemini = "gemini"
)

// GenerationConfig holds generation provider settings.
type GenerationConfig struct {
	Provider     string  `yaml:"provider"` // openai, gemini (default: openai)
	APIKey       string  `yaml:"api_key"`
	BaseURL      string  `yaml:"base_url"`
	Model        string  `yaml:"model"`
	MaxTokens    int     `yaml:"max_tokens"`
	TimeoutSec   int     `yaml:"timeout_sec"`
	PerMinute    int     `yaml:"requests_per_minute"` // 0 = unlimited
	Breaker      Breaker `yaml:"breaker"`
	ProviderName string  `yaml:"provider_name"` // metrics label, defaults to provider
}

// Breaker holds circuit breaker thresholds.
type Breaker struct {
	MinRequests    uint32  `yaml:"min_requests"`
	FailureRatio   float64 `yaml:"failure_ratio"`
	OpenTimeoutSec int     `yaml:"open_timeout_sec"`
}

// Timeout returns the per-call generation timeout.
func (g GenerationConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSec) * time.Second
}

// RAGConfig holds pipeline tuning knobs. Pointers distinguish "unset" from zero.
type RAGConfig struct {
	ChunkSize           int      `yaml:"chunk_size"`
	ChunkOverlap        *int     `yaml:"chunk_overlap"`
	MinUnitLength       int      `yaml:"min_unit_length"`
	TopK                int      `yaml:"top_k"`
	MaxTopK             int      `yaml:"max_top_k"`
	SimilarityFloor     *float64 `yaml:"similarity_floor"`
	ConfidenceThreshold *float64 `yaml:"confidence_threshold"` // defaults to the floor
	Temperature         *float32 `yaml:"temperature"`
	MaxQuestionLength   int      `yaml:"max_question_length"`
	DefaultLanguage     string   `yaml:"default_language"`
}

// RateLimitConfig throttles POST /api/v1/ask per client IP.
type RateLimitConfig struct {
	AskPerMinute float64 `yaml:"ask_per_minute"` // 0 = disabled
	AskBurst     int     `yaml:"ask_burst"`
}

// UploadConfig holds raw document storage settings.
type UploadConfig struct {
	Dir       string `yaml:"dir"`
	MaxFileMB int    `yaml:"max_file_mb"`
}

// MaxBytes returns the upload size cap in bytes.
func (u UploadConfig) MaxBytes() int64 {
	return int64(u.MaxFileMB) << 20
}

// Pipeline converts the rag section into the domain pipeline configuration.
// Call after ApplyDefaults.
func (c *Config) Pipeline() domain.PipelineConfig {
	p := domain.DefaultPipelineConfig()
	r := c.RAG
	p.ChunkSize = r.ChunkSize
	p.MinUnitLength = r.MinUnitLength
	p.TopK = r.TopK
	p.MaxTopK = r.MaxTopK
	p.MaxQuestionLength = r.MaxQuestionLength
	p.DefaultLanguage = r.DefaultLanguage
	if r.ChunkOverlap != nil {
		p.ChunkOverlap = *r.ChunkOverlap
	}
	if r.SimilarityFloor != nil {
		p.SimilarityFloor = *r.SimilarityFloor
	}
	if r.ConfidenceThreshold != nil {
		p.ConfidenceThreshold = *r.ConfidenceThreshold
	}
	if r.Temperature != nil {
		p.Temperature = *r.Temperature
	}
	if c.Embedding.BatchConcurrency > 0 {
		p.EmbedConcurrency = c.Embedding.BatchConcurrency
	}
	return p
}

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

// Parse decodes YAML, expands env variables, applies defaults and validates.
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

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
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
		c.HTTP.Port = 3000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Database.Driver == "" {
		c.Database.Driver = DriverRedis
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}

	c.applyEmbeddingDefaults()
	c.applyGenerationDefaults()
	c.applyRAGDefaults()

	if c.RateLimit.AskBurst <= 0 {
		c.RateLimit.AskBurst = 5
	}
	if c.Upload.Dir == "" {
		c.Upload.Dir = "uploads"
	}
	if c.Upload.MaxFileMB <= 0 {
		c.Upload.MaxFileMB = 20
	}
}

func (c *Config) applyEmbeddingDefaults() {
	e := &c.Embedding
	if e.Provider == "" {
		e.Provider = EmbeddingOpenAI
	}
	if e.Provider == EmbeddingLocal {
		if e.Model == "" {
			e.Model = fmt.Sprintf("hash-%d", LocalEmbeddingDimensions)
		}
		if e.Dimensions == 0 {
			e.Dimensions = LocalEmbeddingDimensions
		}
	}
	if e.Model == "" {
		e.Model = "nomic-embed-text"
	}
	if e.Dimensions == 0 {
		e.Dimensions = 768
	}
	if e.TimeoutSec <= 0 {
		e.TimeoutSec = 30
	}
	if e.BatchConcurrency <= 0 {
		e.BatchConcurrency = domain.DefaultBatchConcurrency
	}
}

func (c *Config) applyGenerationDefaults() {
	g := &c.Generation
	if g.Provider == "" {
		g.Provider = GenerationOpenAI
	}
	if g.Model == "" {
		if g.Provider == GenerationGemini {
			g.Model = "gemini-2.0-flash"
		} else {
			g.Model = "gpt-4o-mini"
		}
	}
	if g.MaxTokens <= 0 {
		g.MaxTokens = 1024
	}
	if g.TimeoutSec <= 0 {
		g.TimeoutSec = 60
	}
	if g.ProviderName == "" {
		g.ProviderName = g.Provider
	}
}

func (c *Config) applyRAGDefaults() {
	def := domain.DefaultPipelineConfig()
	r := &c.RAG
	if r.ChunkSize <= 0 {
		r.ChunkSize = def.ChunkSize
	}
	if r.ChunkOverlap == nil {
		overlap := def.ChunkOverlap
		r.ChunkOverlap = &overlap
	}
	if r.MinUnitLength <= 0 {
		r.MinUnitLength = def.MinUnitLength
	}
	if r.TopK <= 0 {
		r.TopK = def.TopK
	}
	if r.MaxTopK <= 0 {
		r.MaxTopK = def.MaxTopK
	}
	if r.SimilarityFloor == nil {
		floor := def.SimilarityFloor
		r.SimilarityFloor = &floor
	}
	if r.ConfidenceThreshold == nil {
		threshold := *r.SimilarityFloor
		r.ConfidenceThreshold = &threshold
	}
	if r.Temperature == nil {
		temp := def.Temperature
		r.Temperature = &temp
	}
	if r.MaxQuestionLength <= 0 {
		r.MaxQuestionLength = def.MaxQuestionLength
	}
	if r.DefaultLanguage == "" {
		r.DefaultLanguage = def.DefaultLanguage
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Database.Driver {
	case DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return errors.New("database.addrs is required for the redis driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverRedis, DriverMemory, c.Database.Driver)
	}

	switch c.Embedding.Provider {
	case EmbeddingOpenAI, EmbeddingLocal:
	default:
		return fmt.Errorf("embedding.provider must be %q or %q, got %q",
			EmbeddingOpenAI, EmbeddingLocal, c.Embedding.Provider)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Embedding.Provider == EmbeddingLocal && c.Embedding.Dimensions != LocalEmbeddingDimensions {
		return fmt.Errorf("embedding.dimensions must be %d for the local provider, got %d",
			LocalEmbeddingDimensions, c.Embedding.Dimensions)
	}

	switch c.Generation.Provider {
	case GenerationOpenAI, GenerationGemini:
	default:
		return fmt.Errorf("generation.provider must be %q or %q, got %q",
			GenerationOpenAI, GenerationGemini, c.Generation.Provider)
	}
	if r := c.Generation.Breaker.FailureRatio; r < 0 || r > 1 {
		return fmt.Errorf("generation.breaker.failure_ratio must be in [0, 1], got %v", r)
	}

	return c.validateRAG()
}

func (c *Config) validateRAG() error {
	r := c.RAG
	if *r.ChunkOverlap < 0 || *r.ChunkOverlap >= r.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap must be in [0, chunk_size), got %d", *r.ChunkOverlap)
	}
	if r.TopK > r.MaxTopK {
		return fmt.Errorf("rag.top_k (%d) must not exceed rag.max_top_k (%d)", r.TopK, r.MaxTopK)
	}
	if f := *r.SimilarityFloor; f < 0 || f > 1 {
		return fmt.Errorf("rag.similarity_floor must be in [0, 1], got %v", f)
	}
	if t := *r.ConfidenceThreshold; t < 0 || t > 1 {
		return fmt.Errorf("rag.confidence_threshold must be in [0, 1], got %v", t)
	}
	if t := *r.Temperature; t < 0 || t > 2 {
		return fmt.Errorf("rag.temperature must be in [0, 2], got %v", t)
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
