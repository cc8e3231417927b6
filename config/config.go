package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"trendscout/types"
)

const (
	configPathEnv     = "TRENDSCOUT_CONFIG"
	defaultConfigPath = "configs/trendscout.yaml"
)

// Config holds every setting the service reads at startup. It is read-only after Load.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	LLM        LLMConfig        `yaml:"llm"`
	Cohere     CohereConfig     `yaml:"cohere"`
	Search     SearchConfig     `yaml:"search"`
	Ranking    RankingConfig    `yaml:"ranking"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Stages     StageConfig      `yaml:"stages"`
	Registry   Registry         `yaml:"registry"`
	Redis      RedisConfig      `yaml:"redis"`
	SQLite     SQLiteConfig     `yaml:"sqlite"`
	S3         S3Config         `yaml:"s3"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Schedules  []ScheduleConfig `yaml:"schedules"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// LLMConfig points at an OpenAI-compatible chat endpoint. Empty APIKey and
// BaseURL disable the model and leave the rule-based capabilities in charge.
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	Retries     int     `yaml:"retries"`
}

// Enabled reports whether an LLM backing is configured
func (c LLMConfig) Enabled() bool { return c.APIKey != "" || c.BaseURL != "" }

// CohereConfig enables the embedding scope guard
type CohereConfig struct {
	APIKey         string  `yaml:"api_key"`
	Model          string  `yaml:"model"`
	ScopeThreshold float64 `yaml:"scope_threshold"`
}

type SearchConfig struct {
	Exa           ExaConfig        `yaml:"exa"`
	DuckDuckGo    DuckDuckGoConfig `yaml:"duckduckgo"`
	Feeds         FeedsConfig      `yaml:"feeds"`
	BranchTimeout time.Duration    `yaml:"branch_timeout"`
}

type ExaConfig struct {
	Endpoint   string `yaml:"endpoint"`
	APIKey     string `yaml:"api_key"`
	NumResults int    `yaml:"num_results"`
}

type DuckDuckGoConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Endpoint   string `yaml:"endpoint"`
	Region     string `yaml:"region"`
	TimeLimit  string `yaml:"time_limit"`
	MaxResults int    `yaml:"max_results"`
}

type FeedsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// RankingConfig holds the tunable composite-score weights
type RankingConfig struct {
	TopK                int     `yaml:"top_k"`
	FreshnessWeight     float64 `yaml:"freshness_weight"`
	FreshnessWindowDays float64 `yaml:"freshness_window_days"`
	ExactMatchBonus     float64 `yaml:"exact_match_bonus"`
	CrossBranchBonus    float64 `yaml:"cross_branch_bonus"`
}

type ExtractionConfig struct {
	Workers      int           `yaml:"workers"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	MinTextChars int           `yaml:"min_text_chars"`
	UserAgent    string        `yaml:"user_agent"`
}

// StageConfig is the per-stage timeout budget
type StageConfig struct {
	NormalizeTimeout time.Duration `yaml:"normalize_timeout"`
	EnrichTimeout    time.Duration `yaml:"enrich_timeout"`
	SearchTimeout    time.Duration `yaml:"search_timeout"`
	ExtractTimeout   time.Duration `yaml:"extract_timeout"`
}

type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	ReportTTL time.Duration `yaml:"report_ttl"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type S3Config struct {
	Bucket          string        `yaml:"bucket"`
	Prefix          string        `yaml:"prefix"`
	Region          string        `yaml:"region"`
	Profile         string        `yaml:"profile"`
	UsePathStyle    bool          `yaml:"use_path_style"`
	PresignLifetime time.Duration `yaml:"presign_lifetime"`
}

type KafkaConfig struct {
	Brokers      []string `yaml:"brokers"`
	RequestTopic string   `yaml:"request_topic"`
	ResultTopic  string   `yaml:"result_topic"`
	GroupID      string   `yaml:"group_id"`
}

// ScheduleConfig is a standing query re-run on a cron expression
type ScheduleConfig struct {
	Name       string               `yaml:"name"`
	Cron       string               `yaml:"cron"`
	Query      string               `yaml:"query"`
	SessionID  string               `yaml:"session_id"`
	SettingsID string               `yaml:"settings_id"`
	Session    types.SessionContext `yaml:"session"`
}

// Load reads .env, the YAML file (if present) and environment overrides, in that order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	path := getEnvOrDefault(configPathEnv, defaultConfigPath)
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && os.Getenv(configPathEnv) == "":
		// no file and none requested; defaults apply
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	if len(cfg.Registry) == 0 {
		cfg.Registry = DefaultRegistry()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration that runs with no external services besides the search providers
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info"},
		LLM: LLMConfig{
			Model:   "gpt-4o-mini",
			Retries: 2,
		},
		Cohere: CohereConfig{
			Model:          "embed-english-v3.0",
			ScopeThreshold: 0.3,
		},
		Search: SearchConfig{
			Exa: ExaConfig{
				Endpoint:   "https://api.exa.ai/search",
				NumResults: SemanticTopN,
			},
			DuckDuckGo: DuckDuckGoConfig{
				Enabled:    true,
				Endpoint:   "https://html.duckduckgo.com/html/",
				Region:     "wt-wt",
				TimeLimit:  "m",
				MaxResults: KeywordTopN,
			},
			Feeds:         FeedsConfig{Enabled: true},
			BranchTimeout: DefaultBranchTimeout,
		},
		Ranking: RankingConfig{
			TopK:                TopK,
			FreshnessWeight:     DefaultFreshnessWeight,
			FreshnessWindowDays: DefaultFreshnessWindowDays,
			ExactMatchBonus:     DefaultExactMatchBonus,
			CrossBranchBonus:    DefaultCrossBranchBonus,
		},
		Extraction: ExtractionConfig{
			Workers:      DefaultExtractionWorkers,
			FetchTimeout: DefaultFetchTimeout,
			MinTextChars: DefaultMinTextChars,
			UserAgent:    BrowserUserAgent,
		},
		Stages: StageConfig{
			NormalizeTimeout: DefaultNormalizeTimeout,
			EnrichTimeout:    DefaultEnrichTimeout,
			SearchTimeout:    DefaultBranchTimeout + 5*time.Second,
			ExtractTimeout:   DefaultExtractTimeout,
		},
		Registry: DefaultRegistry(),
		Redis:    RedisConfig{ReportTTL: ReportTTL},
		SQLite:   SQLiteConfig{Path: "trendscout.db"},
		S3: S3Config{
			Prefix:          "research-bundles",
			PresignLifetime: PresignLifetime,
		},
		Kafka: KafkaConfig{
			RequestTopic: "research.requests",
			ResultTopic:  "research.results",
			GroupID:      "trendscout",
		},
	}
}

func (c *Config) applyEnvOverrides() {
	c.Server.Addr = getEnvOrDefault("TRENDSCOUT_ADDR", c.Server.Addr)
	c.Log.Level = getEnvOrDefault("LOG_LEVEL", c.Log.Level)

	c.LLM.APIKey = getEnvOrDefault("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = getEnvOrDefault("OPENAI_BASE_URL", c.LLM.BaseURL)
	c.LLM.Model = getEnvOrDefault("OPENAI_MODEL", c.LLM.Model)
	c.Cohere.APIKey = getEnvOrDefault("COHERE_API_KEY", c.Cohere.APIKey)
	c.Search.Exa.APIKey = getEnvOrDefault("EXA_API_KEY", c.Search.Exa.APIKey)

	c.Redis.Addr = getEnvOrDefault("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnvOrDefault("REDIS_PASS", c.Redis.Password)
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = db
		}
	}
	c.SQLite.Path = getEnvOrDefault("SQLITE_PATH", c.SQLite.Path)

	c.S3.Bucket = getEnvOrDefault("S3_BUCKET", c.S3.Bucket)
	c.S3.Region = getEnvOrDefault("AWS_REGION", c.S3.Region)
	c.S3.Profile = getEnvOrDefault("AWS_PROFILE", c.S3.Profile)

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	c.Kafka.RequestTopic = getEnvOrDefault("KAFKA_REQUEST_TOPIC", c.Kafka.RequestTopic)
	c.Kafka.ResultTopic = getEnvOrDefault("KAFKA_RESULT_TOPIC", c.Kafka.ResultTopic)
	c.Kafka.GroupID = getEnvOrDefault("KAFKA_GROUP_ID", c.Kafka.GroupID)
}

// Validate checks bounds the pipeline relies on and clamps soft limits
func (c *Config) Validate() error {
	if c.Ranking.TopK <= 0 || c.Ranking.TopK > TopK {
		return fmt.Errorf("ranking.top_k must be between 1 and %d, got %d", TopK, c.Ranking.TopK)
	}
	if c.Ranking.FreshnessWindowDays <= 0 {
		return errors.New("ranking.freshness_window_days must be positive")
	}
	if c.Ranking.FreshnessWeight < 0 || c.Ranking.ExactMatchBonus < 0 || c.Ranking.CrossBranchBonus < 0 {
		return errors.New("ranking weights must not be negative")
	}
	if c.Extraction.Workers < MinExtractionWorkers {
		c.Extraction.Workers = MinExtractionWorkers
	}
	if c.Extraction.Workers > MaxExtractionWorkers {
		c.Extraction.Workers = MaxExtractionWorkers
	}
	if c.Search.Exa.NumResults <= 0 || c.Search.Exa.NumResults > SemanticTopN {
		c.Search.Exa.NumResults = SemanticTopN
	}
	for i, s := range c.Schedules {
		if s.Cron == "" || strings.TrimSpace(s.Query) == "" {
			return fmt.Errorf("schedules[%d]: cron and query are required", i)
		}
	}
	return nil
}

// Helper function to get environment variable with default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
