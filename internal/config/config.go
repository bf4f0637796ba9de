package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/disclosure-cli/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Log      LogConfig              `yaml:"log" mapstructure:"log"`
	Store    StoreConfig            `yaml:"store" mapstructure:"store"`
	Chunk    ChunkConfig            `yaml:"chunk" mapstructure:"chunk"`
	Funnel   FunnelConfig           `yaml:"funnel" mapstructure:"funnel"`
	Stages   map[string]StageConfig `yaml:"stages" mapstructure:"stages"`
	Oracle   OracleConfig           `yaml:"oracle" mapstructure:"oracle"`
	Batch    BatchConfig            `yaml:"batch" mapstructure:"batch"`
	Merge    MergeConfig            `yaml:"merge" mapstructure:"merge"`
	Scrape   ScrapeConfig           `yaml:"scrape" mapstructure:"scrape"`
	Keywords KeywordsConfig         `yaml:"keywords" mapstructure:"keywords"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ChunkConfig configures segmentation of extracted report text.
type ChunkConfig struct {
	Width        int    `yaml:"width" mapstructure:"width"`
	KeyColumn    string `yaml:"key_column" mapstructure:"key_column"`
	TextColumn   string `yaml:"text_column" mapstructure:"text_column"`
	PeriodColumn string `yaml:"period_column" mapstructure:"period_column"`
	SampleSize   int    `yaml:"sample_size" mapstructure:"sample_size"`
}

// FunnelConfig holds settings shared by every funnel stage.
type FunnelConfig struct {
	Threshold float64 `yaml:"threshold" mapstructure:"threshold"`
	BatchSize int     `yaml:"batch_size" mapstructure:"batch_size"`
	DumpDir   string  `yaml:"dump_dir" mapstructure:"dump_dir"`
}

// StageConfig overrides funnel behaviour for one task. A zero Threshold
// inherits funnel.threshold.
type StageConfig struct {
	Model     string             `yaml:"model" mapstructure:"model"`
	Threshold float64            `yaml:"threshold" mapstructure:"threshold"`
	Weights   map[string]float64 `yaml:"weights" mapstructure:"weights"`
	KeepLabel string             `yaml:"keep_label" mapstructure:"keep_label"`
	Aliases   map[string]string  `yaml:"aliases" mapstructure:"aliases"`
}

// OracleConfig selects and tunes the classification backend.
type OracleConfig struct {
	Provider     string          `yaml:"provider" mapstructure:"provider"`
	Inference    InferenceConfig `yaml:"inference" mapstructure:"inference"`
	Anthropic    AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI       OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	RateLimit    float64         `yaml:"rate_limit" mapstructure:"rate_limit"`
	Burst        int             `yaml:"burst" mapstructure:"burst"`
	CacheTTLMins int             `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins"`
	Breaker      BreakerConfig   `yaml:"breaker" mapstructure:"breaker"`
	Retry        RetryConfig     `yaml:"retry" mapstructure:"retry"`
}

// InferenceConfig holds Hugging Face inference endpoint settings.
type InferenceConfig struct {
	Token        string `yaml:"token" mapstructure:"token"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	WaitForModel bool   `yaml:"wait_for_model" mapstructure:"wait_for_model"`
	TopK         int    `yaml:"top_k" mapstructure:"top_k"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OpenAIConfig holds settings for any OpenAI-compatible chat endpoint.
type OpenAIConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// BreakerConfig configures the oracle circuit breaker.
type BreakerConfig struct {
	Failures     int `yaml:"failures" mapstructure:"failures"`
	CooldownSecs int `yaml:"cooldown_secs" mapstructure:"cooldown_secs"`
}

// RetryConfig configures oracle retries on transient failures.
type RetryConfig struct {
	Attempts  int `yaml:"attempts" mapstructure:"attempts"`
	BackoffMs int `yaml:"backoff_ms" mapstructure:"backoff_ms"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentEntities int `yaml:"max_concurrent_entities" mapstructure:"max_concurrent_entities"`
}

// MergeConfig configures the join of metric rows with reference tables.
type MergeConfig struct {
	ESGPath          string   `yaml:"esg_path" mapstructure:"esg_path"`
	EmissionsPath    string   `yaml:"emissions_path" mapstructure:"emissions_path"`
	KeyColumns       []string `yaml:"key_columns" mapstructure:"key_columns"`
	ESGColumns       []string `yaml:"esg_columns" mapstructure:"esg_columns"`
	EmissionsColumns []string `yaml:"emissions_columns" mapstructure:"emissions_columns"`
	DuplicatePolicy  string   `yaml:"duplicate_policy" mapstructure:"duplicate_policy"`
	Output           string   `yaml:"output" mapstructure:"output"`
}

// ScrapeConfig configures report download and text extraction.
type ScrapeConfig struct {
	LinksCSV      string  `yaml:"links_csv" mapstructure:"links_csv"`
	OutDir        string  `yaml:"out_dir" mapstructure:"out_dir"`
	RawDir        string  `yaml:"raw_dir" mapstructure:"raw_dir"`
	UserAgent     string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	HostRate      float64 `yaml:"host_rate" mapstructure:"host_rate"`
	PDFProvider   string  `yaml:"pdf_provider" mapstructure:"pdf_provider"`
	PdfToTextPath string  `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	Concurrency   int     `yaml:"concurrency" mapstructure:"concurrency"`
}

// KeywordsConfig configures the green/red term statistics.
type KeywordsConfig struct {
	TermsFile string   `yaml:"terms_file" mapstructure:"terms_file"`
	Green     []string `yaml:"green" mapstructure:"green"`
	Red       []string `yaml:"red" mapstructure:"red"`
	TopN      int      `yaml:"top_n" mapstructure:"top_n"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DISCLOSURE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "disclosure.db")
	v.SetDefault("chunk.width", 500)
	v.SetDefault("chunk.key_column", "ticker")
	v.SetDefault("chunk.text_column", "preprocessed_content")
	v.SetDefault("chunk.sample_size", 5)
	v.SetDefault("funnel.threshold", 0.8)
	v.SetDefault("funnel.batch_size", 32)
	v.SetDefault("oracle.provider", "inference")
	v.SetDefault("oracle.inference.base_url", "https://api-inference.huggingface.co")
	v.SetDefault("oracle.inference.wait_for_model", true)
	v.SetDefault("oracle.inference.timeout_secs", 120)
	v.SetDefault("oracle.anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("oracle.anthropic.max_tokens", 2048)
	v.SetDefault("oracle.openai.model", "gpt-4o-mini")
	v.SetDefault("oracle.openai.max_tokens", 2048)
	v.SetDefault("oracle.rate_limit", 5.0)
	v.SetDefault("oracle.burst", 1)
	v.SetDefault("oracle.cache_ttl_mins", 60)
	v.SetDefault("oracle.breaker.failures", 5)
	v.SetDefault("oracle.breaker.cooldown_secs", 30)
	v.SetDefault("oracle.retry.attempts", 3)
	v.SetDefault("oracle.retry.backoff_ms", 500)
	v.SetDefault("batch.max_concurrent_entities", 4)
	v.SetDefault("merge.key_columns", []string{"ticker", "symbol"})
	v.SetDefault("merge.emissions_columns", []string{"all_total_emissions"})
	v.SetDefault("merge.duplicate_policy", "first")
	v.SetDefault("merge.output", "merged.csv")
	v.SetDefault("scrape.out_dir", "chunks")
	v.SetDefault("scrape.raw_dir", "raw")
	v.SetDefault("scrape.timeout_secs", 45)
	v.SetDefault("scrape.host_rate", 2.0)
	v.SetDefault("scrape.pdf_provider", "pdftotext")
	v.SetDefault("scrape.pdftotext_path", "pdftotext")
	v.SetDefault("scrape.concurrency", 4)
	v.SetDefault("keywords.top_n", 50)

	for _, task := range model.AllTasks() {
		prefix := "stages." + string(task) + "."
		v.SetDefault(prefix+"model", task.DefaultModel())
		v.SetDefault(prefix+"keep_label", string(task.DefaultKeepLabel()))
		weights := make(map[string]float64)
		for l, w := range task.DefaultWeights() {
			weights[string(l)] = w
		}
		v.SetDefault(prefix+"weights", weights)
		aliases := make(map[string]string)
		for raw, l := range task.LabelAliases() {
			aliases[raw] = string(l)
		}
		v.SetDefault(prefix+"aliases", aliases)
	}

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks enumerated settings that would otherwise fail deep inside
// a run.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return eris.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	switch c.Oracle.Provider {
	case "inference", "anthropic", "openai", "lexicon":
	default:
		return eris.Errorf("config: unknown oracle.provider %q", c.Oracle.Provider)
	}
	switch c.Merge.DuplicatePolicy {
	case "first", "last":
	default:
		return eris.Errorf("config: unknown merge.duplicate_policy %q", c.Merge.DuplicatePolicy)
	}
	switch c.Scrape.PDFProvider {
	case "pdftotext", "native":
	default:
		return eris.Errorf("config: unknown scrape.pdf_provider %q", c.Scrape.PDFProvider)
	}
	if c.Funnel.Threshold < 0 || c.Funnel.Threshold > 1 {
		return eris.Errorf("config: funnel.threshold %v outside [0,1]", c.Funnel.Threshold)
	}
	for name := range c.Stages {
		if _, err := model.ParseTask(name); err != nil {
			return eris.Wrapf(err, "config: stages.%s", name)
		}
	}
	return nil
}

// Stage returns the settings for task, falling back to funnel-wide values
// and the task's built-in model, keep label, weights and aliases.
func (c *Config) Stage(task model.Task) StageConfig {
	sc := c.Stages[string(task)]
	if sc.Threshold == 0 {
		sc.Threshold = c.Funnel.Threshold
	}
	if sc.Model == "" {
		sc.Model = task.DefaultModel()
	}
	if sc.KeepLabel == "" {
		sc.KeepLabel = string(task.DefaultKeepLabel())
	}
	if len(sc.Weights) == 0 {
		sc.Weights = make(map[string]float64)
		for l, w := range task.DefaultWeights() {
			sc.Weights[string(l)] = w
		}
	}
	if len(sc.Aliases) == 0 {
		sc.Aliases = make(map[string]string)
		for raw, l := range task.LabelAliases() {
			sc.Aliases[raw] = string(l)
		}
	}
	return sc
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
