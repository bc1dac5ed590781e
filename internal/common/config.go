package common

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Store    StoreConfig    `mapstructure:"store"`
	Server   ServerConfig   `mapstructure:"server"`
	OCR      OCRConfig      `mapstructure:"ocr"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Log      LogConfig      `mapstructure:"log"`
}

// StoreConfig holds database-related configuration. An empty DSN disables job tracking.
type StoreConfig struct {
	Driver           string        `mapstructure:"driver"` // postgres | sqlite
	DSN              string        `mapstructure:"dsn"`
	MaxConns         int32         `mapstructure:"max_conns"`
	MinConns         int32         `mapstructure:"min_conns"`
	MaxConnLifetime  time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `mapstructure:"max_conn_idle_time"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr       string `mapstructure:"grpc_addr"`
	HTTPAddr       string `mapstructure:"http_addr"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
	// PathRoots are the directories whose files API callers may name by path.
	// Empty disables path requests.
	PathRoots []string `mapstructure:"path_roots"`
}

// OCRConfig configures the layout-analysis service.
type OCRConfig struct {
	Endpoint     string        `mapstructure:"endpoint"`
	APIKey       string        `mapstructure:"api_key"`
	APIVersion   string        `mapstructure:"api_version"`
	Model        string        `mapstructure:"model"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	PollAttempts uint          `mapstructure:"poll_attempts"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// LLMConfig configures the completion service. Endpoint set means Azure OpenAI.
type LLMConfig struct {
	Endpoint    string        `mapstructure:"endpoint"`
	APIKey      string        `mapstructure:"api_key"`
	Deployment  string        `mapstructure:"deployment"`
	APIVersion  string        `mapstructure:"api_version"`
	OpenAIKey   string        `mapstructure:"openai_api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Lenient     bool          `mapstructure:"lenient"`
}

// PipelineConfig holds processing knobs.
type PipelineConfig struct {
	LayoutPath     string        `mapstructure:"layout_path"`
	ProcessTimeout time.Duration `mapstructure:"process_timeout"`
	Workers        int           `mapstructure:"workers"`
	QueueSize      int           `mapstructure:"queue_size"`
	SaveOCRDir     string        `mapstructure:"save_ocr_dir"`
}

// WatchConfig configures the inbox watcher used by serve.
type WatchConfig struct {
	Roots       []string      `mapstructure:"roots"`
	InitialScan bool          `mapstructure:"initial_scan"`
	Debounce    time.Duration `mapstructure:"debounce"`
}

// LogConfig configures slog.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// env bindings keep the variable names operators already use for these services.
var envBindings = map[string]string{
	"store.dsn":            "DB_URL",
	"store.driver":         "DB_DRIVER",
	"server.grpc_addr":     "GRPC_ADDR",
	"server.http_addr":     "HTTP_ADDR",
	"ocr.endpoint":         "AZURE_DOCUMENT_INTELLIGENCE_ENDPOINT",
	"ocr.api_key":          "AZURE_DOCUMENT_INTELLIGENCE_KEY",
	"llm.endpoint":         "AZURE_OPENAI_ENDPOINT",
	"llm.api_key":          "AZURE_OPENAI_KEY",
	"llm.deployment":       "AZURE_OPENAI_DEPLOYMENT",
	"llm.api_version":      "AZURE_OPENAI_API_VERSION",
	"llm.openai_api_key":   "OPENAI_API_KEY",
	"llm.model":            "OPENAI_MODEL",
	"pipeline.layout_path": "FORM_LAYOUT_PATH",
	"log.level":            "LOG_LEVEL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("store.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("store.max_conn_idle_time", 5*time.Minute)
	v.SetDefault("store.dial_timeout", 3*time.Second)
	v.SetDefault("store.statement_timeout", time.Duration(0))

	v.SetDefault("server.grpc_addr", ":8080")
	v.SetDefault("server.http_addr", ":8081")
	v.SetDefault("server.max_upload_bytes", int64(20<<20))
	v.SetDefault("server.path_roots", []string{})

	v.SetDefault("ocr.api_version", "2024-11-30")
	v.SetDefault("ocr.model", "prebuilt-layout")
	v.SetDefault("ocr.poll_interval", time.Second)
	v.SetDefault("ocr.poll_attempts", 120)
	v.SetDefault("ocr.timeout", 60*time.Second)

	v.SetDefault("llm.api_version", "2024-02-15-preview")
	v.SetDefault("llm.deployment", "gpt-4o")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.timeout", 90*time.Second)
	v.SetDefault("llm.lenient", true)

	v.SetDefault("pipeline.process_timeout", 3*time.Minute)
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.queue_size", 64)

	v.SetDefault("watch.initial_scan", false)
	v.SetDefault("watch.debounce", 500*time.Millisecond)

	v.SetDefault("log.level", "info")
}

// LoadConfig reads defaults, an optional YAML file and the environment.
// CLAIMS_<SECTION>_<KEY> overrides any key; the service-specific names in
// envBindings are honoured as well.
func LoadConfig(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CLAIMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, "CLAIMS_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("claims-extractor")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.claims-extractor")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, NewAppError(CodeConfig, "read config file", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, NewAppError(CodeConfig, "decode config", err)
	}
	if cfg.Store.Driver == "postgres" && strings.HasPrefix(cfg.Store.DSN, "file:") {
		cfg.Store.Driver = "sqlite"
	}
	return &cfg, nil
}

// UsesAzureOpenAI reports whether completions go to an Azure OpenAI deployment.
func (c LLMConfig) UsesAzureOpenAI() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

// ValidateOCR checks the layout-service credentials.
func (c *Config) ValidateOCR() error {
	if c.OCR.Endpoint == "" {
		return NewAppError(CodeConfig, "AZURE_DOCUMENT_INTELLIGENCE_ENDPOINT is required", ErrInvalidInput)
	}
	if c.OCR.APIKey == "" {
		return NewAppError(CodeConfig, "AZURE_DOCUMENT_INTELLIGENCE_KEY is required", ErrInvalidInput)
	}
	return nil
}

// ValidateLLM checks the completion-service credentials.
func (c *Config) ValidateLLM() error {
	if c.LLM.UsesAzureOpenAI() {
		if c.LLM.APIKey == "" {
			return NewAppError(CodeConfig, "AZURE_OPENAI_KEY is required", ErrInvalidInput)
		}
		if c.LLM.Deployment == "" {
			return NewAppError(CodeConfig, "AZURE_OPENAI_DEPLOYMENT is required", ErrInvalidInput)
		}
		return nil
	}
	if c.LLM.OpenAIKey == "" {
		return NewAppError(CodeConfig, "AZURE_OPENAI_ENDPOINT or OPENAI_API_KEY is required", ErrInvalidInput)
	}
	return nil
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if err := c.ValidateOCR(); err != nil {
		return err
	}
	if err := c.ValidateLLM(); err != nil {
		return err
	}
	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		return NewAppError(CodeConfig, fmt.Sprintf("unknown store driver %q", c.Store.Driver), ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" && c.Server.HTTPAddr == "" {
		return NewAppError(CodeConfig, "GRPC_ADDR or HTTP_ADDR is required", ErrInvalidInput)
	}
	return nil
}

// ParseLogLevel maps debug|info|warn|error onto slog levels; unknown values mean info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
