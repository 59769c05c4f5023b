package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/retention-cli/internal/chart"
	"github.com/sells-group/retention-cli/internal/churn"
	"github.com/sells-group/retention-cli/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Sheets   SheetsConfig   `yaml:"sheets" mapstructure:"sheets"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Chart    ChartConfig    `yaml:"chart" mapstructure:"chart"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StoreConfig configures the run history backend. Driver is sqlite,
// postgres or none.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// SheetsConfig configures the spreadsheet source.
type SheetsConfig struct {
	SpreadsheetID   string  `yaml:"spreadsheet_id" mapstructure:"spreadsheet_id"`
	CredentialsFile string  `yaml:"credentials_file" mapstructure:"credentials_file"`
	Endpoint        string  `yaml:"endpoint" mapstructure:"endpoint"`
	TimeoutSecs     int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec      float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst           int     `yaml:"burst" mapstructure:"burst"`
	BreakerFailures int     `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerResetSec int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// Timeout returns the fetch deadline.
func (c SheetsConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// CacheConfig configures the worksheet cache. Backend is memory, redis,
// store or none.
type CacheConfig struct {
	Backend     string `yaml:"backend" mapstructure:"backend"`
	TTLMins     int    `yaml:"ttl_mins" mapstructure:"ttl_mins"`
	MaxEntries  int    `yaml:"max_entries" mapstructure:"max_entries"`
	RedisURL    string `yaml:"redis_url" mapstructure:"redis_url"`
	RedisPrefix string `yaml:"redis_prefix" mapstructure:"redis_prefix"`
}

// TTL returns the entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMins) * time.Minute
}

// AnalysisConfig holds the churn and survival constants.
type AnalysisConfig struct {
	TerminalStates   []string           `yaml:"terminal_states" mapstructure:"terminal_states"`
	ExtraStates      []string           `yaml:"extra_states" mapstructure:"extra_states"`
	CutoffWindowDays int                `yaml:"cutoff_window_days" mapstructure:"cutoff_window_days"`
	MonthDays        int                `yaml:"month_days" mapstructure:"month_days"`
	ShrinkFactor     float64            `yaml:"shrink_factor" mapstructure:"shrink_factor"`
	WeeklyWeights    map[string]float64 `yaml:"weekly_weights" mapstructure:"weekly_weights"`
	HorizonMonths    float64            `yaml:"horizon_months" mapstructure:"horizon_months"`
	PlanGroups       []int              `yaml:"plan_groups" mapstructure:"plan_groups"`
	Workers          int                `yaml:"workers" mapstructure:"workers"`
}

// Params converts the section into validated churn parameters. State names
// and weekly-plan prefixes are upper-cased since viper lower-cases map keys.
func (c AnalysisConfig) Params() (churn.Params, error) {
	p := churn.Params{
		TerminalStates:   states(c.TerminalStates),
		CutoffWindowDays: c.CutoffWindowDays,
		MonthDays:        c.MonthDays,
		ShrinkFactor:     c.ShrinkFactor,
		WeeklyWeights:    make(map[string]float64, len(c.WeeklyWeights)),
		HorizonMonths:    c.HorizonMonths,
		PlanGroups:       c.PlanGroups,
		Workers:          c.Workers,
	}
	for k, w := range c.WeeklyWeights {
		p.WeeklyWeights[strings.ToUpper(k)] = w
	}
	if err := p.Validate(); err != nil {
		return churn.Params{}, eris.Wrap(err, "config: analysis")
	}
	return p, nil
}

// Extra returns the additional accepted non-terminal states.
func (c AnalysisConfig) Extra() []model.TutoringState {
	return states(c.ExtraStates)
}

func states(raw []string) []model.TutoringState {
	out := make([]model.TutoringState, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, model.TutoringState(strings.ToUpper(s)))
		}
	}
	return out
}

// FetchConfig configures upload fetching over HTTP and FTP.
type FetchConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerHost float64 `yaml:"rate_per_host" mapstructure:"rate_per_host"`
	Charset     string  `yaml:"charset" mapstructure:"charset"`
}

// Timeout returns the per-request deadline.
func (c FetchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins     []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	MaxUploadMB        int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
}

// ChartConfig configures PNG rendering.
type ChartConfig struct {
	Width    int     `yaml:"width" mapstructure:"width"`
	Height   int     `yaml:"height" mapstructure:"height"`
	FontPath string  `yaml:"font_path" mapstructure:"font_path"`
	FontSize float64 `yaml:"font_size" mapstructure:"font_size"`
}

// Options converts the section into chart options.
func (c ChartConfig) Options() chart.Options {
	return chart.Options{Width: c.Width, Height: c.Height, FontPath: c.FontPath, FontSize: c.FontSize}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RETENTION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	def := churn.DefaultParams()
	terminal := make([]string, len(def.TerminalStates))
	for i, s := range def.TerminalStates {
		terminal[i] = string(s)
	}
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "retention.db")
	v.SetDefault("sheets.timeout_secs", 30)
	v.SetDefault("sheets.rate_per_sec", 1)
	v.SetDefault("sheets.burst", 1)
	v.SetDefault("sheets.breaker_failures", 5)
	v.SetDefault("sheets.breaker_reset_secs", 60)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl_mins", 10)
	v.SetDefault("cache.max_entries", 16)
	v.SetDefault("cache.redis_prefix", "retention:sheet:")
	v.SetDefault("analysis.terminal_states", terminal)
	v.SetDefault("analysis.extra_states", []string{})
	v.SetDefault("analysis.cutoff_window_days", def.CutoffWindowDays)
	v.SetDefault("analysis.month_days", def.MonthDays)
	v.SetDefault("analysis.shrink_factor", def.ShrinkFactor)
	v.SetDefault("analysis.weekly_weights", def.WeeklyWeights)
	v.SetDefault("analysis.horizon_months", def.HorizonMonths)
	v.SetDefault("analysis.plan_groups", def.PlanGroups)
	v.SetDefault("analysis.workers", def.Workers)
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.user_agent", "retention-cli/1.0")
	v.SetDefault("fetch.rate_per_host", 5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("server.request_timeout_secs", 60)
	v.SetDefault("chart.width", 960)
	v.SetDefault("chart.height", 540)
	v.SetDefault("chart.font_size", 13)

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

// Validate checks the settings a command mode depends on and reports every
// problem found. Modes are analyze, cache, sheet, serve, export and runs.
func (c *Config) Validate(mode string) error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	switch c.Store.Driver {
	case "sqlite", "postgres", "none":
	default:
		add("store.driver must be sqlite, postgres or none, got %q", c.Store.Driver)
	}
	switch c.Cache.Backend {
	case "memory", "redis", "store", "none":
	default:
		add("cache.backend must be memory, redis, store or none, got %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisURL == "" {
		add("cache.redis_url is required for the redis backend")
	}
	if c.Cache.Backend == "store" && c.Store.Driver == "none" {
		add("cache.backend store needs a store driver")
	}
	if _, err := c.Analysis.Params(); err != nil {
		add("%s", err.Error())
	}

	switch mode {
	case "analyze", "cache":
	case "sheet":
		if c.Sheets.SpreadsheetID == "" {
			add("sheets.spreadsheet_id is required")
		}
	case "serve":
		if c.Server.Port <= 0 {
			add("server.port must be > 0")
		}
	case "export":
		if c.Store.Driver != "postgres" || c.Store.DatabaseURL == "" {
			add("export needs store.driver postgres and store.database_url")
		}
	case "runs":
		if c.Store.Driver == "none" {
			add("run history needs a store driver")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
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
