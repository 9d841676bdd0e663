package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	Cron   CronConfig   `mapstructure:"cron"`

	Engine       EngineConfig       `mapstructure:"engine"`
	PriceFeed    PriceFeedConfig    `mapstructure:"price_feed"`
	StrategyFeed StrategyFeedConfig `mapstructure:"strategy_feed"`
	History      HistoryConfig      `mapstructure:"history"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	HistoryPrune string `mapstructure:"history_prune"`
}

type EngineConfig struct {
	TickInterval  time.Duration `mapstructure:"tick_interval"`
	TickTimeout   time.Duration `mapstructure:"tick_timeout"`
	TargetSymbols []string      `mapstructure:"target_symbols"`
	Timeframes    []string      `mapstructure:"timeframes"`
	UrgencyLevels []string      `mapstructure:"urgency_levels"`
	MinConfidence float64       `mapstructure:"min_confidence"`
	CandidateMax  int           `mapstructure:"candidate_max"`
}

type PriceFeedConfig struct {
	Endpoint string            `mapstructure:"endpoint"`
	CacheTTL time.Duration     `mapstructure:"cache_ttl"`
	Stream   PriceStreamConfig `mapstructure:"stream"`
}

type PriceStreamConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type StrategyFeedConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type HistoryConfig struct {
	RetentionDays int `mapstructure:"retention_days"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.history_prune", "@every 6h")

	v.SetDefault("engine.tick_interval", "30s")
	v.SetDefault("engine.tick_timeout", "25s")
	v.SetDefault("engine.target_symbols", []string{
		"BTCUSDT", "ETHUSDT", "BNBUSDT", "SOLUSDT", "XRPUSDT", "ADAUSDT", "DOGEUSDT",
	})
	v.SetDefault("engine.timeframes", []string{})
	v.SetDefault("engine.urgency_levels", []string{})
	v.SetDefault("engine.min_confidence", 0.5)
	v.SetDefault("engine.candidate_max", 100)

	v.SetDefault("price_feed.endpoint", "https://api.binance.com/api/v3/ticker/price")
	v.SetDefault("price_feed.cache_ttl", "5m")
	v.SetDefault("price_feed.stream.enabled", false)
	v.SetDefault("price_feed.stream.url", "wss://stream.binance.com:9443/stream")

	v.SetDefault("strategy_feed.base_url", "")
	v.SetDefault("strategy_feed.timeout", "15s")

	v.SetDefault("history.retention_days", 90)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
