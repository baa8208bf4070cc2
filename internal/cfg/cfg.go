package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"bot-dashboard/internal/common"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	HTTPPort        int
	AllowedOrigins  []string
	WSWriteTimeout  time.Duration
	RefreshInterval time.Duration
	RefreshBackoff  time.Duration
	TickerInterval  time.Duration
	StreamInterval  time.Duration

	StoreDriver string
	DataPath    string
	PostgresDSN string
	PGMaxConns  int

	ExchangeEnabled bool
	Key, Secret     string
	BaseURL         string
	RESTTimeout     time.Duration

	BotManagerURL     string
	BotManagerTimeout time.Duration

	Symbols         []string
	PaperTrading    bool
	MaxPositions    int
	StrategyWeights map[string]float64
	TelegramEnabled bool

	LogLevel      string
	LogFormat     string
	LogBufferSize int
}

type ConfigFile struct {
	Server struct {
		Port            int      `yaml:"port"`
		AllowedOrigins  []string `yaml:"allowedOrigins"`
		WSWriteTimeout  string   `yaml:"wsWriteTimeout"`
		RefreshInterval string   `yaml:"refreshInterval"`
		RefreshBackoff  string   `yaml:"refreshBackoff"`
		TickerInterval  string   `yaml:"tickerInterval"`
		StreamInterval  string   `yaml:"streamInterval"`
	} `yaml:"server"`

	Storage struct {
		Driver      string `yaml:"driver"`
		DataPath    string `yaml:"dataPath"`
		PostgresDSN string `yaml:"postgresDSN"`
		MaxConns    int    `yaml:"maxConns"`
	} `yaml:"storage"`

	API struct {
		Enabled     *bool  `yaml:"enabled"`
		Key         string `yaml:"key"`
		Secret      string `yaml:"secret"`
		BaseURL     string `yaml:"baseURL"`
		RESTTimeout string `yaml:"restTimeout"`
	} `yaml:"api"`

	BotManager struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"botManager"`

	Trading struct {
		Symbols         []string           `yaml:"symbols"`
		PaperTrading    bool               `yaml:"paperTrading"`
		MaxPositions    int                `yaml:"maxPositions"`
		StrategyWeights map[string]float64 `yaml:"strategyWeights"`
		TelegramEnabled bool               `yaml:"telegramEnabled"`
	} `yaml:"trading"`

	Logging struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		BufferSize int    `yaml:"bufferSize"`
	} `yaml:"logging"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	exchangeEnabled := true
	if config.API.Enabled != nil {
		exchangeEnabled = *config.API.Enabled
	}

	weights := config.Trading.StrategyWeights
	if env := os.Getenv(common.EnvStrategyWeights); env != "" {
		parsed, err := parseWeights(env)
		if err != nil {
			return Settings{}, err
		}
		weights = parsed
	}
	if len(weights) == 0 {
		weights = common.DefaultStrategyWeights()
	}

	// Environment variables override the file
	settings := Settings{
		HTTPPort:        getIntFromEnvOrConfig(common.EnvHTTPPort, config.Server.Port, common.DefaultHTTPPort),
		AllowedOrigins:  getListFromEnvOrConfig(common.EnvAllowedOrigins, config.Server.AllowedOrigins, nil),
		WSWriteTimeout:  getDurationFromEnvOrConfig(common.EnvWSWriteTimeout, config.Server.WSWriteTimeout, common.DefaultWSWriteTimeout),
		RefreshInterval: getDurationFromEnvOrConfig(common.EnvRefreshInterval, config.Server.RefreshInterval, common.DefaultRefreshInterval),
		RefreshBackoff:  getDurationFromEnvOrConfig(common.EnvRefreshBackoff, config.Server.RefreshBackoff, common.DefaultRefreshBackoff),
		TickerInterval:  getDurationFromEnvOrConfig(common.EnvTickerInterval, config.Server.TickerInterval, common.DefaultTickerInterval),
		StreamInterval:  getDurationFromEnvOrConfig(common.EnvStreamInterval, config.Server.StreamInterval, common.DefaultStreamInterval),

		StoreDriver: getEnvOrDefault(common.EnvStoreDriver, orDefault(config.Storage.Driver, common.StoreBolt)),
		DataPath:    getEnvOrDefault(common.EnvDataPath, orDefault(config.Storage.DataPath, common.DefaultDataPath)),
		PostgresDSN: getEnvOrDefault(common.EnvPostgresDSN, config.Storage.PostgresDSN),
		PGMaxConns:  getIntFromEnvOrConfig(common.EnvPGMaxConns, config.Storage.MaxConns, common.DefaultPGMaxConns),

		ExchangeEnabled: getBoolFromEnvOrConfig(common.EnvExchangeEnabled, exchangeEnabled),
		Key:             getEnvOrDefault(common.EnvBitunixAPIKey, config.API.Key),
		Secret:          getEnvOrDefault(common.EnvBitunixSecretKey, config.API.Secret),
		BaseURL:         getEnvOrDefault(common.EnvBaseURL, orDefault(config.API.BaseURL, common.DefaultBaseURL)),
		RESTTimeout:     getDurationFromEnvOrConfig(common.EnvRESTTimeout, config.API.RESTTimeout, common.DefaultRESTTimeout),

		BotManagerURL:     getEnvOrDefault(common.EnvBotManagerURL, config.BotManager.URL),
		BotManagerTimeout: getDurationFromEnvOrConfig(common.EnvBotManagerTimeout, config.BotManager.Timeout, common.DefaultBotManagerTimeout),

		Symbols:         getListFromEnvOrConfig(common.EnvSymbols, config.Trading.Symbols, []string{common.BTCUSDTSymbol}),
		PaperTrading:    getBoolFromEnvOrConfig(common.EnvPaperTrading, config.Trading.PaperTrading),
		MaxPositions:    getIntFromEnvOrConfig(common.EnvMaxPositions, config.Trading.MaxPositions, common.DefaultMaxPositions),
		StrategyWeights: weights,
		TelegramEnabled: getBoolFromEnvOrConfig(common.EnvTelegramEnabled, config.Trading.TelegramEnabled),

		LogLevel:      getEnvOrDefault(common.EnvLogLevel, orDefault(config.Logging.Level, common.DefaultLogLevel)),
		LogFormat:     getEnvOrDefault(common.EnvLogFormat, orDefault(config.Logging.Format, common.DefaultLogFormat)),
		LogBufferSize: getIntFromEnvOrConfig(common.EnvLogBufferSize, config.Logging.BufferSize, common.DefaultLogBufferSize),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	weights := common.DefaultStrategyWeights()
	if env := os.Getenv(common.EnvStrategyWeights); env != "" {
		parsed, err := parseWeights(env)
		if err != nil {
			return Settings{}, err
		}
		weights = parsed
	}

	settings := Settings{
		HTTPPort:        getIntOrDefault(common.EnvHTTPPort, common.DefaultHTTPPort),
		AllowedOrigins:  splitOrDefault(os.Getenv(common.EnvAllowedOrigins), nil),
		WSWriteTimeout:  getDurationOrDefault(common.EnvWSWriteTimeout, common.DefaultWSWriteTimeout),
		RefreshInterval: getDurationOrDefault(common.EnvRefreshInterval, common.DefaultRefreshInterval),
		RefreshBackoff:  getDurationOrDefault(common.EnvRefreshBackoff, common.DefaultRefreshBackoff),
		TickerInterval:  getDurationOrDefault(common.EnvTickerInterval, common.DefaultTickerInterval),
		StreamInterval:  getDurationOrDefault(common.EnvStreamInterval, common.DefaultStreamInterval),

		StoreDriver: getEnvOrDefault(common.EnvStoreDriver, common.StoreBolt),
		DataPath:    getEnvOrDefault(common.EnvDataPath, common.DefaultDataPath),
		PostgresDSN: os.Getenv(common.EnvPostgresDSN),
		PGMaxConns:  getIntOrDefault(common.EnvPGMaxConns, common.DefaultPGMaxConns),

		ExchangeEnabled: getBoolOrDefault(common.EnvExchangeEnabled, true),
		Key:             os.Getenv(common.EnvBitunixAPIKey),    // optional, private endpoints only
		Secret:          os.Getenv(common.EnvBitunixSecretKey), // optional
		BaseURL:         getEnvOrDefault(common.EnvBaseURL, common.DefaultBaseURL),
		RESTTimeout:     getDurationOrDefault(common.EnvRESTTimeout, common.DefaultRESTTimeout),

		BotManagerURL:     os.Getenv(common.EnvBotManagerURL),
		BotManagerTimeout: getDurationOrDefault(common.EnvBotManagerTimeout, common.DefaultBotManagerTimeout),

		Symbols:         splitOrDefault(os.Getenv(common.EnvSymbols), []string{common.BTCUSDTSymbol}),
		PaperTrading:    getBoolOrDefault(common.EnvPaperTrading, false),
		MaxPositions:    getIntOrDefault(common.EnvMaxPositions, common.DefaultMaxPositions),
		StrategyWeights: weights,
		TelegramEnabled: getBoolOrDefault(common.EnvTelegramEnabled, false),

		LogLevel:      getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		LogFormat:     getEnvOrDefault(common.EnvLogFormat, common.DefaultLogFormat),
		LogBufferSize: getIntOrDefault(common.EnvLogBufferSize, common.DefaultLogBufferSize),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// HasCredentials reports whether private exchange endpoints can be called.
func (s *Settings) HasCredentials() bool {
	return s.Key != "" && s.Secret != ""
}

// parseWeights reads "name=weight,name=weight".
func parseWeights(v string) (map[string]float64, error) {
	weights := make(map[string]float64)
	for _, pair := range strings.Split(v, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid strategy weight %q, expected name=weight", pair)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid strategy weight for %s: %w", name, err)
		}
		weights[strings.TrimSpace(name)] = w
	}
	return weights, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitOrDefault(v string, def []string) []string {
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getListFromEnvOrConfig(key string, configValue, def []string) []string {
	if env := os.Getenv(key); env != "" {
		return splitOrDefault(env, def)
	}
	if len(configValue) > 0 {
		return configValue
	}
	return def
}

func getIntFromEnvOrConfig(key string, configValue, def int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return def
}

func getDurationFromEnvOrConfig(key, configValue string, def time.Duration) time.Duration {
	if env := os.Getenv(key); env != "" {
		if d, err := time.ParseDuration(env); err == nil {
			return d
		}
	}
	if d, err := time.ParseDuration(configValue); err == nil {
		return d
	}
	return def
}

func getBoolFromEnvOrConfig(key string, configValue bool) bool {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseBool(env); err == nil {
			return val
		}
	}
	return configValue
}

// validateSettings checks that every value is usable before anything starts
func validateSettings(settings *Settings) error {
	// Validate server
	if settings.HTTPPort < 1 || settings.HTTPPort > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535, got %d", settings.HTTPPort)
	}

	// Validate time durations
	if settings.RefreshInterval < 100*time.Millisecond || settings.RefreshInterval > 10*time.Minute {
		return fmt.Errorf("refresh interval must be between 100ms and 10m, got %v", settings.RefreshInterval)
	}
	if settings.RefreshBackoff < settings.RefreshInterval {
		return fmt.Errorf("refresh backoff %v must not be shorter than the refresh interval %v", settings.RefreshBackoff, settings.RefreshInterval)
	}
	if settings.TickerInterval < time.Second || settings.TickerInterval > 10*time.Minute {
		return fmt.Errorf("ticker interval must be between 1s and 10m, got %v", settings.TickerInterval)
	}
	if settings.StreamInterval < 100*time.Millisecond || settings.StreamInterval > time.Minute {
		return fmt.Errorf("stream interval must be between 100ms and 1m, got %v", settings.StreamInterval)
	}
	if settings.WSWriteTimeout < time.Second || settings.WSWriteTimeout > time.Minute {
		return fmt.Errorf("WebSocket write timeout must be between 1s and 1m, got %v", settings.WSWriteTimeout)
	}
	if settings.RESTTimeout < time.Second || settings.RESTTimeout > time.Minute {
		return fmt.Errorf("REST timeout must be between 1s and 1m, got %v", settings.RESTTimeout)
	}
	if settings.BotManagerTimeout < time.Second || settings.BotManagerTimeout > time.Minute {
		return fmt.Errorf("bot manager timeout must be between 1s and 1m, got %v", settings.BotManagerTimeout)
	}

	// Validate storage
	switch settings.StoreDriver {
	case common.StoreBolt:
		if settings.DataPath == "" {
			return fmt.Errorf("data path cannot be empty for the bolt store")
		}
	case common.StorePostgres:
		if settings.PostgresDSN == "" {
			return fmt.Errorf("%s is required for the postgres store", common.EnvPostgresDSN)
		}
		if settings.PGMaxConns < 1 || settings.PGMaxConns > 100 {
			return fmt.Errorf("postgres max connections must be between 1 and 100, got %d", settings.PGMaxConns)
		}
	default:
		return fmt.Errorf("unknown store driver %q", settings.StoreDriver)
	}

	// Validate exchange
	if settings.ExchangeEnabled && settings.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	if (settings.Key == "") != (settings.Secret == "") {
		return fmt.Errorf("API key and secret must be set together")
	}

	// Validate trading view
	if len(settings.Symbols) == 0 {
		return fmt.Errorf("at least one trading symbol must be specified")
	}
	if settings.MaxPositions < 0 || settings.MaxPositions > 100 {
		return fmt.Errorf("max positions must be between 0 and 100, got %d", settings.MaxPositions)
	}
	for name, w := range settings.StrategyWeights {
		if w < 0 || w > 1 {
			return fmt.Errorf("strategy %s: weight must be between 0 and 1, got %f", name, w)
		}
	}

	// Validate logging
	switch strings.ToLower(settings.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("log format must be console or json, got %q", settings.LogFormat)
	}
	if settings.LogBufferSize < 1 || settings.LogBufferSize > 100000 {
		return fmt.Errorf("log buffer size must be between 1 and 100000, got %d", settings.LogBufferSize)
	}

	return nil
}
