package common

import "time"

// Trading symbols
const (
	BTCUSDTSymbol = "BTCUSDT"
	ETHUSDTSymbol = "ETHUSDT"
	BNBUSDTSymbol = "BNBUSDT"
	SOLUSDTSymbol = "SOLUSDT"
)

// Strategy names the bot reports signals and trades under
const (
	StrategyMultiIndicator = "multi_indicator"
	StrategyMomentum       = "momentum"
	StrategyMeanReversion  = "mean_reversion"
	StrategyBreakout       = "breakout"
	StrategyScalping       = "scalping"
	StrategySwing          = "swing"
	StrategyMLPrediction   = "ml_prediction"
)

// Environment variable keys
const (
	EnvConfigFile        = "CONFIG_FILE"
	EnvHTTPPort          = "HTTP_PORT"
	EnvAllowedOrigins    = "ALLOWED_ORIGINS"
	EnvWSWriteTimeout    = "WS_WRITE_TIMEOUT"
	EnvRefreshInterval   = "REFRESH_INTERVAL"
	EnvRefreshBackoff    = "REFRESH_BACKOFF"
	EnvTickerInterval    = "TICKER_INTERVAL"
	EnvStreamInterval    = "STREAM_INTERVAL"
	EnvStoreDriver       = "STORE_DRIVER"
	EnvDataPath          = "DATA_PATH"
	EnvPostgresDSN       = "DATABASE_URL"
	EnvPGMaxConns        = "PG_MAX_CONNS"
	EnvBitunixAPIKey     = "BITUNIX_API_KEY"
	EnvBitunixSecretKey  = "BITUNIX_SECRET_KEY"
	EnvBaseURL           = "BASE_URL"
	EnvRESTTimeout       = "REST_TIMEOUT"
	EnvExchangeEnabled   = "EXCHANGE_ENABLED"
	EnvBotManagerURL     = "BOT_MANAGER_URL"
	EnvBotManagerTimeout = "BOT_MANAGER_TIMEOUT"
	EnvSymbols           = "SYMBOLS"
	EnvPaperTrading      = "PAPER_TRADING"
	EnvMaxPositions      = "MAX_POSITIONS"
	EnvStrategyWeights   = "STRATEGY_WEIGHTS"
	EnvTelegramEnabled   = "TELEGRAM_ENABLED"
	EnvLogLevel          = "LOG_LEVEL"
	EnvLogFormat         = "LOG_FORMAT"
	EnvLogBufferSize     = "LOG_BUFFER_SIZE"
)

// Store drivers
const (
	StoreBolt     = "bolt"
	StorePostgres = "postgres"
)

// Configuration defaults
const (
	DefaultHTTPPort          = 8080
	DefaultBaseURL           = "https://fapi.bitunix.com"
	DefaultDataPath          = "data"
	DefaultPGMaxConns        = 5
	DefaultMaxPositions      = 5
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "console"
	DefaultLogBufferSize     = 1000
	DefaultRefreshInterval   = 5 * time.Second
	DefaultRefreshBackoff    = 10 * time.Second
	DefaultTickerInterval    = 10 * time.Second
	DefaultStreamInterval    = 2 * time.Second
	DefaultRESTTimeout       = 5 * time.Second
	DefaultBotManagerTimeout = 5 * time.Second
	DefaultWSWriteTimeout    = 10 * time.Second
)

// DefaultStrategyWeights is used when no weights are configured.
func DefaultStrategyWeights() map[string]float64 {
	return map[string]float64{
		StrategyMultiIndicator: 0.3,
		StrategyMomentum:       0.2,
		StrategyMeanReversion:  0.15,
		StrategyBreakout:       0.15,
		StrategyScalping:       0,
		StrategySwing:          0.1,
		StrategyMLPrediction:   0.1,
	}
}
