// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Ethereum  EthereumConfig  `mapstructure:"ethereum"`
	Contracts ContractsConfig `mapstructure:"contracts"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	ETHPrice  ETHPriceConfig  `mapstructure:"ethprice"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Health    HealthConfig    `mapstructure:"health"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// EthereumConfig holds the JSON-RPC endpoint and signing settings.
type EthereumConfig struct {
	RPCURL  string `mapstructure:"rpc_url"`
	ChainID uint64 `mapstructure:"chain_id"` // 0 asks the node
	// PrivateKey is hex, with or without 0x. Usually supplied through env.
	PrivateKey          string        `mapstructure:"private_key"`
	RequestsPerSecond   float64       `mapstructure:"requests_per_second"`
	RequestBurst        int           `mapstructure:"request_burst"`
	ConfirmationTimeout time.Duration `mapstructure:"confirmation_timeout"`
	ReceiptPollInterval time.Duration `mapstructure:"receipt_poll_interval"`
	GasLimit            uint64        `mapstructure:"gas_limit"`
	MaxGasPriceGwei     float64       `mapstructure:"max_gas_price_gwei"`
	GasPriceCacheTTL    time.Duration `mapstructure:"gas_price_cache_ttl"`
}

// ContractsConfig holds the router and arbitrage contract addresses.
type ContractsConfig struct {
	UniRouter   string `mapstructure:"uni_router"`
	SushiRouter string `mapstructure:"sushi_router"`
	Arbitrage   string `mapstructure:"arbitrage"`
}

func (c *ContractsConfig) UniRouterAddress() common.Address {
	return common.HexToAddress(c.UniRouter)
}

func (c *ContractsConfig) SushiRouterAddress() common.Address {
	return common.HexToAddress(c.SushiRouter)
}

func (c *ContractsConfig) ArbitrageAddress() common.Address {
	return common.HexToAddress(c.Arbitrage)
}

// MonitorConfig drives the opportunity loop.
type MonitorConfig struct {
	SpreadThresholdPercent float64       `mapstructure:"spread_threshold_percent"`
	CycleDelay             time.Duration `mapstructure:"cycle_delay"`
	BackoffDelay           time.Duration `mapstructure:"backoff_delay"`
	MaxConsecutiveFailures int           `mapstructure:"max_consecutive_failures"`
	RequoteBeforeSubmit    bool          `mapstructure:"requote_before_submit"`
	GasUnits               uint64        `mapstructure:"gas_units"`
	ProfitDecimals         uint8         `mapstructure:"profit_decimals"`
	LogDir                 string        `mapstructure:"log_dir"`
	Pairs                  []PairConfig  `mapstructure:"pairs"`
}

// SpreadThresholdDecimal returns the spread threshold as decimal.Decimal.
func (c *MonitorConfig) SpreadThresholdDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.SpreadThresholdPercent)
}

// PairConfig is one monitored pair as written in the config file.
type PairConfig struct {
	Name      string `mapstructure:"name"`
	Token     string `mapstructure:"token"`
	BaseToken string `mapstructure:"base_token"`
	// Amount is a human-readable decimal string, scaled by Decimals at startup.
	Amount        string  `mapstructure:"amount"`
	Decimals      uint8   `mapstructure:"decimals"`
	QuoteDecimals uint8   `mapstructure:"quote_decimals"` // 0 means same as Decimals
	MinProfitUSD  float64 `mapstructure:"min_profit_usd"`
}

func (p PairConfig) TokenAddress() common.Address {
	return common.HexToAddress(p.Token)
}

func (p PairConfig) BaseTokenAddress() common.Address {
	return common.HexToAddress(p.BaseToken)
}

// ETHPriceConfig selects where the ETH/USD rate for gas costing comes from.
type ETHPriceConfig struct {
	Source        string        `mapstructure:"source"` // static | chainlink
	StaticUSD     float64       `mapstructure:"static_usd"`
	ChainlinkFeed string        `mapstructure:"chainlink_feed"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	MaxAge        time.Duration `mapstructure:"max_age"` // 0 accepts any round age
}

// JournalConfig enables the sqlite trade journal when Path is set.
type JournalConfig struct {
	Path string `mapstructure:"path"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	OTLPInsecure   bool   `mapstructure:"otlp_insecure"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Headers parses OTLPHeaders ("k1=v1,k2=v2").
func (c *TelemetryConfig) Headers() map[string]string {
	out := make(map[string]string)
	for _, kv := range strings.Split(c.OTLPHeaders, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(kv), "=")
		if ok && k != "" {
			out[k] = v
		}
	}
	return out
}

// HealthConfig holds the health server port. Zero disables it.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("ARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDerived()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	_ = v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	_ = v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	_ = v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")

	// Ethereum
	_ = v.BindEnv("ethereum.rpc_url", "ARB_RPC_URL", "BASE_MAINNET_URL")
	_ = v.BindEnv("ethereum.chain_id", "ARB_CHAIN_ID")
	_ = v.BindEnv("ethereum.private_key", "ARB_PRIVATE_KEY", "PRIVATE_KEY")

	// Contracts
	_ = v.BindEnv("contracts.uni_router", "ARB_UNI_ROUTER")
	_ = v.BindEnv("contracts.sushi_router", "ARB_SUSHI_ROUTER")
	_ = v.BindEnv("contracts.arbitrage", "ARB_CONTRACT_ADDRESS", "ARBITRAGE_CONTRACT_ADDRESS")

	// Monitor
	_ = v.BindEnv("monitor.spread_threshold_percent", "ARB_SPREAD_THRESHOLD")
	_ = v.BindEnv("monitor.log_dir", "ARB_LOG_DIR")

	// ETH price
	_ = v.BindEnv("ethprice.source", "ARB_ETHPRICE_SOURCE")
	_ = v.BindEnv("ethprice.chainlink_feed", "ARB_CHAINLINK_FEED")
	_ = v.BindEnv("ethprice.max_age", "ARB_ETHPRICE_MAX_AGE")

	// Journal
	_ = v.BindEnv("journal.path", "ARB_JOURNAL_PATH")

	// Telemetry
	_ = v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	_ = v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	_ = v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	_ = v.BindEnv("telemetry.otlp_headers", "ARB_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
}

// Base mainnet defaults.
const (
	baseWETH  = "0x4200000000000000000000000000000000000006"
	baseUSDC  = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
	baseCBETH = "0x2Ae3F1Ec7F1F5012CFEab0185bfc7aa3cf0DEc22"
	baseDAI   = "0x50c5725949A6F0c72E6C4a641F24049A917DB0Cb"
	baseUSDbC = "0xd9aAEc86B65D86f6A7B5B1b0c42FFA531710b6CA"
)

func defaultPairs() []map[string]any {
	return []map[string]any{
		{"name": "WETH/USDC", "token": baseWETH, "base_token": baseUSDC, "amount": "0.1", "decimals": 18, "min_profit_usd": 5},
		{"name": "cbETH/WETH", "token": baseCBETH, "base_token": baseWETH, "amount": "0.1", "decimals": 18, "min_profit_usd": 3},
		{"name": "DAI/USDbC", "token": baseDAI, "base_token": baseUSDbC, "amount": "1000", "decimals": 18, "min_profit_usd": 10},
	}
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "dex-arb-monitor")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Ethereum defaults
	v.SetDefault("ethereum.rpc_url", "https://mainnet.base.org")
	v.SetDefault("ethereum.chain_id", 8453)
	v.SetDefault("ethereum.requests_per_second", 10)
	v.SetDefault("ethereum.request_burst", 5)
	v.SetDefault("ethereum.confirmation_timeout", "2m")
	v.SetDefault("ethereum.receipt_poll_interval", "1s")
	v.SetDefault("ethereum.gas_limit", 500000)
	v.SetDefault("ethereum.max_gas_price_gwei", 0)
	v.SetDefault("ethereum.gas_price_cache_ttl", "0s")

	// Base router defaults
	v.SetDefault("contracts.uni_router", "0x2626664c2603336E57B271c5C0b26F421741e481")
	v.SetDefault("contracts.sushi_router", "0x8d0A41961D9D80e00B665cB754174c5D4D736B6F")

	// Monitor defaults
	v.SetDefault("monitor.spread_threshold_percent", 0.5)
	v.SetDefault("monitor.cycle_delay", "2s")
	v.SetDefault("monitor.max_consecutive_failures", 0)
	v.SetDefault("monitor.requote_before_submit", true)
	v.SetDefault("monitor.gas_units", 200000)
	v.SetDefault("monitor.profit_decimals", 18)
	v.SetDefault("monitor.log_dir", ".")
	v.SetDefault("monitor.pairs", defaultPairs())

	// ETH price defaults
	v.SetDefault("ethprice.source", "static")
	v.SetDefault("ethprice.static_usd", 3000)
	v.SetDefault("ethprice.cache_ttl", "30s")
	v.SetDefault("ethprice.max_age", "1h")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "dex-arb-monitor")
	v.SetDefault("telemetry.trace_provider", "none")
	v.SetDefault("telemetry.prometheus_port", 9090)

	// Health defaults
	v.SetDefault("health.port", 8081)
}

func (c *Config) applyDerived() {
	if c.Monitor.BackoffDelay == 0 {
		c.Monitor.BackoffDelay = c.Monitor.CycleDelay
	}
	for i := range c.Monitor.Pairs {
		p := &c.Monitor.Pairs[i]
		if p.QuoteDecimals == 0 {
			p.QuoteDecimals = p.Decimals
		}
		if p.Name == "" {
			p.Name = shortHex(p.Token) + "/" + shortHex(p.BaseToken)
		}
	}
}

func shortHex(addr string) string {
	if len(addr) <= 6 {
		return addr
	}
	return addr[:6] + "..."
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ethereum.RPCURL == "" {
		return fmt.Errorf("ethereum.rpc_url is required")
	}
	if c.Ethereum.ConfirmationTimeout <= 0 {
		return fmt.Errorf("ethereum.confirmation_timeout must be positive")
	}
	if c.Ethereum.ReceiptPollInterval <= 0 {
		return fmt.Errorf("ethereum.receipt_poll_interval must be positive")
	}
	if !common.IsHexAddress(c.Contracts.UniRouter) {
		return fmt.Errorf("invalid contracts.uni_router: %q", c.Contracts.UniRouter)
	}
	if !common.IsHexAddress(c.Contracts.SushiRouter) {
		return fmt.Errorf("invalid contracts.sushi_router: %q", c.Contracts.SushiRouter)
	}
	if !common.IsHexAddress(c.Contracts.Arbitrage) {
		return fmt.Errorf("invalid contracts.arbitrage: %q", c.Contracts.Arbitrage)
	}
	if c.Monitor.SpreadThresholdPercent < 0 {
		return fmt.Errorf("monitor.spread_threshold_percent cannot be negative")
	}
	if c.Monitor.CycleDelay < 0 || c.Monitor.BackoffDelay < 0 {
		return fmt.Errorf("monitor delays cannot be negative")
	}
	if c.Monitor.MaxConsecutiveFailures < 0 {
		return fmt.Errorf("monitor.max_consecutive_failures cannot be negative")
	}
	if len(c.Monitor.Pairs) == 0 {
		return fmt.Errorf("monitor.pairs cannot be empty")
	}
	for i, p := range c.Monitor.Pairs {
		if err := p.validate(); err != nil {
			return fmt.Errorf("monitor.pairs[%d] (%s): %w", i, p.Name, err)
		}
	}
	switch c.ETHPrice.Source {
	case "static":
		if c.ETHPrice.StaticUSD <= 0 {
			return fmt.Errorf("ethprice.static_usd must be positive")
		}
	case "chainlink":
		if !common.IsHexAddress(c.ETHPrice.ChainlinkFeed) {
			return fmt.Errorf("invalid ethprice.chainlink_feed: %q", c.ETHPrice.ChainlinkFeed)
		}
		if c.ETHPrice.MaxAge < 0 {
			return fmt.Errorf("ethprice.max_age must not be negative")
		}
	default:
		return fmt.Errorf("unknown ethprice.source %q", c.ETHPrice.Source)
	}
	return nil
}

func (p PairConfig) validate() error {
	if !common.IsHexAddress(p.Token) {
		return fmt.Errorf("invalid token %q", p.Token)
	}
	if !common.IsHexAddress(p.BaseToken) {
		return fmt.Errorf("invalid base_token %q", p.BaseToken)
	}
	amount, err := decimal.NewFromString(p.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", p.Amount, err)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be positive")
	}
	if -amount.Exponent() > int32(p.Decimals) {
		return fmt.Errorf("amount %s has more than %d decimals", p.Amount, p.Decimals)
	}
	if p.MinProfitUSD < 0 {
		return fmt.Errorf("min_profit_usd cannot be negative")
	}
	return nil
}
