// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Placeholder fallbacks. They let the process boot but must be overridden
// before the ledger is reachable.
const (
	PlaceholderRPCURL          = "https://sepolia.infura.io/v3/YOUR_INFURA_KEY"
	PlaceholderContractAddress = "0x..."
)

// Config holds all configuration for the application
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Ledger        LedgerConfig       `mapstructure:"ledger"`
	Query         QueryConfig        `mapstructure:"query"`
	Wallet        WalletConfig       `mapstructure:"wallet"`
	Client        ClientConfig       `mapstructure:"client"`
	Storage       StorageConfig      `mapstructure:"storage"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Server        ServerConfig       `mapstructure:"server"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// LedgerConfig describes the RPC endpoint and the deployed hackathon contract
type LedgerConfig struct {
	RPCURL              string        `mapstructure:"rpc_url"`
	BackupURLs          []string      `mapstructure:"backup_urls"`
	ContractAddress     string        `mapstructure:"contract_address"`
	ChainID             int64         `mapstructure:"chain_id"`
	CallTimeout         time.Duration `mapstructure:"call_timeout"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	RetryAttempts       int           `mapstructure:"retry_attempts"`
	RetryDelay          time.Duration `mapstructure:"retry_delay"`
	ReceiptPollInterval time.Duration `mapstructure:"receipt_poll_interval"`
	ReceiptTimeout      time.Duration `mapstructure:"receipt_timeout"`
	Confirmations       int           `mapstructure:"confirmations"`
}

// QueryConfig tunes the read side
type QueryConfig struct {
	FetchConcurrency int `mapstructure:"fetch_concurrency"`
}

// WalletConfig holds the signing key used by write commands
type WalletConfig struct {
	PrivateKey string `mapstructure:"private_key"`
}

// ClientConfig points the CLI shell at a running query API
type ClientConfig struct {
	APIBaseURL string        `mapstructure:"api_base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// StorageConfig contains database configuration
type StorageConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Type             string        `mapstructure:"type"` // sqlite, postgres
	ConnectionString string        `mapstructure:"connection_string"`
	MaxConnections   int           `mapstructure:"max_connections"`
	MaxIdleTime      time.Duration `mapstructure:"max_idle_time"`
}

// NotificationConfig contains user notification configuration
type NotificationConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	WebhookURL          string        `mapstructure:"webhook_url"`
	NotificationTimeout time.Duration `mapstructure:"notification_timeout"`
	RetryAttempts       int           `mapstructure:"retry_attempts"`
	RetryDelay          time.Duration `mapstructure:"retry_delay"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	Host           string        `mapstructure:"host"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	EnableMetrics  bool          `mapstructure:"enable_metrics"`
	EnableHealth   bool          `mapstructure:"enable_health"`
	DistinctErrors bool          `mapstructure:"distinct_errors"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
	Output string `mapstructure:"output"` // stdout, file
	File   string `mapstructure:"file"`
}

// Load loads configuration from an optional .env file, the config file and
// environment variables, in increasing order of precedence.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./internal/config")
	}

	v.SetEnvPrefix("HACKATHON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// bindEnv maps the short variable names the deployment scripts export
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("ledger.rpc_url", "HACKATHON_LEDGER_RPC_URL", "RPC_URL")
	_ = v.BindEnv("ledger.contract_address", "HACKATHON_LEDGER_CONTRACT_ADDRESS", "CONTRACT_ADDRESS")
	_ = v.BindEnv("ledger.chain_id", "HACKATHON_LEDGER_CHAIN_ID", "CHAIN_ID")
	_ = v.BindEnv("server.port", "HACKATHON_SERVER_PORT", "PORT")
	_ = v.BindEnv("wallet.private_key", "HACKATHON_WALLET_PRIVATE_KEY", "PRIVATE_KEY")
	_ = v.BindEnv("client.api_base_url", "HACKATHON_CLIENT_API_BASE_URL", "API_BASE_URL")
	_ = v.BindEnv("storage.connection_string", "HACKATHON_STORAGE_CONNECTION_STRING", "DATABASE_URL")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "hackathon-platform")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)

	v.SetDefault("ledger.rpc_url", PlaceholderRPCURL)
	v.SetDefault("ledger.backup_urls", []string{})
	v.SetDefault("ledger.contract_address", PlaceholderContractAddress)
	v.SetDefault("ledger.chain_id", 11155111) // Sepolia
	v.SetDefault("ledger.call_timeout", "10s")
	v.SetDefault("ledger.request_timeout", "30s")
	v.SetDefault("ledger.retry_attempts", 3)
	v.SetDefault("ledger.retry_delay", "2s")
	v.SetDefault("ledger.receipt_poll_interval", "2s")
	v.SetDefault("ledger.receipt_timeout", "5m")
	v.SetDefault("ledger.confirmations", 1)

	v.SetDefault("query.fetch_concurrency", 4)

	v.SetDefault("client.api_base_url", "http://localhost:5000/api")
	v.SetDefault("client.timeout", "30s")

	v.SetDefault("storage.enabled", true)
	v.SetDefault("storage.type", "sqlite")
	v.SetDefault("storage.connection_string", "./data/hackathons.db")
	v.SetDefault("storage.max_connections", 10)
	v.SetDefault("storage.max_idle_time", "15m")

	v.SetDefault("notifications.enabled", true)
	v.SetDefault("notifications.notification_timeout", "10s")
	v.SetDefault("notifications.retry_attempts", 3)
	v.SetDefault("notifications.retry_delay", "2s")

	v.SetDefault("server.port", 5000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.enable_metrics", true)
	v.SetDefault("server.enable_health", true)
	v.SetDefault("server.distinct_errors", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
}

// Validate validates the settings every command needs
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}
	if c.Ledger.CallTimeout <= 0 {
		return fmt.Errorf("ledger call timeout must be positive")
	}
	if c.Query.FetchConcurrency <= 0 {
		return fmt.Errorf("query fetch concurrency must be positive")
	}
	if c.Storage.Enabled && c.Storage.ConnectionString == "" {
		return fmt.Errorf("storage connection string is required")
	}
	return nil
}

// ValidateLedger checks that the ledger settings were overridden from their
// placeholders. Commands that talk to the contract call it.
func (c *Config) ValidateLedger() error {
	if c.Ledger.RPCURL == "" || c.Ledger.RPCURL == PlaceholderRPCURL {
		return fmt.Errorf("ledger RPC URL is not configured (set RPC_URL)")
	}
	if !common.IsHexAddress(c.Ledger.ContractAddress) {
		return fmt.Errorf("contract address %q is not a valid address (set CONTRACT_ADDRESS)", c.Ledger.ContractAddress)
	}
	if c.Ledger.ChainID <= 0 {
		return fmt.Errorf("ledger chain id must be positive")
	}
	return nil
}

// ContractAddress returns the parsed contract address
func (c *Config) ContractAddress() common.Address {
	return common.HexToAddress(c.Ledger.ContractAddress)
}
