// Package config loads presale settings: defaults, then an optional TOML
// file, then environment variables, then validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"solana-presale/internal/domain"
	"solana-presale/internal/solana"
)

// ErrInvalidConfig is returned when the merged configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Sale holds the immutable sale parameters.
type Sale struct {
	StartTime          int64  `toml:"start_time" env:"PRESALE_START_TIME" validate:"gt=0"`
	EndTime            int64  `toml:"end_time" env:"PRESALE_END_TIME" validate:"gtfield=StartTime"`
	ContributionAsset  string `toml:"contribution_asset" env:"WETH_ADDRESS" validate:"required,base58addr"`
	SettlementAsset    string `toml:"settlement_asset" env:"EXC_ADDRESS" validate:"required,base58addr"`
	Exchange           string `toml:"exchange" env:"FACTORY_ADDRESS" validate:"required,base58addr"`
	DistributionTarget string `toml:"distribution_target" env:"DIVIDENDS_ADDRESS" validate:"required,base58addr"`
	DistributionBps    uint32 `toml:"distribution_bps" env:"PRESALE_DISTRIBUTION_BPS" validate:"lte=10000"`
	Owner              string `toml:"owner" env:"PRESALE_OWNER" validate:"required,base58addr"`
	ProgramID          string `toml:"program_id" env:"PRESALE_PROGRAM_ID" validate:"required,base58addr"`
}

// Storage selects and locates the journal and analytics backends.
type Storage struct {
	UseMemory     bool   `toml:"use_memory" env:"USE_MEMORY"`
	PostgresDSN   string `toml:"postgres_dsn" env:"POSTGRES_DSN"`
	ClickHouseDSN string `toml:"clickhouse_dsn" env:"CLICKHOUSE_DSN"`
}

// Kafka configures the event publisher. Empty Brokers disables it.
type Kafka struct {
	Brokers []string `toml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `toml:"topic" env:"KAFKA_TOPIC"`
}

// Config is the full process configuration.
type Config struct {
	Sale     Sale    `toml:"sale"`
	Storage  Storage `toml:"storage"`
	Kafka    Kafka   `toml:"kafka"`
	HTTPAddr string  `toml:"http_addr" env:"HTTP_ADDR" validate:"required"`
	LogLevel string  `toml:"log_level" env:"LOG_LEVEL" validate:"oneof=trace debug info warn error"`
	LogJSON  bool    `toml:"log_json" env:"LOG_JSON"`
}

// Default returns the built-in defaults. Sale parameters have none.
func Default() Config {
	return Config{
		Kafka:    Kafka{Topic: "presale.events"},
		HTTPAddr: ":8080",
		LogLevel: "info",
	}
}

// Load merges defaults, the TOML file at path (skipped when empty) and the
// environment, then validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Sale.ContributionAsset = strings.TrimSpace(c.Sale.ContributionAsset)
	c.Sale.SettlementAsset = strings.TrimSpace(c.Sale.SettlementAsset)
	c.Sale.Exchange = strings.TrimSpace(c.Sale.Exchange)
	c.Sale.DistributionTarget = strings.TrimSpace(c.Sale.DistributionTarget)
	c.Sale.Owner = strings.TrimSpace(c.Sale.Owner)
	c.Sale.ProgramID = strings.TrimSpace(c.Sale.ProgramID)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))

	brokers := c.Kafka.Brokers[:0]
	for _, b := range c.Kafka.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	c.Kafka.Brokers = brokers
}

// Validate checks field rules and cross-field constraints.
func (c Config) Validate() error {
	v := validator.New()
	if err := solana.RegisterValidators(v); err != nil {
		return err
	}
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if !c.Storage.UseMemory && (c.Storage.PostgresDSN == "" || c.Storage.ClickHouseDSN == "") {
		return fmt.Errorf("%w: postgres and clickhouse DSNs are required unless use_memory is set", ErrInvalidConfig)
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("%w: kafka topic is required when brokers are set", ErrInvalidConfig)
	}
	return nil
}

// SaleConfig converts the sale section into the domain configuration.
func (c Config) SaleConfig() domain.SaleConfig {
	return domain.SaleConfig{
		ContributionAsset:  c.Sale.ContributionAsset,
		SettlementAsset:    c.Sale.SettlementAsset,
		Exchange:           c.Sale.Exchange,
		DistributionTarget: c.Sale.DistributionTarget,
		StartTime:          c.Sale.StartTime,
		EndTime:            c.Sale.EndTime,
		DistributionBps:    c.Sale.DistributionBps,
	}
}

// LoadEnvFile loads a dotenv file into the process environment.
// Variables already set are left alone. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
