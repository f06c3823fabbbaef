package config

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverSheets = "sheets"
	DriverMySQL  = "mysql"
	DriverRedis  = "redis"
)

type Configuration struct {
	Server  ServerConfig  `validate:"required"`
	Logging LoggingConfig `validate:"required"`
	Store   StoreConfig   `validate:"required"`
	Sheets  SheetsConfig
	MySQL   MySQLConfig
	Redis   RedisConfig
	Cache   CacheConfig
	Retry   RetryConfig
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level string `validate:"required"`
}

// StoreConfig selects where the control counter lives. DriverRedis keeps the
// counter in Redis (atomic Lua reserve) while reference data and the ledger
// stay in MySQL.
type StoreConfig struct {
	Driver    string        `validate:"required,oneof=sheets mysql redis"`
	OpTimeout time.Duration `mapstructure:"op_timeout"`
}

type SheetsConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type MySQLConfig struct {
	DSN string
}

type RedisConfig struct {
	Addr     string
	PoolSize int `mapstructure:"pool_size"`
}

type CacheConfig struct {
	TTL time.Duration
}

type RetryConfig struct {
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	MaxRetries      uint64        `mapstructure:"max_retries"`
}

// NewConfig reads config.yaml (working dir, ./config, /etc/accrual) with
// ACCRUAL_* environment overrides.
func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/accrual")

	v.SetEnvPrefix("ACCRUAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", "info")
	v.SetDefault("store.driver", DriverSheets)
	v.SetDefault("store.op_timeout", 10*time.Second)
	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.credentials_file", "service_account.json")
	v.SetDefault("mysql.dsn", "root:root@tcp(localhost:3306)/accrual?parseTime=true")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 100)
	v.SetDefault("cache.ttl", 30*time.Second)
	v.SetDefault("retry.initial_interval", time.Second)
	v.SetDefault("retry.max_interval", 30*time.Second)
	v.SetDefault("retry.max_retries", 3)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}
