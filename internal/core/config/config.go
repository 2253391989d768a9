package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}

type App struct {
	Name string
	Env  string
	HTTP HTTP
}

type Rotate struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level  string
	JSON   bool
	Rotate Rotate
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
}

type Redis struct {
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	ProductTTL int    `mapstructure:"product_ttl_sec"`
}

// Enabled reports whether a cache should be wired at all.
func (r Redis) Enabled() bool { return r.Addr != "" }

type Kafka struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

func (k Kafka) Enabled() bool { return len(k.Brokers) > 0 && k.Topic != "" }

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	PrepareStmt        bool
	LogLevel           string
	SlowThresholdMs    int
}

type Orders struct {
	AtomicPlacement bool `mapstructure:"atomic_placement"`
	DecrementStock  bool `mapstructure:"decrement_stock"`
}

type Limits struct {
	RPS           float64 `mapstructure:"rps"`
	Burst         int     `mapstructure:"burst"`
	PerIPRPS      float64 `mapstructure:"per_ip_rps"`
	PerIPBurst    int     `mapstructure:"per_ip_burst"`
	MaxInFlight   int64   `mapstructure:"max_in_flight"`
	MaxBodyBytes  int64   `mapstructure:"max_body_bytes"`
	RequestTimeMs int     `mapstructure:"request_timeout_ms"`
}

type Config struct {
	App    App
	Log    Log
	JWT    JWT
	DB     DB
	Redis  Redis  `mapstructure:"redis"`
	Kafka  Kafka  `mapstructure:"kafka"`
	Orders Orders `mapstructure:"orders"`
	Limits Limits `mapstructure:"limits"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "shop-api")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readtimeoutsec", 5)
	v.SetDefault("app.http.writetimeoutsec", 10)
	v.SetDefault("app.http.idletimeoutsec", 60)

	v.SetDefault("log.level", "info")

	v.SetDefault("jwt.issuer", "shop-api")
	v.SetDefault("jwt.accesstokenttlmin", 60)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "file:shop.db?_pragma=foreign_keys(1)")
	v.SetDefault("db.maxopenconns", 20)
	v.SetDefault("db.maxidleconns", 10)
	v.SetDefault("db.connmaxlifetimemin", 30)
	v.SetDefault("db.automigrate", true)
	v.SetDefault("db.preparestmt", true)
	v.SetDefault("db.loglevel", "warn")
	v.SetDefault("db.slowthresholdms", 200)

	v.SetDefault("redis.product_ttl_sec", 60)
	v.SetDefault("kafka.topic", "shop.orders")

	v.SetDefault("orders.atomic_placement", true)
	v.SetDefault("orders.decrement_stock", false)

	v.SetDefault("limits.rps", 200)
	v.SetDefault("limits.burst", 400)
	v.SetDefault("limits.per_ip_rps", 20)
	v.SetDefault("limits.per_ip_burst", 40)
	v.SetDefault("limits.max_in_flight", 300)
	v.SetDefault("limits.max_body_bytes", 1<<20)
	v.SetDefault("limits.request_timeout_ms", 10000)
}

// Load reads the YAML file at path (falling back to CONFIG_PATH and then the
// local default) and applies APP_* environment overrides, e.g.
// APP_DB_DSN or APP_ORDERS_ATOMIC_PLACEMENT.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt.secret must be set")
	}
	return &c, nil
}
