package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	ETrade    ETradeConfig    `mapstructure:"etrade"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ETradeConfig holds the consumer credentials and, once authorized, the
// access token pair. An empty token pair starts the service unauthenticated.
type ETradeConfig struct {
	ConsumerKey      string `mapstructure:"consumer_key"`
	ConsumerSecret   string `mapstructure:"consumer_secret"`
	OAuthToken       string `mapstructure:"oauth_token"`
	OAuthTokenSecret string `mapstructure:"oauth_token_secret"`
	Sandbox          bool   `mapstructure:"sandbox"`
	Callback         string `mapstructure:"callback"`
	BaseURL          string `mapstructure:"base_url"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
}

type TelemetryConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	CollectorURL string `mapstructure:"collector_url"`
	Environment  string `mapstructure:"environment"`
	Enabled      bool   `mapstructure:"enabled"`
	Exporter     string `mapstructure:"exporter"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func Load(configName string) (*Config, error) {
	// .env is optional; variables already set in the environment win
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/broker-etrade/")

	v.SetEnvPrefix("BROKER_ETRADE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	// vendor calls may take up to 30s each
	v.SetDefault("server.write_timeout", 120*time.Second)

	// AutomaticEnv only resolves keys viper already knows about
	v.SetDefault("etrade.consumer_key", "")
	v.SetDefault("etrade.consumer_secret", "")
	v.SetDefault("etrade.oauth_token", "")
	v.SetDefault("etrade.oauth_token_secret", "")
	v.SetDefault("etrade.sandbox", true)
	v.SetDefault("etrade.callback", "oob")
	v.SetDefault("etrade.base_url", "")

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})

	v.SetDefault("telemetry.service_name", "broker-etrade")
	v.SetDefault("telemetry.collector_url", "localhost:4317")
	v.SetDefault("telemetry.environment", "development")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.exporter", "otlp")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}
