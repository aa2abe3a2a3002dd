package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config - структура для хранения конфигураций приложения
type Config struct {
	ServerAddress  string        `mapstructure:"SERVER_ADDRESS"`
	PostgresConn   string        `mapstructure:"POSTGRES_CONN"`
	PostgresUser   string        `mapstructure:"POSTGRES_USERNAME"`
	PostgresPass   string        `mapstructure:"POSTGRES_PASSWORD"`
	PostgresHost   string        `mapstructure:"POSTGRES_HOST"`
	PostgresPort   string        `mapstructure:"POSTGRES_PORT"`
	PostgresDB     string        `mapstructure:"POSTGRES_DATABASE"`
	MigrationURL   string        `mapstructure:"MIGRATION_URL"`
	RedisAddr      string        `mapstructure:"REDIS_ADDR"`
	RedisTTL       time.Duration `mapstructure:"REDIS_TTL"`
	KafkaBrokers   string        `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic     string        `mapstructure:"KAFKA_TOPIC"`
	JWTSecret      string        `mapstructure:"JWT_SECRET"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	AppEnv         string        `mapstructure:"APP_ENV"`
	RateLimit      string        `mapstructure:"RATE_LIMIT"`
	WatchInterval  time.Duration `mapstructure:"WATCH_INTERVAL"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
}

var defaults = map[string]interface{}{
	"SERVER_ADDRESS":  "0.0.0.0:8080",
	"MIGRATION_URL":   "file://migrations",
	"REDIS_TTL":       "5m",
	"KAFKA_TOPIC":     "marches360.recours",
	"LOG_LEVEL":       "info",
	"APP_ENV":         "development",
	"RATE_LIMIT":      "60-M",
	"WATCH_INTERVAL":  "1m",
	"REQUEST_TIMEOUT": "5s",
}

// LoadConfig загружает конфигурацию из файла app.env в path.
// Переменные окружения переопределяют значения из файла, файл может отсутствовать.
func LoadConfig(path string) (cfg Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for _, key := range []string{
		"POSTGRES_CONN", "POSTGRES_USERNAME", "POSTGRES_PASSWORD", "POSTGRES_HOST",
		"POSTGRES_PORT", "POSTGRES_DATABASE", "REDIS_ADDR", "KAFKA_BROKERS", "JWT_SECRET",
	} {
		if err = v.BindEnv(key); err != nil {
			return
		}
	}

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		err = nil
	}
	if err = v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Brokers возвращает список адресов Kafka или nil, если брокер не настроен.
func (c Config) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
