package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const defaultAllowedOrigins = "https://gate-cs.jackwatters.dev,http://localhost:4321"

type Config struct {
	ListenAddr       string        `env:"LISTEN_ADDR,default=:3000" validate:"required"`
	LogLevel         string        `env:"LOG_LEVEL,default=info" validate:"oneof=trace debug info warn warning error fatal panic"`
	AllowedOrigins   string        `env:"ALLOWED_ORIGINS"`
	StorageType      string        `env:"STORAGE_TYPE,default=memory" validate:"oneof=memory filesystem sqlite redis badger s3 postgres"`
	StoreTimeout     time.Duration `env:"STORE_TIMEOUT,default=5s" validate:"gt=0"`
	StoreKeyPrefix   string        `env:"STORE_KEY_PREFIX,default=room:"`
	RedisAddr        string        `env:"REDIS_ADDR" validate:"required_if=StorageType redis"`
	RedisPassword    string        `env:"REDIS_PASSWORD"`
	RedisDB          int           `env:"REDIS_DB,default=0" validate:"gte=0"`
	BadgerPath       string        `env:"BADGER_PATH" validate:"required_if=StorageType badger"`
	LocalStoragePath string        `env:"LOCAL_STORAGE_PATH,default=./data" validate:"required_if=StorageType filesystem"`
	DataSourceName   string        `env:"DATA_SOURCE_NAME" validate:"required_if=StorageType sqlite"`
	PostgresDSN      string        `env:"POSTGRES_DSN" validate:"required_if=StorageType postgres"`
	S3BucketName     string        `env:"S3_BUCKET_NAME" validate:"required_if=StorageType s3"`
	WSSendBuffer     int           `env:"WS_SEND_BUFFER,default=64" validate:"gt=0"`
	MaxMessageBytes  int64         `env:"MAX_MESSAGE_BYTES,default=5000000" validate:"gt=0"`
}

// Load reads configuration from a .env file (if present), the process
// environment and the command line, in increasing order of precedence.
func Load(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found")
	}

	es, err := env.EnvironToEnvSet(os.Environ())
	if err != nil {
		return Config{}, err
	}
	return FromEnvSet(es, args)
}

// FromEnvSet builds a Config from an explicit environment and argument list.
func FromEnvSet(es env.EnvSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Unmarshal(es, &cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if cfg.AllowedOrigins == "" {
		cfg.AllowedOrigins = defaultAllowedOrigins
	}

	fs := flag.NewFlagSet("gate-cs-ws", flag.ContinueOnError)
	fs.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "Set the server listen address")
	fs.StringVar(&cfg.LogLevel, "loglevel", cfg.LogLevel, "Set the logging level: debug, info, warn, error, fatal, panic")
	fs.StringVar(&cfg.StorageType, "storage", cfg.StorageType, "Storage backend: memory, filesystem, sqlite, redis, badger, s3, postgres")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// Origins returns the allowed CORS origins.
func (c Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
