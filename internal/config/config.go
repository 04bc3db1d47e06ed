package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type Config struct {
	RunAddress    string `env:"RUN_ADDRESS"`
	LogLevel      string `env:"LOG_LEVEL"`
	StorageDriver string `env:"STORAGE_DRIVER"`
	DatabaseDSN   string `env:"DATABASE_URI"`
	MigrationsDir string `env:"MIGRATIONS_DIR"`

	MongoURI          string `env:"MONGO_URI"`
	MongoDatabase     string `env:"MONGO_DATABASE"`
	MongoTransactions bool   `env:"MONGO_TRANSACTIONS"`

	JWTSecret   string   `env:"JWT_SECRET"`
	AdminLogins []string `env:"ADMIN_LOGINS"  envSeparator:","`
	BcryptCost  int      `env:"BCRYPT_COST"`

	CheckoutLease     time.Duration `env:"CHECKOUT_LEASE"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL"`
	ReconcileWorkers  uint          `env:"RECONCILE_WORKERS"`
	AutoRefund        bool          `env:"AUTO_REFUND"`
}

// LoadConfig собирает конфиг из флагов командной строки и переменных окружения. Переменные окружения
// приоритетнее флагов, флаги задают значения по умолчанию. Перед разбором подгружается .env, если он есть.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %s", err.Error())
	}
	return Load(os.Args[1:])
}

func MustLoadConfig() *Config {
	config, err := LoadConfig()
	if err != nil {
		panic(err)
	}
	return config
}

// Load разбирает флаги из args, затем поверх них переменные окружения.
func Load(args []string) (*Config, error) {
	var conf Config

	if err := loadFlags(&conf, args); err != nil {
		return nil, fmt.Errorf("parse flags: %s", err.Error())
	}

	if envParseErr := env.Parse(&conf); envParseErr != nil {
		return nil, fmt.Errorf("parse env config: %s", envParseErr.Error())
	}

	if err := conf.validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

func loadFlags(conf *Config, args []string) error {
	flags := flag.NewFlagSet("shop", flag.ContinueOnError)

	flags.StringVar(&conf.RunAddress, "a", "localhost:8080", "Run address in format host:port")
	flags.StringVar(&conf.LogLevel, "l", "", "Log level, defaults to info in release mode and debug otherwise")
	flags.StringVar(&conf.StorageDriver, "s", DriverPostgres, "Storage driver: postgres, mongo or memory")
	flags.StringVar(&conf.DatabaseDSN, "d", "", "Database DSN")
	flags.StringVar(&conf.MigrationsDir, "m", "internal/db/migrations", "Database migrations directory")
	flags.StringVar(&conf.MongoURI, "mongo", "", "MongoDB connection URI")
	flags.StringVar(&conf.MongoDatabase, "mongo-db", "groph_shop", "MongoDB database name")
	flags.BoolVar(&conf.MongoTransactions, "mongo-tx", true, "Use MongoDB multi-document transactions")
	flags.StringVar(&conf.JWTSecret, "j", "", "JWT signing secret")
	flags.IntVar(&conf.BcryptCost, "bcrypt-cost", bcrypt.DefaultCost, "Bcrypt password hashing cost")
	flags.DurationVar(&conf.CheckoutLease, "checkout-lease", time.Minute, "Checkout attempt lease")
	flags.DurationVar(&conf.ReconcileInterval, "reconcile-interval", time.Minute, "Reconciliation interval")
	flags.UintVar(&conf.ReconcileWorkers, "reconcile-workers", 4, "Reconciliation refund workers") //nolint:mnd
	flags.BoolVar(&conf.AutoRefund, "auto-refund", true, "Refund paid orders that failed fulfilment")

	return flags.Parse(args) //nolint:wrapcheck
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case DriverPostgres:
		if c.DatabaseDSN == "" {
			return errors.New("database DSN is not set")
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return errors.New("mongo URI is not set")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("jwt secret is not set")
	}
	return nil
}
