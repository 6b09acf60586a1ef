package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/yourusername/ton-paylink/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	DatabaseURL string `envconfig:"DATABASE_URL" default:"sqlite://paylink.db"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`

	JWTSecret          string        `envconfig:"JWT_SECRET" required:"true"`
	JWTRefreshSecret   string        `envconfig:"JWT_REFRESH_SECRET" required:"true"`
	AccessTokenExpiry  time.Duration `envconfig:"JWT_ACCESS_EXPIRY" default:"15m"`
	RefreshTokenExpiry time.Duration `envconfig:"JWT_REFRESH_EXPIRY" default:"168h"`

	// TON network settings
	Testnet       bool          `envconfig:"TON_TESTNET" default:"true"`
	LinkScheme    string        `envconfig:"LINK_SCHEME" default:"ton"`
	LiteConfigURL string        `envconfig:"TON_LITE_CONFIG_URL" default:"https://ton.org/testnet-global.config.json"`
	WalletSeed    string        `envconfig:"WALLET_SEED"`
	BridgeURL     string        `envconfig:"BRIDGE_URL" default:"http://localhost:8081"`
	SignAmountTON string        `envconfig:"SIGN_AMOUNT_TON" default:"0.005"`
	SignValidity  time.Duration `envconfig:"SIGN_VALIDITY" default:"60s"`
	FiatCurrency  string        `envconfig:"FIAT_CURRENCY" default:"USD"`
	FallbackRate  string        `envconfig:"FALLBACK_RATE" default:"7"`

	PriceURL     string        `envconfig:"PRICE_URL" default:"https://api.coingecko.com/api/v3/simple/price?ids=the-open-network&vs_currencies=usd"`
	PriceField   string        `envconfig:"PRICE_FIELD" default:"the-open-network.usd"`
	PriceTimeout time.Duration `envconfig:"PRICE_TIMEOUT" default:"10s"`

	StorageKeyPrefix     string `envconfig:"STORAGE_KEY_PREFIX" default:"invoices_"`
	DescriptionMaxLength int    `envconfig:"DESCRIPTION_MAX_LENGTH" default:"100"`
	MemoMaxBytes         int    `envconfig:"MEMO_MAX_BYTES" default:"123"`
	ReferenceMaxLength   int    `envconfig:"REFERENCE_MAX_LENGTH" default:"30"`
}

func LoadConfig() (*Config, error) {
	// a missing .env is fine, the environment may already be populated
	godotenv.Load()

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	return cfg, nil
}

// InitDB opens the storage database. URLs starting with sqlite:// are opened
// with the sqlite driver, everything else is treated as a postgres DSN.
func InitDB(cfg *Config) (*gorm.DB, error) {
	dialector := postgres.Open(cfg.DatabaseURL)
	if path, ok := strings.CutPrefix(cfg.DatabaseURL, "sqlite://"); ok {
		dialector = sqlite.Open(path)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&models.StorageEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}
