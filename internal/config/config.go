package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/jesses-code-adventures/billing/internal/logger"
)

const (
	PDFEngineGoFPDF   = "gofpdf"
	PDFEngineChromeDP = "chromedp"
)

type Config struct {
	DatabaseName   string
	DatabaseURL    string
	DatabaseDriver string
	DevMode        bool

	LogLevel  string
	LogFormat string

	Port        int
	APIUser     string
	APIPassword string

	InvoicePrefix    string
	PaymentTermsDays int

	PDFEngine    string
	ChromiumPath string
	PDFTimeout   time.Duration

	CompanyName      string
	CompanyAddress   string
	CompanyEmail     string
	CompanyPhone     string
	CompanyTaxNumber string

	BillingBank          string
	BillingAccountName   string
	BillingAccountNumber string
	BillingBSB           string
}

// Load reads .env (if present) and the environment. Non-empty arguments take
// precedence over their environment variables.
func Load(dbConn, dbDriver, devMode string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	if dbConn == "" {
		dbConn = getEnv("DATABASE_URL", "./billing.db")
	}

	if dbDriver == "" {
		dbDriver = getEnv("DATABASE_DRIVER", "sqlite3")
	}

	// Dev mode defaults to true for local builds, false for prod
	isDevMode := devMode == "true" || (devMode == "" && getEnv("DEV_MODE", "true") == "true")

	port, err := getEnvInt("PORT", 8080)
	if err != nil {
		return nil, err
	}
	terms, err := getEnvInt("PAYMENT_TERMS_DAYS", 14)
	if err != nil {
		return nil, err
	}
	timeout, err := time.ParseDuration(getEnv("PDF_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PDF_TIMEOUT: %w", err)
	}

	cfg := &Config{
		DatabaseName:   getEnv("DATABASE_NAME", "billing"),
		DatabaseURL:    dbConn,
		DatabaseDriver: dbDriver,
		DevMode:        isDevMode,

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		Port:        port,
		APIUser:     getEnv("API_USER", ""),
		APIPassword: getEnv("API_PASSWORD", ""),

		InvoicePrefix:    getEnv("INVOICE_PREFIX", "INV-"),
		PaymentTermsDays: terms,

		PDFEngine:    strings.ToLower(getEnv("PDF_ENGINE", PDFEngineGoFPDF)),
		ChromiumPath: getEnv("CHROMIUM_PATH", ""),
		PDFTimeout:   timeout,

		CompanyName:      getEnv("COMPANY_NAME", ""),
		CompanyAddress:   getEnv("COMPANY_ADDRESS", ""),
		CompanyEmail:     getEnv("COMPANY_EMAIL", ""),
		CompanyPhone:     getEnv("COMPANY_PHONE", ""),
		CompanyTaxNumber: getEnv("COMPANY_TAX_NUMBER", ""),

		BillingBank:          getEnv("BILLING_BANK", ""),
		BillingAccountName:   getEnv("BILLING_ACCOUNT_NAME", ""),
		BillingAccountNumber: getEnv("BILLING_ACCOUNT_NUMBER", ""),
		BillingBSB:           getEnv("BILLING_BSB", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite3", "sqlite", "libsql":
	default:
		return fmt.Errorf("unsupported database driver %q (want sqlite3, sqlite or libsql)", c.DatabaseDriver)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("database url is required")
	}
	switch c.PDFEngine {
	case PDFEngineGoFPDF, PDFEngineChromeDP:
	default:
		return fmt.Errorf("unsupported pdf engine %q (want gofpdf or chromedp)", c.PDFEngine)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.PaymentTermsDays < 0 {
		return fmt.Errorf("payment terms must not be negative")
	}
	if c.PDFTimeout <= 0 {
		return fmt.Errorf("pdf timeout must be positive")
	}
	return nil
}

func (c *Config) LogConfig() logger.LogConfig {
	lc := logger.DefaultConfig()
	lc.Level = c.LogLevel
	lc.Format = c.LogFormat
	return lc
}

func (c *Config) Dump() {
	fmt.Printf("Database Name: %s\n", c.DatabaseName)
	fmt.Printf("Database URL: %s\n", c.DatabaseURL)
	fmt.Printf("Database Driver: %s\n", c.DatabaseDriver)
	fmt.Printf("PDF Engine: %s\n", c.PDFEngine)
	fmt.Printf("Invoice Prefix: %s\n", c.InvoicePrefix)
	fmt.Printf("Payment Terms: %d days\n", c.PaymentTermsDays)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
