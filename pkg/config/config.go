package config

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL  string
	Port         string
	IsProduction bool
	MachineID    string

	JWTSecret         string
	JWTExpiryDuration time.Duration
	JWTIssuer         string
	OperatorSecret    string

	DailyWithdrawalCap   decimal.Decimal
	PerTransactionCap    decimal.Decimal
	MinimumCashThreshold decimal.Decimal
	IdleTimeout          time.Duration
	MaxDispenseRetries   int
	PinLockoutThreshold  int
	GatewayTimeout       time.Duration
	HistoryLimit         int

	// InitialCash is the per-denomination bill count loaded at startup,
	// parsed from "value:count" pairs (e.g. "100:50,50:100,20:200").
	InitialCash map[int64]int
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("MACHINE_ID", "ATM-001")
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_EXPIRY_DURATION", "1h")
	viper.SetDefault("JWT_ISSUER", "atm-core")
	viper.SetDefault("OPERATOR_SECRET", "")
	viper.SetDefault("DAILY_WITHDRAWAL_CAP", "1000")
	viper.SetDefault("PER_TRANSACTION_CAP", "500")
	viper.SetDefault("MINIMUM_CASH_THRESHOLD", "1000")
	viper.SetDefault("IDLE_TIMEOUT_SECONDS", 60)
	viper.SetDefault("MAX_DISPENSE_RETRIES", 3)
	viper.SetDefault("PIN_LOCKOUT_THRESHOLD", 3)
	viper.SetDefault("GATEWAY_TIMEOUT_MS", 3000)
	viper.SetDefault("HISTORY_LIMIT", 20)
	viper.SetDefault("INITIAL_CASH", "100:50,50:100,20:200,10:100")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL not set. Running with in-memory storage only.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.MachineID = viper.GetString("MACHINE_ID")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET not set. Using default insecure key.")
	}
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")

	cfg.OperatorSecret = viper.GetString("OPERATOR_SECRET")
	if cfg.OperatorSecret == "" {
		log.Println("Warning: OPERATOR_SECRET not set. Operator login is disabled.")
	}

	jwtExpiryStr := viper.GetString("JWT_EXPIRY_DURATION")
	jwtExpiry, err := time.ParseDuration(jwtExpiryStr)
	if err != nil {
		jwtExpiry = time.Hour
		log.Printf("Warning: Invalid value for JWT_EXPIRY_DURATION ('%s'). Defaulting to %s.\n", jwtExpiryStr, jwtExpiry)
	}
	cfg.JWTExpiryDuration = jwtExpiry

	cfg.DailyWithdrawalCap, err = parseAmount("DAILY_WITHDRAWAL_CAP")
	if err != nil {
		return nil, err
	}
	cfg.PerTransactionCap, err = parseAmount("PER_TRANSACTION_CAP")
	if err != nil {
		return nil, err
	}
	cfg.MinimumCashThreshold, err = parseAmount("MINIMUM_CASH_THRESHOLD")
	if err != nil {
		return nil, err
	}

	cfg.IdleTimeout = time.Duration(viper.GetInt("IDLE_TIMEOUT_SECONDS")) * time.Second
	cfg.MaxDispenseRetries = viper.GetInt("MAX_DISPENSE_RETRIES")
	cfg.PinLockoutThreshold = viper.GetInt("PIN_LOCKOUT_THRESHOLD")
	cfg.GatewayTimeout = time.Duration(viper.GetInt("GATEWAY_TIMEOUT_MS")) * time.Millisecond
	cfg.HistoryLimit = viper.GetInt("HISTORY_LIMIT")

	cfg.InitialCash, err = parseCashSpec(viper.GetString("INITIAL_CASH"))
	if err != nil {
		return nil, fmt.Errorf("invalid INITIAL_CASH: %w", err)
	}

	return cfg, nil
}

func parseAmount(key string) (decimal.Decimal, error) {
	raw := viper.GetString(key)
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid value for %s (%q): %w", key, raw, err)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative (got %q)", key, raw)
	}
	return amount, nil
}

// parseCashSpec parses "value:count" pairs separated by commas.
func parseCashSpec(spec string) (map[int64]int, error) {
	cash := make(map[int64]int)
	if strings.TrimSpace(spec) == "" {
		return cash, nil
	}
	for _, pair := range strings.Split(spec, ",") {
		parts := strings.Split(strings.TrimSpace(pair), ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed pair %q", pair)
		}
		value, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil || value <= 0 {
			return nil, fmt.Errorf("bad denomination in pair %q", pair)
		}
		count, err := strconv.Atoi(parts[1])
		if err != nil || count < 0 {
			return nil, fmt.Errorf("bad count in pair %q", pair)
		}
		cash[value] += count
	}
	return cash, nil
}
