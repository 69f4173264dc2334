package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	StoreID               string
	DefaultTimezone       string
	AuthSecret            string
	AccessTokenTTLMinutes int
	InvoiceRendererURL    string
	BarcodeLookupURL      string
	BarcodeTTLSeconds     int
	StockTakeExtraPolicy  string
}

// Load reads configuration from the environment, after loading a local
// .env file when one exists. Missing .env is not an error.
func Load() Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}
	barcodeTTL, err := strconv.Atoi(getEnv("BARCODE_TTL_SECONDS", "86400"))
	if err != nil || barcodeTTL < 1 {
		barcodeTTL = 86400
	}

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		StoreID:               getEnv("DEFAULT_STORE_ID", "main-store"),
		DefaultTimezone:       strings.TrimSpace(os.Getenv("DEFAULT_TIMEZONE")),
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		InvoiceRendererURL:    strings.TrimSpace(os.Getenv("INVOICE_RENDERER_URL")),
		BarcodeLookupURL:      strings.TrimSpace(os.Getenv("BARCODE_LOOKUP_URL")),
		BarcodeTTLSeconds:     barcodeTTL,
		StockTakeExtraPolicy:  getEnv("STOCKTAKE_EXTRA_POLICY", "extra_as_new"),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
