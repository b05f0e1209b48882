package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port                   string
	AllowedOrigin          string
	DatabaseURL            string
	RedisAddr              string
	RedisPassword          string
	RedisDB                int
	AuthSecret             string
	AccessTokenTTLMinutes  int
	FallbackCostPercent    int
	LowStockThreshold      int
	CriticalStockThreshold int
	SummaryTTLSeconds      int
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}
	// Cost basis for OWN products without a recorded buy price, as a percent
	// of the sell price.
	fallbackCost, err := strconv.Atoi(getEnv("FALLBACK_COST_PERCENT", "70"))
	if err != nil || fallbackCost < 0 || fallbackCost > 100 {
		fallbackCost = 70
	}
	lowStock, err := strconv.Atoi(getEnv("LOW_STOCK_THRESHOLD", "10"))
	if err != nil || lowStock < 1 {
		lowStock = 10
	}
	criticalStock, err := strconv.Atoi(getEnv("CRITICAL_STOCK_THRESHOLD", "5"))
	if err != nil || criticalStock < 1 {
		criticalStock = 5
	}
	if criticalStock > lowStock {
		criticalStock = lowStock
	}
	summaryTTL, err := strconv.Atoi(getEnv("SUMMARY_CACHE_TTL_SECONDS", "20"))
	if err != nil || summaryTTL < 1 {
		summaryTTL = 20
	}

	cfg := Config{
		Port:                   getEnv("PORT", "8080"),
		AllowedOrigin:          getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                redisDB,
		AuthSecret:             strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes:  tokenTTL,
		FallbackCostPercent:    fallbackCost,
		LowStockThreshold:      lowStock,
		CriticalStockThreshold: criticalStock,
		SummaryTTLSeconds:      summaryTTL,
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
