package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr           string
	DatabaseURL    string
	JWTSecret      string
	OrderTxTimeout time.Duration
}

func Load() Config {
	addr := os.Getenv("PET_MARKET_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	timeout := 5 * time.Second
	if raw := os.Getenv("ORDER_TX_TIMEOUT_SECONDS"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			timeout = time.Duration(secs) * time.Second
		}
	}

	return Config{
		Addr:           addr,
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		OrderTxTimeout: timeout,
	}
}
