package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is built once at startup and passed by reference; nothing mutates
// it afterwards.
type Config struct {
	Addr           string
	DBPath         string
	SecretKey      string
	Algorithm      string
	TokenTTL       time.Duration
	AllowedOrigins []string
	Environment    string
	RateLimits     RateLimits
}

type RateLimits struct {
	TokenPerMinute  int
	SignupPerMinute int
}

func Load() Config {
	addr := envString("POSTBOARD_ADDR", "")
	if addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		} else {
			addr = ":8080"
		}
	}
	cfg := Config{
		Addr:           addr,
		DBPath:         envString("POSTBOARD_DB", "postboard.db"),
		SecretKey:      envString("POSTBOARD_SECRET_KEY", "dev-secret-key"),
		Algorithm:      envString("POSTBOARD_ALGORITHM", "HS256"),
		TokenTTL:       time.Duration(envInt("POSTBOARD_TOKEN_TTL_MINUTES", 30)) * time.Minute,
		AllowedOrigins: splitOrigins(envString("POSTBOARD_ALLOWED_ORIGINS", "*")),
		Environment:    envString("POSTBOARD_ENVIRONMENT", "development"),
		RateLimits: RateLimits{
			TokenPerMinute:  envInt("POSTBOARD_RL_TOKEN_PER_MIN", 10),
			SignupPerMinute: envInt("POSTBOARD_RL_SIGNUP_PER_MIN", 5),
		},
	}

	return cfg
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, part := range strings.Split(raw, ",") {
		if origin := strings.TrimSpace(part); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
