package httpserver

import (
	"os"
	"strconv"
	"time"
)

// Config holds the HTTP layer's environment-driven settings.
type Config struct {
	JWTSecret      string
	JWTExpires     time.Duration
	CookieName     string // auth token cookie
	AnonCookieName string // guest identity cookie
	ClientOrigin   string // single allowed CORS / websocket origin
	Production     bool   // Secure + SameSite=None cookies
	GoalsSalt      string
}

// ConfigFromEnv reads Config from the environment with development defaults.
func ConfigFromEnv() Config {
	days := 14
	if n, err := strconv.Atoi(os.Getenv("JWT_EXPIRES_DAYS")); err == nil && n > 0 {
		days = n
	}
	return Config{
		JWTSecret:      getEnv("JWT_SECRET", "dev_secret_change_me"),
		JWTExpires:     time.Duration(days) * 24 * time.Hour,
		CookieName:     getEnv("COOKIE_NAME", "skate_token"),
		AnonCookieName: getEnv("ANON_COOKIE_NAME", "skate_anon"),
		ClientOrigin:   getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		Production:     getEnv("APP_ENV", "development") == "production",
		GoalsSalt:      getEnv("GOALS_SALT", "local_dev_salt"),
	}
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
