package config

import "os"

// Server captures process-level configuration.
type Server struct {
	Addr          string
	DatabaseURL   string
	RedisURL      string
	JWTSigningKey string
}

// FromEnv builds a Server config from environment variables so main stays
// lean. The store backend follows from what is configured: postgres when
// DATABASE_URL is set, redis when REDIS_URL is set, in-memory otherwise.
func FromEnv() Server {
	addr := os.Getenv("CHRONICLE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:          addr,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		JWTSigningKey: jwtSigningKey,
	}
}
