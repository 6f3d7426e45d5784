package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	AuthIssuer   string `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL  string `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience string `mapstructure:"AUTH_AUDIENCE"`
	AuthDevKey   string `mapstructure:"AUTH_DEV_KEY"`

	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`

	// Appointments created without staff confirmation stay pending unless
	// this is set, in which case Create books them as confirmed.
	AutoConfirm bool `mapstructure:"AUTO_CONFIRM_APPOINTMENTS"`

	// Waitlist expiry sweep.
	WaitlistTTLHours      int `mapstructure:"WAITLIST_TTL_HOURS"`
	WaitlistSweepMinutes  int `mapstructure:"WAITLIST_SWEEP_MINUTES"`

	MigrationsDir string `mapstructure:"MIGRATIONS_DIR"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("AUTO_CONFIRM_APPOINTMENTS", false)
	v.SetDefault("WAITLIST_TTL_HOURS", 24)
	v.SetDefault("WAITLIST_SWEEP_MINUTES", 10)
	v.SetDefault("MIGRATIONS_DIR", "migrations")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_JWKS_URL")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("AUTH_DEV_KEY")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("AUTO_CONFIRM_APPOINTMENTS")
	v.BindEnv("WAITLIST_TTL_HOURS")
	v.BindEnv("WAITLIST_SWEEP_MINUTES")
	v.BindEnv("MIGRATIONS_DIR")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active — all requests get admin access.")
		log.Println("WARNING: Do NOT use this configuration in production.")
		log.Println("WARNING: Set ENV=production and configure AUTH_ISSUER for production.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// WaitlistTTL returns how long a waitlist entry may stay waiting before the
// sweeper expires it.
func (c *Config) WaitlistTTL() time.Duration {
	return time.Duration(c.WaitlistTTLHours) * time.Hour
}

// WaitlistSweepInterval returns how often the expiry sweeper runs.
func (c *Config) WaitlistSweepInterval() time.Duration {
	return time.Duration(c.WaitlistSweepMinutes) * time.Minute
}

// Validate checks that the configuration is safe to run. Outside development
// an auth issuer or a shared dev key must be configured so that real JWT
// authentication is enforced.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthIssuer == "" && c.AuthDevKey == "" {
		return fmt.Errorf(
			"AUTH_ISSUER (or AUTH_DEV_KEY for HMAC tokens) must be set when ENV=%q. "+
				"Refusing to start without authentication configuration", c.Env)
	}
	if c.WaitlistTTLHours <= 0 {
		return fmt.Errorf("WAITLIST_TTL_HOURS must be positive, got %d", c.WaitlistTTLHours)
	}
	if c.WaitlistSweepMinutes <= 0 {
		return fmt.Errorf("WAITLIST_SWEEP_MINUTES must be positive, got %d", c.WaitlistSweepMinutes)
	}
	return nil
}
