// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values. For local development
an optional dotenv file is merged into the process environment first.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Supported captcha challenge backends.
const (
	CaptchaStorePostgres = "postgres"
	CaptchaStoreRedis    = "redis"
)

// # Configuration Schema

// Config holds all runtime configuration for the portal API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Cryptographic keys for session token signing
	JWTPrivKeyPath string        `env:"JWT_PRIVATE_KEY_PATH,required"`
	JWTPubKeyPath  string        `env:"JWT_PUBLIC_KEY_PATH,required"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"24h"`

	// Captcha challenges
	CaptchaStore  string        `env:"CAPTCHA_STORE"  envDefault:"postgres"`
	CaptchaTTL    time.Duration `env:"CAPTCHA_TTL"    envDefault:"5m"`
	CaptchaLength int           `env:"CAPTCHA_LENGTH" envDefault:"4"`

	// PasswordRotationRoles lists the roles that must replace their
	// provisioned password before the account is considered settled.
	PasswordRotationRoles []string `env:"PASSWORD_ROTATION_ROLES" envDefault:"MEMBER,AGENT" envSeparator:","`

	// Cross-Origin Resource Sharing. Each entry is either a full origin
	// ("https://portal.example.com") or a domain that also admits its subdomains.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	// TrustedProxies lists the addresses or CIDR ranges of reverse proxies
	// whose X-Forwarded-For / X-Real-IP headers are believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	// Per-IP token bucket
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS"   envDefault:"100"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"150"`
}

// # Configuration Loading

// Load merges the optional dotenv files into the environment and parses it
// into a [Config] struct.
//
// Variables that are already set in the process environment always win over
// values found in the dotenv files.
func Load(dotenvFiles ...string) (*Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}

	// A missing dotenv file is normal outside local development.
	for _, file := range dotenvFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: failed to load %s: %w", file, err)
		}
	}

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate enforces cross-field constraints that struct tags cannot express.
func (c *Config) validate() error {
	switch c.CaptchaStore {
	case CaptchaStorePostgres, CaptchaStoreRedis:
	default:
		return fmt.Errorf("config: CAPTCHA_STORE must be %q or %q, got %q", CaptchaStorePostgres, CaptchaStoreRedis, c.CaptchaStore)
	}

	if c.CaptchaLength < 4 || c.CaptchaLength > 10 {
		return fmt.Errorf("config: CAPTCHA_LENGTH must be between 4 and 10, got %d", c.CaptchaLength)
	}

	if c.CaptchaTTL <= 0 {
		return fmt.Errorf("config: CAPTCHA_TTL must be positive")
	}

	for i, role := range c.PasswordRotationRoles {
		c.PasswordRotationRoles[i] = strings.TrimSpace(role)
	}

	if _, err := ParseTrustedProxies(c.TrustedProxies); err != nil {
		return err
	}

	return nil
}

// ParseTrustedProxies converts addresses ("10.0.0.7") and CIDR ranges
// ("10.0.0.0/8") into prefixes. Blank entries are skipped.
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	ranges := make([]netip.Prefix, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("config: invalid TRUSTED_PROXIES entry %q: %w", entry, err)
			}
			ranges = append(ranges, prefix.Masked())
			continue
		}

		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("config: invalid TRUSTED_PROXIES entry %q: %w", entry, err)
		}
		addr = addr.Unmap()
		ranges = append(ranges, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return ranges, nil
}

// TrustedProxyRanges returns TRUSTED_PROXIES as prefixes. [Load] has already
// rejected malformed entries.
func (c *Config) TrustedProxyRanges() []netip.Prefix {
	ranges, _ := ParseTrustedProxies(c.TrustedProxies)
	return ranges
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// OriginAllowed reports whether a CORS origin is listed in AllowedOrigins.
//
// Full origins must match exactly. Bare domains match the host itself and any
// subdomain on a label boundary, so "example.com" admits "api.example.com"
// but not "evil-example.com".
func (c *Config) OriginAllowed(origin string) bool {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	host := strings.ToLower(parsed.Hostname())

	for _, entry := range c.AllowedOrigins {
		entry = strings.ToLower(strings.TrimSpace(entry))
		switch {
		case entry == "":
			continue
		case strings.Contains(entry, "://"):
			if strings.TrimSuffix(entry, "/") == strings.ToLower(origin) {
				return true
			}
		case host == entry || strings.HasSuffix(host, "."+entry):
			return true
		}
	}
	return false
}
