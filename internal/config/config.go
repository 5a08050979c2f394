package config

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	// App-surface authentication (the portal's own identity provider, not
	// the clinical IdP reached through the authorization flow).
	AuthSigningKey string `mapstructure:"AUTH_SIGNING_KEY"`

	// SMART on FHIR client registration. The redirect URI must exactly match
	// what is registered with each clinical identity provider.
	FHIRClientID    string `mapstructure:"FHIR_CLIENT_ID"`
	FHIRRedirectURI string `mapstructure:"FHIR_REDIRECT_URI"`
	FHIRScopes      string `mapstructure:"FHIR_SCOPES"`

	DiscoveryTimeoutSeconds int `mapstructure:"DISCOVERY_TIMEOUT_SECONDS"`
	TokenTimeoutSeconds     int `mapstructure:"TOKEN_TIMEOUT_SECONDS"`
	AttemptTTLSeconds       int `mapstructure:"AUTHORIZE_ATTEMPT_TTL_SECONDS"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
}

// DefaultScopes is the fixed read-only clinical scope set requested from
// every clinical identity provider.
const DefaultScopes = "patient/Patient.read patient/Observation.read " +
	"patient/Condition.read patient/MedicationRequest.read " +
	"patient/AllergyIntolerance.read patient/Immunization.read " +
	"launch/patient openid fhirUser offline_access"

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("FHIR_CLIENT_ID", "healthbridge-app")
	v.SetDefault("FHIR_REDIRECT_URI", "http://localhost:3000/fhir/callback")
	v.SetDefault("FHIR_SCOPES", DefaultScopes)
	v.SetDefault("DISCOVERY_TIMEOUT_SECONDS", 10)
	v.SetDefault("TOKEN_TIMEOUT_SECONDS", 15)
	v.SetDefault("AUTHORIZE_ATTEMPT_TTL_SECONDS", 600)
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("AUTH_SIGNING_KEY")
	v.BindEnv("FHIR_CLIENT_ID")
	v.BindEnv("FHIR_REDIRECT_URI")
	v.BindEnv("FHIR_SCOPES")
	v.BindEnv("DISCOVERY_TIMEOUT_SECONDS")
	v.BindEnv("TOKEN_TIMEOUT_SECONDS")
	v.BindEnv("AUTHORIZE_ATTEMPT_TTL_SECONDS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")

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
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: Requests are not authenticated. Do NOT use in production.")
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

func (c *Config) DiscoveryTimeout() time.Duration {
	return time.Duration(c.DiscoveryTimeoutSeconds) * time.Second
}

func (c *Config) TokenTimeout() time.Duration {
	return time.Duration(c.TokenTimeoutSeconds) * time.Second
}

func (c *Config) AttemptTTL() time.Duration {
	return time.Duration(c.AttemptTTLSeconds) * time.Second
}

// Validate checks that the configuration is safe to run. The redirect URI is
// part of the OAuth contract with every registered clinical IdP, so it must
// be an absolute URL. In non-development modes AUTH_SIGNING_KEY is required
// so that real bearer authentication is enforced on the app surface.
func (c *Config) Validate() error {
	if c.FHIRClientID == "" {
		return fmt.Errorf("FHIR_CLIENT_ID is required")
	}
	if c.FHIRRedirectURI == "" {
		return fmt.Errorf("FHIR_REDIRECT_URI is required")
	}
	u, err := url.Parse(c.FHIRRedirectURI)
	if err != nil || !u.IsAbs() {
		return fmt.Errorf("FHIR_REDIRECT_URI must be an absolute URL, got %q", c.FHIRRedirectURI)
	}
	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required when ENV is not development")
	}
	if c.DiscoveryTimeoutSeconds <= 0 || c.TokenTimeoutSeconds <= 0 {
		return fmt.Errorf("outbound timeouts must be positive")
	}
	return nil
}
