package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/ehr/healthreport/internal/layout"
)

type Config struct {
	Port          string   `mapstructure:"PORT"`
	Env           string   `mapstructure:"ENV"`
	LogLevel      string   `mapstructure:"LOG_LEVEL"`
	DatabaseURL   string   `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32    `mapstructure:"DB_MIN_CONNS"`
	AuthIssuer    string   `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL   string   `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience  string   `mapstructure:"AUTH_AUDIENCE"`
	JWTSigningKey string   `mapstructure:"JWT_SIGNING_KEY"`
	CORSOrigins   []string `mapstructure:"CORS_ORIGINS"`
	BodyLimit     string   `mapstructure:"BODY_LIMIT"`

	ReportTitle       string `mapstructure:"REPORT_TITLE"`
	ReportAttribution string `mapstructure:"REPORT_ATTRIBUTION"`

	PageWidth  float64 `mapstructure:"PAGE_WIDTH"`
	PageHeight float64 `mapstructure:"PAGE_HEIGHT"`
	PageMargin float64 `mapstructure:"PAGE_MARGIN"`
	HeaderBand float64 `mapstructure:"HEADER_BAND"`
	FooterBand float64 `mapstructure:"FOOTER_BAND"`

	MaxDocumentBytes    int64 `mapstructure:"MAX_DOCUMENT_BYTES"`
	ArchiveMaxDocuments int   `mapstructure:"ARCHIVE_MAX_DOCUMENTS"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE", "JWT_SIGNING_KEY",
	"CORS_ORIGINS", "BODY_LIMIT", "REPORT_TITLE", "REPORT_ATTRIBUTION",
	"PAGE_WIDTH", "PAGE_HEIGHT", "PAGE_MARGIN", "HEADER_BAND", "FOOTER_BAND",
	"MAX_DOCUMENT_BYTES", "ARCHIVE_MAX_DOCUMENTS",
}

// Load reads configuration from the environment and an optional .env file.
// DATABASE_URL is optional; without it only posted snapshots can be
// rendered.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	a4 := layout.A4()
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("BODY_LIMIT", "2M")
	v.SetDefault("REPORT_TITLE", "Health Report")
	v.SetDefault("REPORT_ATTRIBUTION", "Generated by Health Report Service")
	v.SetDefault("PAGE_WIDTH", a4.PageWidth)
	v.SetDefault("PAGE_HEIGHT", a4.PageHeight)
	v.SetDefault("PAGE_MARGIN", a4.Margin)
	v.SetDefault("HEADER_BAND", a4.HeaderBand)
	v.SetDefault("FOOTER_BAND", a4.FooterBand)
	v.SetDefault("MAX_DOCUMENT_BYTES", 10<<20)
	v.SetDefault("ARCHIVE_MAX_DOCUMENTS", 500)

	// Bind env vars explicitly so Unmarshal picks them up.
	for _, k := range keys {
		v.BindEnv(k)
	}

	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
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

// HasDatabase reports whether the Postgres snapshot source is configured.
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

// Geometry returns the page geometry built from the PAGE_* and *_BAND keys.
func (c *Config) Geometry() layout.Geometry {
	return layout.Geometry{
		PageWidth:  c.PageWidth,
		PageHeight: c.PageHeight,
		Margin:     c.PageMargin,
		HeaderBand: c.HeaderBand,
		FooterBand: c.FooterBand,
	}
}

// Level returns the zerolog level named by LOG_LEVEL.
func (c *Config) Level() (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(c.LogLevel)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

// Validate checks that the configuration is safe to run. Outside
// development a token verification method must be configured.
func (c *Config) Validate() error {
	if err := c.Geometry().Validate(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.MaxDocumentBytes <= 0 {
		return fmt.Errorf("MAX_DOCUMENT_BYTES must be positive, got %d", c.MaxDocumentBytes)
	}
	if c.ArchiveMaxDocuments < 0 {
		return fmt.Errorf("ARCHIVE_MAX_DOCUMENTS must not be negative, got %d", c.ArchiveMaxDocuments)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if !c.IsDev() && c.JWTSigningKey == "" && c.AuthJWKSURL == "" {
		return fmt.Errorf(
			"JWT_SIGNING_KEY or AUTH_JWKS_URL must be set when ENV=%q; "+
				"refusing to start without authentication configuration", c.Env)
	}
	if c.IsProduction() && c.JWTSigningKey != "" && len(c.JWTSigningKey) < 32 {
		return fmt.Errorf("JWT_SIGNING_KEY must be at least 32 characters in production")
	}
	return nil
}
