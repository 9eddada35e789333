// Package config resolves runtime settings for the server and the CLI.
//
// RESOLUTION ORDER (highest wins):
//  1. Command-line flags bound with BindPFlag (CLI only)
//  2. Environment variables, e.g. PORT, DB_PATH
//  3. A .env file in the working directory (never overrides the real env)
//  4. The defaults below
//
// Keys are the lower-case env names, so viper's AutomaticEnv maps
// "db_path" to DB_PATH without a key replacer.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/sakif/revision-tracker/internal/tutor"
)

// Keys understood by Load.
const (
	KeyPort               = "port"
	KeyDBPath             = "db_path"
	KeyJWTSecret          = "jwt_secret"
	KeyGitHubClientID     = "github_client_id"
	KeyGitHubClientSecret = "github_client_secret"
	KeyGitHubCallbackURL  = "github_callback_url"
	KeyAllowedOrigins     = "allowed_origins"
	KeyFrontendURL        = "frontend_url"
	KeyTimezone           = "timezone"
	KeyTutorAPIKey        = "tutor_api_key"
	KeyTutorBaseURL       = "tutor_base_url"
	KeyTutorModel         = "tutor_model"
	KeyTutorRatePerMinute = "tutor_rate_per_minute"
	KeySettingsAdmins     = "settings_admins"
)

// Config is the resolved configuration.
type Config struct {
	Port               int
	DBPath             string
	JWTSecret          string
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
	AllowedOrigins     []string
	FrontendURL        string
	Timezone           string
	TutorAPIKey        string
	TutorBaseURL       string
	TutorModel         string
	TutorRatePerMinute int
	// SettingsAdmins lists the user IDs allowed to change the shared revision
	// threshold over HTTP. Empty means every signed-in user.
	SettingsAdmins []string
}

// LoadDotEnv loads KEY=value pairs from the given files (default ".env")
// into the process environment. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: loading %s: %w", p, err)
		}
	}
	return nil
}

// NewViper returns a viper instance with every default set and the
// environment wired in. Callers may bind flags on it before calling FromViper.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyPort, 8080)
	v.SetDefault(KeyDBPath, "data/revision.db")
	v.SetDefault(KeyAllowedOrigins, "http://localhost:3000")
	v.SetDefault(KeyFrontendURL, "/")
	v.SetDefault(KeyTimezone, "UTC")
	v.SetDefault(KeyTutorBaseURL, tutor.DefaultBaseURL)
	v.SetDefault(KeyTutorModel, tutor.DefaultModel)
	v.SetDefault(KeyTutorRatePerMinute, 10)
	v.AutomaticEnv()
	return v
}

// FromViper reads and validates a Config.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:               v.GetInt(KeyPort),
		DBPath:             strings.TrimSpace(v.GetString(KeyDBPath)),
		JWTSecret:          v.GetString(KeyJWTSecret),
		GitHubClientID:     strings.TrimSpace(v.GetString(KeyGitHubClientID)),
		GitHubClientSecret: strings.TrimSpace(v.GetString(KeyGitHubClientSecret)),
		GitHubCallbackURL:  strings.TrimSpace(v.GetString(KeyGitHubCallbackURL)),
		AllowedOrigins:     splitList(v.GetString(KeyAllowedOrigins)),
		FrontendURL:        strings.TrimSpace(v.GetString(KeyFrontendURL)),
		Timezone:           strings.TrimSpace(v.GetString(KeyTimezone)),
		TutorAPIKey:        strings.TrimSpace(v.GetString(KeyTutorAPIKey)),
		TutorBaseURL:       strings.TrimSpace(v.GetString(KeyTutorBaseURL)),
		TutorModel:         strings.TrimSpace(v.GetString(KeyTutorModel)),
		TutorRatePerMinute: v.GetInt(KeyTutorRatePerMinute),
		SettingsAdmins:     splitList(v.GetString(KeySettingsAdmins)),
	}
	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load is LoadDotEnv, NewViper and FromViper in one call.
func Load() (Config, error) {
	if err := LoadDotEnv(); err != nil {
		return Config{}, err
	}
	return FromViper(NewViper())
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH must not be empty"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE %q is not a known timezone", c.Timezone))
	}
	if (c.GitHubClientID == "") != (c.GitHubClientSecret == "") {
		errs = append(errs, errors.New("GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET must be set together"))
	}
	if c.TutorRatePerMinute < 0 {
		errs = append(errs, errors.New("TUTOR_RATE_PER_MINUTE must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Location returns the default timezone for calendar-day statistics.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// HasJWTSecret reports whether a signing secret was configured. Without one
// the server signs with a per-process secret.
func (c Config) HasJWTSecret() bool {
	return c.JWTSecret != ""
}

// GitHubEnabled reports whether the GitHub OAuth routes should be mounted.
func (c Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// TutorConfig returns the settings for tutor.New.
func (c Config) TutorConfig() tutor.Config {
	return tutor.Config{
		APIKey:  c.TutorAPIKey,
		BaseURL: c.TutorBaseURL,
		Model:   c.TutorModel,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
