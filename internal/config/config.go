package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DirName is the per-user and per-project state directory name.
const DirName = ".sabis"

// SMTPConfig configures the due-soon digest mailer.
type SMTPConfig struct {
	Host     string   `json:"host,omitempty"`
	Port     int      `json:"port,omitempty" validate:"omitempty,gte=1,lte=65535"`
	Username string   `json:"username,omitempty"`
	Password string   `json:"password,omitempty"`
	From     string   `json:"from,omitempty" validate:"required_with=Host,omitempty,email"`
	To       []string `json:"to,omitempty" validate:"required_with=Host,omitempty,dive,email"`
}

// Enabled reports whether a mail server is configured.
func (s SMTPConfig) Enabled() bool {
	return s.Host != ""
}

// Config holds application configuration.
type Config struct {
	// DueSoonDays is the horizon of the "due soon" bucket
	DueSoonDays int `json:"due_soon_days" validate:"gte=0,lte=60"`

	// LongTermDays is where the "long term" bucket starts. Deadlines between
	// the two thresholds are shown with the due-soon ones.
	LongTermDays int `json:"long_term_days" validate:"gtfield=DueSoonDays,lte=365"`

	// CacheMaxAgeHours is how long a stored snapshot is served without refetching
	CacheMaxAgeHours int `json:"cache_max_age_hours" validate:"gte=0,lte=720"`

	// Timezone anchors date-only deadlines (IANA name)
	Timezone string `json:"timezone" validate:"required"`

	// HomeURL and ExamURL override the portal entry points.
	HomeURL string `json:"home_url,omitempty" validate:"omitempty,url"`
	ExamURL string `json:"exam_url,omitempty" validate:"omitempty,url"`

	UserAgent string `json:"user_agent,omitempty"`

	// SessionCookie is a Cookie header copied from a logged-in browser.
	// The SABIS_COOKIE environment variable takes precedence.
	SessionCookie string `json:"session_cookie,omitempty"`

	RequestTimeoutSeconds int `json:"request_timeout_seconds" validate:"gte=1,lte=300"`
	RetryAttempts         int `json:"retry_attempts" validate:"gte=1,lte=10"`

	// RulesPath points at a TOML file overriding the assignment heuristics
	RulesPath string `json:"rules_path,omitempty"`

	// FinalRuleYear and FinalRuleSemester name the first term in which a
	// failed final caps the course grade.
	FinalRuleYear     int     `json:"final_rule_year" validate:"gte=2000,lte=2100"`
	FinalRuleSemester int     `json:"final_rule_semester" validate:"oneof=1 2 3"`
	FinalPassMark     float64 `json:"final_pass_mark" validate:"gte=0,lte=100"`

	// RedisURL enables the shared class-average cache
	RedisURL string `json:"redis_url,omitempty" validate:"omitempty,url"`

	SMTP SMTPConfig `json:"smtp,omitempty"`

	// AllowedPaths is an allowlist of directories for snapshot exports.
	// Paths outside ~/.sabis/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for exports.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty" validate:"gte=0"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty" validate:"gte=0"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DueSoonDays:           3,
		LongTermDays:          10,
		CacheMaxAgeHours:      24,
		Timezone:              "Europe/Istanbul",
		RequestTimeoutSeconds: 20,
		RetryAttempts:         3,
		FinalRuleYear:         2025,
		FinalRuleSemester:     1,
		FinalPassMark:         40,
	}
}

var validate = validator.New()

// Validate checks ranges and cross-field constraints and that Timezone loads.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid config: timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the configured time zone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// CacheMaxAge is CacheMaxAgeHours as a duration.
func (c *Config) CacheMaxAge() time.Duration {
	return time.Duration(c.CacheMaxAgeHours) * time.Hour
}

// RequestTimeout is RequestTimeoutSeconds as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// Cookie returns the portal session cookie, preferring SABIS_COOKIE.
func (c *Config) Cookie() string {
	if v := strings.TrimSpace(os.Getenv("SABIS_COOKIE")); v != "" {
		return v
	}
	return c.SessionCookie
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.sabis.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithProject loads the global config and the nearest .sabis/config.json
// found walking upward from startDir. The project file wins for scalars;
// lists are merged.
func LoadWithProject(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	project, err := loadFileRaw(FindProjectConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), project), nil
}

// FindProjectConfig walks upward from startDir to find the nearest .sabis/config.json.
// Returns the path if found, or empty string if not found.
func FindProjectConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, DirName, "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		DueSoonDays:           pick(overlay.DueSoonDays, base.DueSoonDays),
		LongTermDays:          pick(overlay.LongTermDays, base.LongTermDays),
		CacheMaxAgeHours:      pick(overlay.CacheMaxAgeHours, base.CacheMaxAgeHours),
		Timezone:              pick(overlay.Timezone, base.Timezone),
		HomeURL:               pick(overlay.HomeURL, base.HomeURL),
		ExamURL:               pick(overlay.ExamURL, base.ExamURL),
		UserAgent:             pick(overlay.UserAgent, base.UserAgent),
		SessionCookie:         pick(overlay.SessionCookie, base.SessionCookie),
		RequestTimeoutSeconds: pick(overlay.RequestTimeoutSeconds, base.RequestTimeoutSeconds),
		RetryAttempts:         pick(overlay.RetryAttempts, base.RetryAttempts),
		RulesPath:             pick(overlay.RulesPath, base.RulesPath),
		FinalRuleYear:         pick(overlay.FinalRuleYear, base.FinalRuleYear),
		FinalRuleSemester:     pick(overlay.FinalRuleSemester, base.FinalRuleSemester),
		FinalPassMark:         pick(overlay.FinalPassMark, base.FinalPassMark),
		RedisURL:              pick(overlay.RedisURL, base.RedisURL),
		DBMaxOpenConns:        pick(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:        pick(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		SMTP: SMTPConfig{
			Host:     pick(overlay.SMTP.Host, base.SMTP.Host),
			Port:     pick(overlay.SMTP.Port, base.SMTP.Port),
			Username: pick(overlay.SMTP.Username, base.SMTP.Username),
			Password: pick(overlay.SMTP.Password, base.SMTP.Password),
			From:     pick(overlay.SMTP.From, base.SMTP.From),
			To:       mergeStringSlice(base.SMTP.To, overlay.SMTP.To),
		},
	}

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// pick returns overlay unless it is the zero value.
func pick[T comparable](overlay, base T) T {
	var zero T
	if overlay != zero {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s != "" && !seen[s] {
				seen[s] = true
				result = append(result, s)
			}
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
