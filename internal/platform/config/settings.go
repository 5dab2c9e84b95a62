package config

import (
	"fmt"
	"strings"
)

// LogLevels lists the accepted values for the LOG_LEVEL variable and the
// -log-level flag, from most to least verbose.
var LogLevels = []string{"debug", "info", "warning", "error", "critical"}

// Settings holds the application configuration shared by the web and
// protocol servers. Values load from the environment, optionally seeded
// from a dotenv file, and individual fields may be overridden by CLI flags
// at the entry point.
type Settings struct {
	APIToken         string `env:"API_TOKEN"`
	EnvFile          string `env:"ENV_FILE" envDefault:".env"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	Host             string `env:"HOST" envDefault:"0.0.0.0"`
	Port             int    `env:"PORT" envDefault:"8000"`
	Transport        string `env:"TRANSPORT" envDefault:"sse"`
	EventsDBPath     string `env:"EVENTS_DB_PATH" envDefault:"gantry.db"`
	WebhookJWTSecret string `env:"WEBHOOK_JWT_SECRET"`

	CORSAllowOrigins     []string `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	CORSAllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	CORSAllowMethods     []string `env:"CORS_ALLOW_METHODS" envDefault:"*"`
	CORSAllowHeaders     []string `env:"CORS_ALLOW_HEADERS" envDefault:"*"`
}

// LoadOptions controls how Load resolves the settings environment.
type LoadOptions struct {
	// EnvFile is the dotenv file to seed the environment from. When empty
	// the default ".env" is tried. The file set here is required to exist
	// only when it was named explicitly.
	EnvFile string
	// EnvFileExplicit marks EnvFile as caller-supplied rather than the
	// implicit default, making a missing file an error.
	EnvFileExplicit bool
	// SkipEnvFile disables dotenv loading entirely.
	SkipEnvFile bool
}

// Load resolves Settings from the environment, seeding it from a dotenv
// file first unless skipped.
func Load(opts LoadOptions) (*Settings, error) {
	if !opts.SkipEnvFile {
		path := opts.EnvFile
		if path == "" {
			path = ".env"
		}
		if err := LoadEnvFile(path, opts.EnvFileExplicit); err != nil {
			return nil, err
		}
	}

	var settings Settings
	if err := ParseEnv(&settings); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Validate checks field ranges that the env parser cannot express.
func (s *Settings) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port %d out of range 1-65535", s.Port)
	}
	if !ValidLogLevel(s.LogLevel) {
		return fmt.Errorf("invalid log level: %q (must be one of: %s)", s.LogLevel, strings.Join(LogLevels, ", "))
	}
	return nil
}

// ValidLogLevel reports whether level names a known log level.
func ValidLogLevel(level string) bool {
	for _, known := range LogLevels {
		if level == known {
			return true
		}
	}
	return false
}

// Debug reports whether debug-level logging is enabled.
func (s *Settings) Debug() bool {
	return s.LogLevel == "debug"
}
