package config

import "time"

// Config holds bridge configuration values.
type Config struct {
	// Account is the local name the persisted session is keyed by.
	Account string `mapstructure:"account" yaml:"account"`

	// Credentials used when no persisted session token is usable.
	Username  string `mapstructure:"username" yaml:"username"`
	Password  string `mapstructure:"password" yaml:"password"`
	GuardCode string `mapstructure:"guard_code" yaml:"guard_code"`

	// APIHost overrides the default Steam Web API host.
	APIHost string `mapstructure:"api_host" yaml:"api_host"`

	// PollTimeout is the server-side long-poll timeout hint in seconds.
	PollTimeout int `mapstructure:"poll_timeout" yaml:"poll_timeout"`

	// RequestTimeout bounds a single HTTP exchange. It must exceed
	// PollTimeout or long polls get cut off locally.
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`

	DatabasePath string `mapstructure:"db_path" yaml:"db_path"`
	LogLevel     string `mapstructure:"log_level" yaml:"log_level"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Account:        "default",
		APIHost:        "api.steampowered.com",
		PollTimeout:    25,
		RequestTimeout: 45 * time.Second,
		DatabasePath:   "steambridge.db",
		LogLevel:       "info",
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Account != "" {
		c.Account = other.Account
	}
	if other.Username != "" {
		c.Username = other.Username
	}
	if other.Password != "" {
		c.Password = other.Password
	}
	if other.GuardCode != "" {
		c.GuardCode = other.GuardCode
	}
	if other.APIHost != "" {
		c.APIHost = other.APIHost
	}
	if other.PollTimeout != 0 {
		c.PollTimeout = other.PollTimeout
	}
	if other.RequestTimeout != 0 {
		c.RequestTimeout = other.RequestTimeout
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}
