package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sevigo/runner-warden/internal/core"
	"github.com/sevigo/runner-warden/internal/logger"
)

// maxJobPrefixLength keeps the prefix intact inside generated unit names.
const maxJobPrefixLength = 32

// MaxPlatformRuntime is the longest runtime a unit may be configured with.
const MaxPlatformRuntime = 24 * time.Hour

// Config holds the application's configuration values. It is loaded once at
// startup and never mutated afterwards.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	GitHub   GitHubConfig   `mapstructure:"github"`
	Runner   RunnerConfig   `mapstructure:"runner"`
	Nomad    NomadConfig    `mapstructure:"nomad"`
	Gate     GateConfig     `mapstructure:"gate"`
	Callback CallbackConfig `mapstructure:"callback"`
	Database DBConfig       `mapstructure:"database"`
	Logging  logger.Config  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	PublicURL      string        `mapstructure:"public_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	AdminToken     string        `mapstructure:"admin_token"`
}

type GitHubConfig struct {
	WebhookSecret  string        `mapstructure:"webhook_secret"`
	Token          string        `mapstructure:"token"`
	AppID          int64         `mapstructure:"app_id"`
	InstallationID int64         `mapstructure:"installation_id"`
	PrivateKeyPath string        `mapstructure:"private_key_path"`
	APIURL         string        `mapstructure:"api_url"`
	RunnerGroupID  int64         `mapstructure:"runner_group_id"`
	IssueTimeout   time.Duration `mapstructure:"issue_timeout"`
}

// UsesApp reports whether the service credential is a GitHub App installation.
func (c GitHubConfig) UsesApp() bool {
	return c.Token == "" && c.AppID != 0 && c.PrivateKeyPath != ""
}

type RunnerConfig struct {
	Labels         []string                        `mapstructure:"labels"`
	Image          string                          `mapstructure:"image"`
	User           string                          `mapstructure:"user"`
	Entrypoint     string                          `mapstructure:"entrypoint"`
	NamePrefix     string                          `mapstructure:"name_prefix"`
	MaxRuntime     time.Duration                   `mapstructure:"max_runtime"`
	LaunchTimeout  time.Duration                   `mapstructure:"launch_timeout"`
	DefaultProfile string                          `mapstructure:"default_profile"`
	Profiles       map[string]core.ResourceProfile `mapstructure:"profiles"`
	ProfilesFile   string                          `mapstructure:"profiles_file"`
}

type NomadConfig struct {
	Addr        string   `mapstructure:"addr"`
	Token       string   `mapstructure:"token"`
	Region      string   `mapstructure:"region"`
	Namespace   string   `mapstructure:"namespace"`
	Datacenters []string `mapstructure:"datacenters"`
	Driver      string   `mapstructure:"driver"`
	JobPrefix   string   `mapstructure:"job_prefix"`
	Priority    int      `mapstructure:"priority"`
}

type GateConfig struct {
	MaxConcurrentUnits  int           `mapstructure:"max_concurrent_units"`
	SweepInterval       time.Duration `mapstructure:"sweep_interval"`
	Grace               time.Duration `mapstructure:"grace"`
	CompletionWorkers   int           `mapstructure:"completion_workers"`
	CompletionQueueSize int           `mapstructure:"completion_queue_size"`
}

type CallbackConfig struct {
	Secret string `mapstructure:"secret"`
}

// DBConfig configures the optional job ledger. An empty Host disables it.
type DBConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"sslmode"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// Enabled reports whether a database is configured.
func (c DBConfig) Enabled() bool { return c.Host != "" }

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.public_url", "")
	v.SetDefault("server.request_timeout", 60*time.Second)
	v.SetDefault("server.max_body_bytes", int64(1<<20))
	v.SetDefault("server.admin_token", "")

	v.SetDefault("github.webhook_secret", "")
	v.SetDefault("github.token", "")
	v.SetDefault("github.app_id", 0)
	v.SetDefault("github.installation_id", 0)
	v.SetDefault("github.private_key_path", "")
	v.SetDefault("github.api_url", "")
	v.SetDefault("github.runner_group_id", 1)
	v.SetDefault("github.issue_timeout", 10*time.Second)

	v.SetDefault("runner.labels", []string{"self-hosted", "linux", "x64"})
	v.SetDefault("runner.image", "ghcr.io/actions/actions-runner:latest")
	v.SetDefault("runner.user", "runner")
	v.SetDefault("runner.entrypoint", "/home/runner/run.sh")
	v.SetDefault("runner.name_prefix", "warden")
	v.SetDefault("runner.max_runtime", time.Hour)
	v.SetDefault("runner.launch_timeout", 15*time.Second)
	v.SetDefault("runner.default_profile", DefaultProfileName)
	v.SetDefault("runner.profiles_file", "")

	v.SetDefault("nomad.addr", "")
	v.SetDefault("nomad.token", "")
	v.SetDefault("nomad.region", "global")
	v.SetDefault("nomad.namespace", "default")
	v.SetDefault("nomad.datacenters", []string{"dc1"})
	v.SetDefault("nomad.driver", "docker")
	v.SetDefault("nomad.job_prefix", "warden")
	v.SetDefault("nomad.priority", 50)

	v.SetDefault("gate.max_concurrent_units", 10)
	v.SetDefault("gate.sweep_interval", time.Minute)
	v.SetDefault("gate.grace", 5*time.Minute)
	v.SetDefault("gate.completion_workers", 2)
	v.SetDefault("gate.completion_queue_size", 256)

	v.SetDefault("callback.secret", "")

	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.username", "warden")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "runner_warden")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 5*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
}

// LoadConfig reads configuration from an optional YAML config file and
// environment variables, applies defaults and validates the result. Environment
// variables use the upper-cased key with dots replaced by underscores, e.g.
// GITHUB_WEBHOOK_SECRET or GATE_MAX_CONCURRENT_UNITS.
func LoadConfig() (*Config, error) {
	cfg, err := Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load builds a Config from v without validating it. Commands that only need
// part of the configuration, such as the database, use it directly.
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.ConfigFileUsed() == "" {
		v.SetConfigName("runner-warden")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/runner-warden")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	profiles, err := LoadProfiles(cfg.Runner.ProfilesFile)
	if err != nil && !errors.Is(err, ErrProfilesNotFound) {
		return nil, err
	}
	cfg.Runner.Profiles = mergeProfiles(cfg.Runner.Profiles, profiles)

	slog.Debug("configuration loaded", "config_file", v.ConfigFileUsed(), "profiles", len(cfg.Runner.Profiles))
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run safely with.
func (c *Config) Validate() error {
	if c.GitHub.WebhookSecret == "" {
		return fmt.Errorf("GITHUB_WEBHOOK_SECRET must be set")
	}
	if c.GitHub.Token == "" && !c.GitHub.UsesApp() {
		return fmt.Errorf("either GITHUB_TOKEN or GITHUB_APP_ID with GITHUB_PRIVATE_KEY_PATH must be set")
	}
	if c.GitHub.IssueTimeout <= 0 {
		return fmt.Errorf("github.issue_timeout must be positive")
	}
	if c.Runner.LaunchTimeout <= 0 {
		return fmt.Errorf("runner.launch_timeout must be positive")
	}
	if c.GitHub.IssueTimeout+c.Runner.LaunchTimeout >= c.Server.RequestTimeout {
		return fmt.Errorf("github.issue_timeout (%s) plus runner.launch_timeout (%s) must be shorter than server.request_timeout (%s)",
			c.GitHub.IssueTimeout, c.Runner.LaunchTimeout, c.Server.RequestTimeout)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}
	if c.Gate.MaxConcurrentUnits < 1 {
		return fmt.Errorf("gate.max_concurrent_units must be at least 1, got %d", c.Gate.MaxConcurrentUnits)
	}
	if c.Gate.SweepInterval <= 0 || c.Gate.Grace < 0 {
		return fmt.Errorf("gate.sweep_interval must be positive and gate.grace must not be negative")
	}
	if c.Runner.MaxRuntime <= 0 || c.Runner.MaxRuntime > MaxPlatformRuntime {
		return fmt.Errorf("runner.max_runtime must be between 1s and %s, got %s", MaxPlatformRuntime, c.Runner.MaxRuntime)
	}
	if len(c.Nomad.JobPrefix) > maxJobPrefixLength {
		return fmt.Errorf("nomad.job_prefix must be at most %d characters, got %q", maxJobPrefixLength, c.Nomad.JobPrefix)
	}
	if c.Runner.Image == "" {
		return fmt.Errorf("runner.image must be set")
	}
	if isPrivilegedUser(c.Runner.User) {
		return fmt.Errorf("runner.user must name a non-root identity, got %q", c.Runner.User)
	}
	if _, ok := c.Runner.Profile(c.Runner.DefaultProfile); !ok {
		return fmt.Errorf("runner.default_profile %q is not defined", c.Runner.DefaultProfile)
	}
	if c.Server.PublicURL != "" && c.Callback.Secret == "" {
		return fmt.Errorf("CALLBACK_SECRET must be set when SERVER_PUBLIC_URL is set")
	}
	return nil
}

func isPrivilegedUser(user string) bool {
	u := strings.TrimSpace(user)
	if i := strings.Index(u, ":"); i >= 0 {
		u = u[:i]
	}
	return u == "" || u == "root" || u == "0"
}
