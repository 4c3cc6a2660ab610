package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080", RequestTimeout: 60 * time.Second, MaxBodyBytes: 1 << 20},
		GitHub: GitHubConfig{
			WebhookSecret: "webhook-secret",
			Token:         "service-token",
			RunnerGroupID: 1,
			IssueTimeout:  10 * time.Second,
		},
		Runner: RunnerConfig{
			Image:          "ghcr.io/actions/actions-runner:latest",
			User:           "runner",
			MaxRuntime:     time.Hour,
			LaunchTimeout:  15 * time.Second,
			DefaultProfile: DefaultProfileName,
			Profiles:       mergeProfiles(nil, nil),
		},
		Gate: GateConfig{MaxConcurrentUnits: 2, SweepInterval: time.Minute, Grace: time.Minute},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid PAT config", mutate: func(*Config) {}},
		{name: "valid app config", mutate: func(c *Config) {
			c.GitHub.Token = ""
			c.GitHub.AppID = 12
			c.GitHub.PrivateKeyPath = "key.pem"
		}},
		{name: "missing webhook secret", mutate: func(c *Config) { c.GitHub.WebhookSecret = "" }, wantErr: true},
		{name: "no service credential", mutate: func(c *Config) { c.GitHub.Token = "" }, wantErr: true},
		{name: "app without key", mutate: func(c *Config) {
			c.GitHub.Token = ""
			c.GitHub.AppID = 12
		}, wantErr: true},
		{name: "zero ceiling", mutate: func(c *Config) { c.Gate.MaxConcurrentUnits = 0 }, wantErr: true},
		{name: "zero runtime", mutate: func(c *Config) { c.Runner.MaxRuntime = 0 }, wantErr: true},
		{name: "runtime above platform maximum", mutate: func(c *Config) { c.Runner.MaxRuntime = 25 * time.Hour }, wantErr: true},
		{name: "root user", mutate: func(c *Config) { c.Runner.User = "root" }, wantErr: true},
		{name: "uid zero", mutate: func(c *Config) { c.Runner.User = "0:0" }, wantErr: true},
		{name: "empty user", mutate: func(c *Config) { c.Runner.User = "" }, wantErr: true},
		{name: "numeric non-root user", mutate: func(c *Config) { c.Runner.User = "1001:1001" }},
		{name: "timeouts exceed request timeout", mutate: func(c *Config) { c.Runner.LaunchTimeout = 55 * time.Second }, wantErr: true},
		{name: "job prefix too long", mutate: func(c *Config) { c.Nomad.JobPrefix = strings.Repeat("w", 33) }, wantErr: true},
		{name: "mixed case job prefix", mutate: func(c *Config) { c.Nomad.JobPrefix = "CI.Runners" }},
		{name: "missing image", mutate: func(c *Config) { c.Runner.Image = "" }, wantErr: true},
		{name: "unknown default profile", mutate: func(c *Config) { c.Runner.DefaultProfile = "huge" }, wantErr: true},
		{name: "callback without secret", mutate: func(c *Config) { c.Server.PublicURL = "https://warden.example.com" }, wantErr: true},
		{name: "callback with secret", mutate: func(c *Config) {
			c.Server.PublicURL = "https://warden.example.com"
			c.Callback.Secret = "cb"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GITHUB_WEBHOOK_SECRET", "from-env")
	t.Setenv("GITHUB_TOKEN", "pat")
	t.Setenv("GATE_MAX_CONCURRENT_UNITS", "3")
	t.Setenv("RUNNER_MAX_RUNTIME", "30m")
	t.Setenv("RUNNER_LABELS", "self-hosted,gpu")

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "from-env", cfg.GitHub.WebhookSecret)
	assert.Equal(t, 3, cfg.Gate.MaxConcurrentUnits)
	assert.Equal(t, 30*time.Minute, cfg.Runner.MaxRuntime)
	assert.Equal(t, []string{"self-hosted", "gpu"}, cfg.Runner.Labels)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, int64(1), cfg.GitHub.RunnerGroupID)
	assert.False(t, cfg.Database.Enabled())
}

func TestLoad_ConfigFileWithProfiles(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	profilesPath := filepath.Join(dir, "profiles.yaml")
	require.NoError(t, os.WriteFile(profilesPath, []byte(`
profiles:
  GPU:
    cpu: 8000
    memory_mb: 32768
    accelerator: nvidia/gpu
    accelerator_count: 1
`), 0o600))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "runner-warden.yaml"), []byte(`
github:
  webhook_secret: file-secret
  token: pat
runner:
  profiles_file: `+profilesPath+`
  profiles:
    large:
      cpu: 4000
      memory_mb: 8192
`), 0o600))

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "file-secret", cfg.GitHub.WebhookSecret)

	gpu := cfg.Runner.ProfileFor([]string{"self-hosted", "gpu"})
	assert.Equal(t, "gpu", gpu.Name)
	assert.Equal(t, "nvidia/gpu", gpu.Accelerator)
	assert.Equal(t, uint64(1), gpu.AcceleratorCount)

	large := cfg.Runner.ProfileFor([]string{"LARGE"})
	assert.Equal(t, 4000, large.CPU)

	def := cfg.Runner.ProfileFor([]string{"self-hosted"})
	assert.Equal(t, DefaultProfile(), def)
}

func TestLoadProfiles_Errors(t *testing.T) {
	_, err := LoadProfiles("")
	assert.ErrorIs(t, err, ErrProfilesNotFound)

	_, err = LoadProfiles(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrProfilesNotFound)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("profiles: [unclosed"), 0o600))
	_, err = LoadProfiles(bad)
	assert.ErrorIs(t, err, ErrProfilesParsing)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("profiles:\n  tiny:\n    cpu: 0\n    memory_mb: 0\n"), 0o600))
	_, err = LoadProfiles(empty)
	assert.ErrorIs(t, err, ErrProfilesParsing)
}
