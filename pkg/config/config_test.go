package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	CommonConfig `yaml:",inline"`
	HTTP         HTTPServerConfig `yaml:"http,inline"`
	Metrics      MetricsConfig    `yaml:"metrics,inline"`

	APIKey  string        `env:"API_KEY" yaml:"api_key" required:"true"`
	Debug   bool          `env:"DEBUG" yaml:"debug" default:"false"`
	Timeout time.Duration `env:"CALL_TIMEOUT" yaml:"call_timeout" default:"8s"`
	Origins []string      `env:"ORIGINS" yaml:"origins" default:"https://example.test"`
}

// Validate implements the Validator interface to validate embedded structs
func (c testConfig) Validate() error {
	if err := c.CommonConfig.Validate(); err != nil {
		return err
	}
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	return c.Metrics.Validate()
}

func TestGetConfigFromEnvVars(t *testing.T) {
	testCases := []struct {
		name    string
		envVars map[string]string
		want    testConfig
		wantErr bool
	}{
		{
			name:    "All defaults, except required field",
			envVars: map[string]string{"API_KEY": "test-key"},
			want: testConfig{
				CommonConfig: CommonConfig{LogLevel: "info", LogFormat: "json"},
				HTTP:         HTTPServerConfig{Port: 8080, ReadTimeoutSeconds: 15, WriteTimeoutSeconds: 60, IdleTimeoutSeconds: 60, MaxHeaderBytes: 1048576},
				Metrics:      MetricsConfig{Port: 9090, EnableHTTPMetrics: true},
				APIKey:       "test-key",
				Timeout:      8 * time.Second,
				Origins:      []string{"https://example.test"},
			},
		},
		{
			name: "Override with environment variables",
			envVars: map[string]string{
				"API_KEY":      "env-key",
				"LOG_LEVEL":    "debug",
				"HTTP_PORT":    "3000",
				"DEBUG":        "true",
				"CALL_TIMEOUT": "2s",
				"ORIGINS":      "https://a.test, https://b.test",
			},
			want: testConfig{
				CommonConfig: CommonConfig{LogLevel: "debug", LogFormat: "json"},
				HTTP:         HTTPServerConfig{Port: 3000, ReadTimeoutSeconds: 15, WriteTimeoutSeconds: 60, IdleTimeoutSeconds: 60, MaxHeaderBytes: 1048576},
				Metrics:      MetricsConfig{Port: 9090, EnableHTTPMetrics: true},
				APIKey:       "env-key",
				Debug:        true,
				Timeout:      2 * time.Second,
				Origins:      []string{"https://a.test", "https://b.test"},
			},
		},
		{
			name:    "Missing required field",
			envVars: map[string]string{},
			wantErr: true,
		},
		{
			name: "Invalid log level fails validation",
			envVars: map[string]string{
				"API_KEY":   "test-key",
				"LOG_LEVEL": "loud",
			},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tc.envVars {
				t.Setenv(k, v)
			}

			var cfg testConfig
			err := GetConfigFromEnvVars(&cfg)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, cfg)
		})
	}
}

func TestGetConfigYAMLOverlay(t *testing.T) {
	os.Clearenv()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlBody := `
api_key: yaml-key
log_level: warn
http_port: 4000
`
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o600))

	// Env overrides YAML
	t.Setenv("HTTP_PORT", "5000")

	var cfg testConfig
	require.NoError(t, GetConfig(&cfg, path, false))
	assert.Equal(t, "yaml-key", cfg.APIKey)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 5000, cfg.HTTP.Port)
	// Defaults still applied for untouched fields
	assert.Equal(t, 8 * time.Second, cfg.Timeout)
}

func TestGetConfigMissingFile(t *testing.T) {
	os.Clearenv()
	t.Setenv("API_KEY", "env-only")

	var cfg testConfig
	require.NoError(t, GetConfig(&cfg, "/does/not/exist.yaml", true))
	assert.Equal(t, "env-only", cfg.APIKey)

	var strictCfg testConfig
	require.Error(t, GetConfig(&strictCfg, "/does/not/exist.yaml", false))
}
