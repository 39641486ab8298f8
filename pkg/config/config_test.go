package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clientSettings struct {
	BaseURL  string        `env:"CFGTEST_API_URL" envDefault:"http://localhost:8000/api/v1/"`
	Timeout  time.Duration `env:"CFGTEST_TIMEOUT" envDefault:"10s"`
	PageSize int           `env:"CFGTEST_PAGE_SIZE" envDefault:"20"`
	MockMode bool          `env:"CFGTEST_MOCK"`
	Brokers  []string      `env:"CFGTEST_BROKERS" envSeparator:","`
}

func writeDotenv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	var cfg clientSettings
	require.NoError(t, Load(&cfg))
	assert.Equal(t, "http://localhost:8000/api/v1/", cfg.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 20, cfg.PageSize)
	assert.False(t, cfg.MockMode)
	assert.Empty(t, cfg.Brokers)

	t.Setenv("CFGTEST_TIMEOUT", "250ms")
	t.Setenv("CFGTEST_MOCK", "true")
	t.Setenv("CFGTEST_BROKERS", "k1:9092,k2:9092")
	cfg = clientSettings{}
	require.NoError(t, Load(&cfg))
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout)
	assert.True(t, cfg.MockMode)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad int", "CFGTEST_PAGE_SIZE", "twenty"},
		{"bad duration", "CFGTEST_TIMEOUT", "soon"},
		{"bad bool", "CFGTEST_MOCK", "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			var cfg clientSettings
			err := Load(&cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "parse config")
		})
	}
}

func TestLoad_RequiredWithoutDefault(t *testing.T) {
	var cfg struct {
		Token string `env:"CFGTEST_TOKEN,required"`
	}
	require.ErrorContains(t, Load(&cfg), "CFGTEST_TOKEN")

	t.Setenv("CFGTEST_TOKEN", "secret-123")
	require.NoError(t, Load(&cfg))
	assert.Equal(t, "secret-123", cfg.Token)
}

func TestLoad_DotenvFile(t *testing.T) {
	path := writeDotenv(t, "CFGTEST_DOTENV_URL=http://mock:8081/api/v1/\n")
	t.Cleanup(func() { _ = os.Unsetenv("CFGTEST_DOTENV_URL") })

	var cfg struct {
		URL string `env:"CFGTEST_DOTENV_URL" envDefault:"unset"`
	}
	require.NoError(t, Load(&cfg, path))
	assert.Equal(t, "http://mock:8081/api/v1/", cfg.URL)
}

func TestLoad_EnvironmentBeatsDotenv(t *testing.T) {
	path := writeDotenv(t, "CFGTEST_DOTENV_PAGE=5\n")
	t.Setenv("CFGTEST_DOTENV_PAGE", "50")

	var cfg struct {
		Page int `env:"CFGTEST_DOTENV_PAGE"`
	}
	require.NoError(t, Load(&cfg, path))
	assert.Equal(t, 50, cfg.Page)
}

func TestLoad_MissingDotenvIgnored(t *testing.T) {
	var cfg clientSettings
	require.NoError(t, Load(&cfg, filepath.Join(t.TempDir(), "absent.env")))
	assert.Equal(t, 20, cfg.PageSize)
}
