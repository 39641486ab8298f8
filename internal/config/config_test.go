package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ModeLive, cfg.Mode)
	assert.Equal(t, "http://localhost:8000/api/v1/", cfg.APIBaseURL)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, TokenStoreFile, cfg.TokenStore)
	assert.NotEmpty(t, cfg.TokenFile)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, 30*time.Second, cfg.BreakerTimeout)
	assert.Equal(t, uint32(5), cfg.BreakerMinRequests)
	assert.Equal(t, "storefront", cfg.Tracing.ServiceName)
}

func TestLoad_MockMode(t *testing.T) {
	t.Setenv("STOREFRONT_MODE", "mock")

	cfg, err := Load()

	require.NoError(t, err)
	assert.True(t, cfg.Mode.IsMock())
}

func TestLoad_InvalidMode(t *testing.T) {
	t.Setenv("STOREFRONT_MODE", "dev")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, "STOREFRONT_MODE")
}

func TestLoad_AddsTrailingSlashToBaseURL(t *testing.T) {
	t.Setenv("STOREFRONT_API_URL", "https://shop.example.com/api/v1")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/api/v1/", cfg.APIBaseURL)
}

func TestLoad_InvalidBaseURL(t *testing.T) {
	t.Setenv("STOREFRONT_API_URL", "not a url")

	_, err := Load()

	assert.ErrorContains(t, err, "STOREFRONT_API_URL")
}

func TestLoad_UnknownTokenStore(t *testing.T) {
	t.Setenv("STOREFRONT_TOKEN_STORE", "cookie")

	_, err := Load()

	assert.ErrorContains(t, err, "STOREFRONT_TOKEN_STORE")
}

func TestLoad_InvalidOTELSampleRate(t *testing.T) {
	t.Setenv("OTEL_SAMPLE_RATE", "2.0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, "OTEL_SAMPLE_RATE must be between 0.0 and 1.0")
}

func TestLoad_KafkaBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_DotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("STOREFRONT_TOKEN_STORE=memory\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("STOREFRONT_TOKEN_STORE") })

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, TokenStoreMemory, cfg.TokenStore)
}

func TestLoadMockAPI_Defaults(t *testing.T) {
	cfg, err := LoadMockAPI()

	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.HTTPPort)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, "storefront-mockapi", cfg.Tracing.ServiceName)
	assert.Empty(t, cfg.CORSOrigins)
}

func TestLoadMockAPI_CORSOrigins(t *testing.T) {
	t.Setenv("MOCKAPI_CORS_ORIGINS", "http://localhost:5173,http://localhost:5174")

	cfg, err := LoadMockAPI()

	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:5174"}, cfg.CORSOrigins)
}

func TestLoadMockAPI_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value, want string
	}{
		{"port", "MOCKAPI_HTTP_PORT", "0", "MOCKAPI_HTTP_PORT"},
		{"short secret", "MOCKAPI_JWT_SECRET", "short", "MOCKAPI_JWT_SECRET"},
		{"ttl order", "MOCKAPI_ACCESS_TTL", "200h", "MOCKAPI_ACCESS_TTL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			cfg, err := LoadMockAPI()

			assert.Nil(t, cfg)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
