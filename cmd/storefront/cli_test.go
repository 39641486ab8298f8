package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/mockapi"
	"github.com/utafrali/storefront/pkg/health"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// ============================================================================
// Helpers
// ============================================================================

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(args ...string) result {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// setupEnv points the CLI at a fresh mock backend with a file token store,
// so a session survives between runs like it does between shell commands.
func setupEnv(t *testing.T) {
	t.Helper()
	srv := mockapi.NewServer(mockapi.DefaultOptions(), logger.Discard())
	ts := httptest.NewServer(mockapi.NewRouter(srv, health.NewHandler(), logger.Discard()))
	t.Cleanup(ts.Close)

	t.Setenv("STOREFRONT_API_URL", ts.URL+"/api/v1/")
	t.Setenv("STOREFRONT_TOKEN_STORE", "file")
	t.Setenv("STOREFRONT_TOKEN_FILE", filepath.Join(t.TempDir(), "tokens.json"))
	t.Setenv("STOREFRONT_HTTP_RETRIES", "0")
	t.Setenv("LOG_LEVEL", "error")
}

// mockEnv keeps mock mode runs off the user's real token file.
func mockEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STOREFRONT_TOKEN_STORE", "memory")
	t.Setenv("LOG_LEVEL", "error")
}

func login(t *testing.T, username, password string) {
	t.Helper()
	res := runCLI("login", "-username", username, "-password", password)
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, "signed in as "+username)
}

// ============================================================================
// Dispatch
// ============================================================================

func TestRun_Usage(t *testing.T) {
	res := runCLI()

	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, "commands:")
	assert.Contains(t, res.stderr, "cart-add")
	assert.Contains(t, res.stderr, "admin-products")
}

func TestRun_UnknownCommand(t *testing.T) {
	res := runCLI("teleport")

	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, `unknown command "teleport"`)
}

func TestRun_MissingRequiredFlag(t *testing.T) {
	mockEnv(t)

	res := runCLI("-mock", "product")

	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, "missing required flags: -id")
}

// ============================================================================
// Mock mode
// ============================================================================

func TestRun_MockProducts(t *testing.T) {
	mockEnv(t)

	res := runCLI("-mock", "products", "-sort", "价格从高到低")

	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "NAME")
	assert.Contains(t, res.stdout, "皮革手提包")
}

func TestRun_UnknownSort(t *testing.T) {
	mockEnv(t)

	res := runCLI("-mock", "products", "-sort", "cheapest")

	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, `unknown sort "cheapest"`)
}

func TestRun_MockProductNotFound(t *testing.T) {
	mockEnv(t)

	res := runCLI("-mock", "product", "-id", "999")

	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "product with id 999 not found")
}

func TestRun_Dump(t *testing.T) {
	mockEnv(t)

	res := runCLI("-mock", "-dump", "me")

	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Username")
	assert.Contains(t, res.stdout, `"testuser"`)
}

// ============================================================================
// Live mode against the mock backend
// ============================================================================

func TestRun_RequiresLogin(t *testing.T) {
	setupEnv(t)

	res := runCLI("cart")

	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "not signed in")
}

func TestRun_BadCredentials(t *testing.T) {
	setupEnv(t)

	res := runCLI("login", "-username", "testuser", "-password", "nope")

	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "密码错误，请重试")
}

func TestRun_ShoppingFlow(t *testing.T) {
	setupEnv(t)
	login(t, "testuser", mockapi.DemoPassword)

	res := runCLI("cart")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "1897.00")

	res = runCLI("cart-add", "-product", "5")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "2496.00")

	res = runCLI("checkout")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "order ORD")

	res = runCLI("cart")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "0.00")

	res = runCLI("orders", "-status", "pending")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "ORD20231127003")
}

func TestRun_OrderActions(t *testing.T) {
	setupEnv(t)
	login(t, "testuser", mockapi.DemoPassword)

	res := runCLI("pay", "-id", "3")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "order 3 is now")

	// A completed order cannot be cancelled.
	res = runCLI("cancel", "-id", "1")
	assert.Equal(t, 1, res.code)

	res = runCLI("order", "-id", "1")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "ship to")
}

func TestRun_Addresses(t *testing.T) {
	setupEnv(t)
	login(t, "testuser", mockapi.DemoPassword)

	res := runCLI("address-update", "-id", "2", "-default")
	require.Equal(t, 0, res.code, res.stderr)

	res = runCLI("addresses")
	require.Equal(t, 0, res.code, res.stderr)
	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1]+lines[2], "李四")
	for _, line := range lines[1:] {
		if strings.Contains(line, "张三") {
			assert.NotContains(t, line, "yes")
		}
		if strings.Contains(line, "李四") {
			assert.Contains(t, line, "yes")
		}
	}
}

func TestRun_Favorites(t *testing.T) {
	setupEnv(t)
	login(t, "testuser", mockapi.DemoPassword)

	res := runCLI("favorite", "-product", "4")
	require.Equal(t, 0, res.code, res.stderr)

	res = runCLI("favorites")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "羊毛针织衫")
}

func TestRun_AdminCommands(t *testing.T) {
	setupEnv(t)
	login(t, "testuser", mockapi.DemoPassword)

	res := runCLI("admin-products")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "admin role required")

	login(t, mockapi.AdminUsername, mockapi.AdminPassword)

	res = runCLI("admin-product-add", "-category", "4", "-name", "丝巾", "-price", "129.00", "-stock", "20")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "created")

	res = runCLI("admin-products")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "丝巾")
}

// ============================================================================
// Events
// ============================================================================

func TestPrintEvents(t *testing.T) {
	e, err := pkgkafka.NewEvent(event.TopicFavoriteChanged, "4", event.AggregateTypeProduct, event.SourceStorefront,
		event.FavoriteChangedData{ProductID: 4, IsFavorited: true, UserID: "1"})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, printEvents(&out)(context.Background(), e))

	assert.Contains(t, out.String(), "product 4 favorited by user 1")
}

func TestRun_EventsNeedBrokers(t *testing.T) {
	mockEnv(t)

	res := runCLI("-mock", "events")

	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "KAFKA_BROKERS")
}
