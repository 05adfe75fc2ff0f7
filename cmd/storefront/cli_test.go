package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/ec-storefront/internal/api"
	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/example/ec-storefront/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const cliSecret = "storefront-cli-secret-0123456789abcdef"

type cliHarness struct {
	app     *api.App
	url     string
	storage *session.MemoryStorage
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()
	app := api.NewApp(store.NewEventStore(nil, zap.NewNop()), api.AppConfig{
		JWTService: auth.NewJWTService(cliSecret, 15*time.Minute, time.Hour),
		Hasher:     auth.NewPasswordHasher(bcrypt.MinCost),
	})
	_, err := app.SeedCatalog(context.Background())
	require.NoError(t, err)
	server := httptest.NewServer(app.Router)
	t.Cleanup(server.Close)
	return &cliHarness{app: app, url: server.URL, storage: session.NewMemoryStorage()}
}

// run executes one CLI invocation. Invocations share session storage the
// way separate processes share the sqlite file.
func (h *cliHarness) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	c := &cli{storage: h.storage, logger: zap.NewNop()}
	root := newRootCmd(c)
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(append(args, "--api", h.url))
	err := execute(context.Background(), c, root)
	return stdout.String(), stderr.String(), err
}

func (h *cliHarness) firstProduct(t *testing.T) string {
	t.Helper()
	products := h.app.Queries.ListProducts("")
	require.NotEmpty(t, products)
	return products[0].ID
}

func TestCLI_ProductsAndCategories(t *testing.T) {
	h := newCLIHarness(t)

	out, _, err := h.run(t, "products")
	require.NoError(t, err)
	assert.Contains(t, out, "Wireless Headphones")
	assert.Contains(t, out, "129.99")

	out, _, err = h.run(t, "categories")
	require.NoError(t, err)
	assert.Contains(t, out, "Electronics")
	assert.Contains(t, out, "Books")
}

func TestCLI_CartRequiresLogin(t *testing.T) {
	h := newCLIHarness(t)

	_, _, err := h.run(t, "cart", "add", h.firstProduct(t))

	assert.ErrorIs(t, err, errNotSignedIn)
}

type recordingCloser struct{ closed bool }

func (r *recordingCloser) Close() error {
	r.closed = true
	return nil
}

func TestCLI_FailedCommandStillClosesStorage(t *testing.T) {
	h := newCLIHarness(t)
	closer := &recordingCloser{}
	c := &cli{storage: h.storage, closer: closer, logger: zap.NewNop()}
	root := newRootCmd(c)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"cart", "add", h.firstProduct(t), "--api", h.url})

	err := execute(context.Background(), c, root)

	assert.ErrorIs(t, err, errNotSignedIn)
	assert.True(t, closer.closed)
}

func TestCLI_SignupShopLogout(t *testing.T) {
	h := newCLIHarness(t)
	productID := h.firstProduct(t)

	out, _, err := h.run(t, "signup", "--name", "Cli User", "--email", "cli@example.com", "--password", "password123")
	require.NoError(t, err)
	assert.Contains(t, out, "signed in as Cli User")

	out, _, err = h.run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "cli@example.com (user)")
	assert.Contains(t, out, "access token valid until")

	out, _, err = h.run(t, "cart", "add", productID)
	require.NoError(t, err)
	assert.Contains(t, out, productID)

	out, _, err = h.run(t, "cart", "inc", productID)
	require.NoError(t, err)
	assert.Regexp(t, productID+`\s+\S.*\s+2\s+`, out)

	out, _, err = h.run(t, "cart", "dec", productID)
	require.NoError(t, err)
	assert.Regexp(t, productID+`\s+\S.*\s+1\s+`, out)

	out, _, err = h.run(t, "cart", "remove", productID)
	require.NoError(t, err)
	assert.Contains(t, out, "Your cart is empty")

	out, _, err = h.run(t, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")
	_, found, _ := h.storage.Get(context.Background(), session.TokenKey)
	assert.False(t, found)
	assert.Empty(t, h.app.ReadStore.GetAll(store.CollectionSessions))
}

func TestCLI_RefreshCookieSurvivesBetweenRuns(t *testing.T) {
	ctx := context.Background()
	h := newCLIHarness(t)
	_, _, err := h.run(t, "signup", "--name", "Cli User", "--email", "cli@example.com", "--password", "password123")
	require.NoError(t, err)

	u, ok := h.app.Queries.GetUserByEmail("cli@example.com")
	require.True(t, ok)
	expired := auth.NewJWTService(cliSecret, -time.Minute, time.Hour)
	stale, _, err := expired.GenerateAccessToken(u.ID, u.Email, u.Role)
	require.NoError(t, err)
	require.NoError(t, h.storage.Set(ctx, session.TokenKey, stale))

	out, stderr, err := h.run(t, "cart")

	require.NoError(t, err)
	assert.Contains(t, out, "Your cart is empty")
	assert.NotContains(t, stderr, "expired")
	token, _, _ := h.storage.Get(ctx, session.TokenKey)
	assert.NotEqual(t, stale, token)
}

func TestCLI_ExpiredSessionPromptsLogin(t *testing.T) {
	ctx := context.Background()
	h := newCLIHarness(t)
	_, _, err := h.run(t, "signup", "--name", "Cli User", "--email", "cli@example.com", "--password", "password123")
	require.NoError(t, err)
	require.NoError(t, h.storage.Delete(ctx, session.CookiesKey))
	u, _ := h.app.Queries.GetUserByEmail("cli@example.com")
	stale, _, err := auth.NewJWTService(cliSecret, -time.Minute, time.Hour).GenerateAccessToken(u.ID, u.Email, u.Role)
	require.NoError(t, err)
	require.NoError(t, h.storage.Set(ctx, session.TokenKey, stale))

	_, stderr, err := h.run(t, "cart")

	assert.Error(t, err)
	assert.Contains(t, stderr, "storefront login")
	_, found, _ := h.storage.Get(ctx, session.TokenKey)
	assert.False(t, found)
}

func TestCLI_AdminCommands(t *testing.T) {
	h := newCLIHarness(t)
	require.NoError(t, h.app.EnsureAdmin(context.Background(), "admin@example.com", "adminpass123", "Admin"))

	_, _, err := h.run(t, "login", "--email", "admin@example.com", "--password", "adminpass123")
	require.NoError(t, err)

	out, _, err := h.run(t, "categories", "create", "Garden")
	require.NoError(t, err)
	assert.Contains(t, out, `"Garden"`)

	productID := h.firstProduct(t)
	out, _, err = h.run(t, "products", "rename", productID, "Renamed Thing")
	require.NoError(t, err)
	assert.Contains(t, out, "Renamed Thing")
}

func TestCLI_LoginWrongPassword(t *testing.T) {
	h := newCLIHarness(t)

	_, _, err := h.run(t, "login", "--email", "nobody@example.com", "--password", "whatever123")

	assert.Error(t, err)
}
