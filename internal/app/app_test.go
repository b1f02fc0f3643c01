package app_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"bikeshop/internal/app"
	"bikeshop/internal/cache"
	"bikeshop/internal/config"
	"bikeshop/internal/database"
	"bikeshop/internal/logger"
	"bikeshop/internal/models"
	"bikeshop/internal/repositories"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testShop struct {
	*app.App
	db *gorm.DB
	mr *miniredis.Miniredis
}

func testConfig(strategy string) *config.Config {
	return &config.Config{
		AppEnv:             "test",
		CartStrategy:       strategy,
		JWTSecret:          "test-secret",
		SessionTTL:         time.Hour,
		CatalogCacheTTL:    time.Minute,
		TaxRate:            0.05,
		LoginRatePerSecond: 100,
		LoginBurst:         100,
		AdminUsername:      "admin",
		AdminEmail:         "admin@example.com",
		AdminPassword:      "adminpass",
	}
}

func newTestShop(t *testing.T, cfg *config.Config) *testShop {
	t.Helper()
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()), logger.Discard())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { database.Close(db) })

	shop := &testShop{db: db}
	deps := app.Dependencies{DB: db, Log: logger.Discard()}
	if cfg.CartStrategy == config.CartSession {
		shop.mr = miniredis.RunT(t)
		rc, err := cache.NewRedisClient(cache.Config{Addr: shop.mr.Addr()}, logger.Discard())
		require.NoError(t, err)
		t.Cleanup(rc.Close)
		deps.Redis = rc
	}

	a, err := app.NewApp(cfg, deps)
	require.NoError(t, err)
	require.NoError(t, a.Bootstrap())
	shop.App = a
	return shop
}

// browser keeps cookies between requests like a user agent would.
type browser struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, a *fiber.App) *browser {
	return &browser{t: t, app: a, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(method, path string, form url.Values) *http.Response {
	b.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	}
	for _, c := range b.cookies {
		req.AddCookie(c)
	}

	resp, err := b.app.Test(req, -1)
	require.NoError(b.t, err)
	for _, c := range resp.Cookies() {
		if c.Value == "" || c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return resp
}

func (b *browser) view(path string) (int, map[string]interface{}) {
	b.t.Helper()
	resp := b.do(fiber.MethodGet, path, nil)
	return resp.StatusCode, decode(b.t, resp)
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func notice(view map[string]interface{}) string {
	n, ok := view["notice"].(map[string]interface{})
	if !ok {
		return ""
	}
	msg, _ := n["message"].(string)
	return msg
}

func (b *browser) register(username, password string) *http.Response {
	return b.do(fiber.MethodPost, "/register", url.Values{
		"username": {username},
		"email":    {username + "@example.com"},
		"password": {password},
	})
}

func (b *browser) login(login, password string) *http.Response {
	return b.do(fiber.MethodPost, "/login", url.Values{"login": {login}, "password": {password}})
}

func signedIn(t *testing.T, shop *testShop, username string) *browser {
	t.Helper()
	b := newBrowser(t, shop.Fiber)
	require.Equal(t, fiber.StatusSeeOther, b.register(username, "secret123").StatusCode)
	resp := b.login(username, "secret123")
	require.Equal(t, "/products", resp.Header.Get("Location"))
	require.Contains(t, b.cookies, "session")
	return b
}

func productIDs(t *testing.T, view map[string]interface{}) map[string]string {
	t.Helper()
	ids := map[string]string{}
	for _, raw := range view["products"].([]interface{}) {
		p := raw.(map[string]interface{})
		ids[p["name"].(string)] = p["id"].(string)
	}
	return ids
}

func TestPublicPages(t *testing.T) {
	shop := newTestShop(t, testConfig(config.CartPersisted))
	b := newBrowser(t, shop.Fiber)

	resp := b.do(fiber.MethodGet, "/", nil)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	status, view := b.view("/about")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "about", view["page"])

	status, view = b.view("/health")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "healthy", view["status"])
	assert.Equal(t, "disabled", view["redis"])
}

func TestGatedRoutesRedirectToLogin(t *testing.T) {
	shop := newTestShop(t, testConfig(config.CartPersisted))
	b := newBrowser(t, shop.Fiber)

	for _, path := range []string{"/products", "/cart", "/checkout", "/admin", "/admin/users", "/logout"} {
		resp := b.do(fiber.MethodGet, path, nil)
		assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode, path)
		assert.Equal(t, "/login", resp.Header.Get("Location"), path)
	}

	_, view := b.view("/login")
	assert.Equal(t, "Please log in to access this page.", notice(view))
}

func TestRegisterAndLogin(t *testing.T) {
	shop := newTestShop(t, testConfig(config.CartPersisted))
	b := newBrowser(t, shop.Fiber)

	resp := b.register("alice", "secret123")
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	other := newBrowser(t, shop.Fiber)
	resp = other.register("alice", "different")
	assert.Equal(t, "/register", resp.Header.Get("Location"))
	_, view := other.view("/register")
	assert.Equal(t, "Username already exists.", notice(view))

	resp = other.login("alice", "wrong-password")
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.NotContains(t, other.cookies, "session")

	// Email works as the login too.
	resp = b.login("alice@example.com", "secret123")
	assert.Equal(t, "/products", resp.Header.Get("Location"))

	status, view := b.view("/products")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alice", view["username"])
	assert.EqualValues(t, 0, view["cart_size"])
	assert.Len(t, view["products"], 5)

	resp = b.do(fiber.MethodGet, "/login", nil)
	assert.Equal(t, "/products", resp.Header.Get("Location"), "signed-in users skip the login page")

	resp = b.do(fiber.MethodGet, "/logout", nil)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	resp = b.do(fiber.MethodGet, "/products", nil)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestRegisterRejectsInvalidForm(t *testing.T) {
	shop := newTestShop(t, testConfig(config.CartPersisted))
	b := newBrowser(t, shop.Fiber)

	resp := b.do(fiber.MethodPost, "/register", url.Values{"username": {"al"}, "email": {"nope"}, "password": {"123"}})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	view := decode(t, resp)
	assert.Contains(t, view["errors"], "Username")
	assert.Contains(t, view["errors"], "Email")
}

func TestRegisterRejectsUsernameWithAt(t *testing.T) {
	shop := newTestShop(t, testConfig(config.CartPersisted))
	b := newBrowser(t, shop.Fiber)

	resp := b.do(fiber.MethodPost, "/register", url.Values{"username": {"bob@home"}, "email": {"bob@example.com"}, "password": {"secret1"}})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	view := decode(t, resp)
	assert.Contains(t, view["errors"], "Username")
	assert.NotContains(t, view["errors"], "Email")
}

func TestCartAndCheckout(t *testing.T) {
	for _, strategy := range []string{config.CartPersisted, config.CartSession} {
		t.Run(strategy, func(t *testing.T) {
			shop := newTestShop(t, testConfig(strategy))
			b := signedIn(t, shop, "rider")

			_, view := b.view("/products")
			ids := productIDs(t, view)
			aero, gravel := ids["Aero Road Bike"], ids["Gravel Bike"]
			require.NotEmpty(t, aero)

			b.do(fiber.MethodPost, "/add_to_cart/"+aero, nil)
			b.do(fiber.MethodPost, "/add_to_cart/"+aero, nil)
			resp := b.do(fiber.MethodPost, "/add_to_cart/"+gravel, nil)
			assert.Equal(t, "/products", resp.Header.Get("Location"))

			resp = b.do(fiber.MethodPost, "/add_to_cart/missing", nil)
			assert.Equal(t, "/products", resp.Header.Get("Location"))
			_, view = b.view("/products")
			assert.Equal(t, "Product not found.", notice(view))
			assert.EqualValues(t, 3, view["cart_size"])

			status, view := b.view("/cart")
			require.Equal(t, fiber.StatusOK, status)
			assert.Len(t, view["items"], 2)
			assert.EqualValues(t, 7599, view["total"])

			status, view = b.view("/checkout")
			require.Equal(t, fiber.StatusOK, status)
			assert.EqualValues(t, 7599, view["subtotal"])
			assert.EqualValues(t, 379.95, view["tax"])
			assert.EqualValues(t, 7978.95, view["grand_total"])

			// Missing card name keeps the cart and shows the totals again.
			resp = b.do(fiber.MethodPost, "/checkout", url.Values{"card_name": {" "}})
			assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
			view = decode(t, resp)
			assert.EqualValues(t, 7978.95, view["grand_total"])
			assert.Equal(t, "Please fill in all payment details.", notice(view))

			resp = b.do(fiber.MethodPost, "/checkout", url.Values{"card_name": {"R. Rider"}})
			assert.Equal(t, "/products", resp.Header.Get("Location"))
			_, view = b.view("/products")
			assert.Equal(t, "Payment successful! Thank you for your order.", notice(view))
			assert.EqualValues(t, 0, view["cart_size"])

			var orders []models.Order
			require.NoError(t, shop.db.Preload("Items").Find(&orders).Error)
			require.Len(t, orders, 1)
			assert.Equal(t, 7978.95, orders[0].TotalPrice)
			assert.Len(t, orders[0].Items, 2)

			// Checking out again with an empty cart goes back to the cart.
			resp = b.do(fiber.MethodPost, "/checkout", url.Values{"card_name": {"R. Rider"}})
			assert.Equal(t, "/cart", resp.Header.Get("Location"))
			_, view = b.view("/cart")
			assert.Equal(t, "Your cart is empty.", notice(view))

			_, view = b.view("/orders")
			assert.Len(t, view["orders"], 1)
		})
	}
}

func TestCheckoutWithoutFormBody(t *testing.T) {
	shop := newTestShop(t, testConfig(config.CartPersisted))
	b := signedIn(t, shop, "rider")

	resp := b.do(fiber.MethodPost, "/checkout", nil)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/cart", resp.Header.Get("Location"))

	_, view := b.view("/products")
	b.do(fiber.MethodPost, "/add_to_cart/"+productIDs(t, view)["Gravel Bike"], nil)

	resp = b.do(fiber.MethodPost, "/checkout", nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	view = decode(t, resp)
	assert.Equal(t, "Please fill in all payment details.", notice(view))
	assert.EqualValues(t, 1, view["cart_size"])
}

func TestUpdateAndRemoveCartLines(t *testing.T) {
	shop := newTestShop(t, testConfig(config.CartPersisted))
	b := signedIn(t, shop, "rider")

	_, view := b.view("/products")
	aero := productIDs(t, view)["Aero Road Bike"]
	b.do(fiber.MethodPost, "/add_to_cart/"+aero, nil)

	_, view = b.view("/cart")
	line := view["items"].([]interface{})[0].(map[string]interface{})
	lineID := line["line_id"].(string)

	resp := b.do(fiber.MethodPost, "/update_cart/"+lineID, url.Values{"quantity": {"3"}})
	assert.Equal(t, "/cart", resp.Header.Get("Location"))
	_, view = b.view("/cart")
	assert.Equal(t, "Cart updated.", notice(view))
	assert.EqualValues(t, 8400, view["total"])

	resp = b.do(fiber.MethodPost, "/update_cart/"+lineID, url.Values{"quantity": {"abc"}})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Another user cannot touch this line.
	intruder := signedIn(t, shop, "intruder")
	intruder.do(fiber.MethodPost, "/remove_from_cart/"+lineID, nil)
	_, view = intruder.view("/cart")
	assert.Equal(t, "Item not found in your cart.", notice(view))

	resp = b.do(fiber.MethodPost, "/update_cart/"+lineID, url.Values{"quantity": {"0"}})
	assert.Equal(t, "/cart", resp.Header.Get("Location"))
	_, view = b.view("/cart")
	assert.Empty(t, view["items"])
	assert.EqualValues(t, 0, view["total"])
}

func TestSessionCartIsDroppedOnLogout(t *testing.T) {
	shop := newTestShop(t, testConfig(config.CartSession))
	b := signedIn(t, shop, "rider")

	_, view := b.view("/products")
	b.do(fiber.MethodPost, "/add_to_cart/"+productIDs(t, view)["Surron E-Bike"], nil)
	require.Len(t, cartKeys(shop.mr), 1)

	b.do(fiber.MethodGet, "/logout", nil)
	assert.Empty(t, cartKeys(shop.mr))

	// A new login starts a new session with an empty cart.
	b.login("rider", "secret123")
	_, view = b.view("/products")
	assert.EqualValues(t, 0, view["cart_size"])
}

func cartKeys(mr *miniredis.Miniredis) []string {
	var keys []string
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, "cart:") {
			keys = append(keys, k)
		}
	}
	return keys
}

func TestAdminGate(t *testing.T) {
	shop := newTestShop(t, testConfig(config.CartPersisted))

	customer := signedIn(t, shop, "customer")
	resp := customer.do(fiber.MethodGet, "/admin/sales", nil)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/products", resp.Header.Get("Location"))
	_, view := customer.view("/products")
	assert.Equal(t, "You do not have permission to access this page.", notice(view))

	admin := newBrowser(t, shop.Fiber)
	resp = admin.login("admin", "adminpass")
	require.Equal(t, "/products", resp.Header.Get("Location"))

	status, view := admin.view("/admin")
	require.Equal(t, fiber.StatusOK, status)
	summary := view["summary"].(map[string]interface{})
	assert.EqualValues(t, 2, summary["users"])
	assert.EqualValues(t, 5, summary["products"])

	status, view = admin.view("/admin/users")
	require.Equal(t, fiber.StatusOK, status)
	users := view["users"].([]interface{})
	require.Len(t, users, 2)
	assert.NotContains(t, users[0], "password")

	status, _ = admin.view("/admin/sales")
	assert.Equal(t, fiber.StatusOK, status)

	resp = admin.do(fiber.MethodGet, "/admin/sales/export", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), ".xlsx")
}

func TestLoginIsRateLimited(t *testing.T) {
	cfg := testConfig(config.CartPersisted)
	cfg.LoginRatePerSecond = 1
	cfg.LoginBurst = 2
	shop := newTestShop(t, cfg)
	b := newBrowser(t, shop.Fiber)

	b.login("nobody", "x")
	b.login("nobody", "x")
	resp := b.login("nobody", "x")
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestBootstrapIsIdempotent(t *testing.T) {
	shop := newTestShop(t, testConfig(config.CartPersisted))
	require.NoError(t, shop.Bootstrap())

	products, err := repositories.NewGORMProductRepository(shop.db).Count()
	require.NoError(t, err)
	assert.Equal(t, int64(5), products)

	users, err := repositories.NewGORMUserRepository(shop.db).Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), users)
}

func TestNewAppRequiresRedisForSessionCarts(t *testing.T) {
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()), logger.Discard())
	require.NoError(t, err)
	defer database.Close(db)

	_, err = app.NewApp(testConfig(config.CartSession), app.Dependencies{DB: db, Log: logger.Discard()})
	assert.Error(t, err)
}

func TestMetricsEndpoint(t *testing.T) {
	shop := newTestShop(t, testConfig(config.CartPersisted))
	b := newBrowser(t, shop.Fiber)
	b.do(fiber.MethodGet, "/about", nil)

	resp := b.do(fiber.MethodGet, "/metrics", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `bikeshop_http_requests_total{method="GET",path="/about",status="200"}`)
}
