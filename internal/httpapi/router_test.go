package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"marketplace-be/internal/cart"
	"marketplace-be/internal/catalog"
	"marketplace-be/internal/cursor"
	"marketplace-be/internal/metrics"
	"marketplace-be/internal/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testUser    = "3f2b8c1e-9d4a-4e6b-8f70-1a2b3c4d5e6f"
	testVariant = "7a0c1e52-3b7d-4d3c-8f3e-6a1d2c9b0e11"
	testTag     = "0a1b2c3d-0000-4000-8000-0000000000aa"
)

var testSecret = []byte("test-secret")

type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) GetCart(ctx context.Context, userID string) (*cart.CartView, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.CartView), args.Error(1)
}

func (m *MockCartService) AddItem(ctx context.Context, params cart.AddItemParams) (*cart.CartView, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.CartView), args.Error(1)
}

func (m *MockCartService) UpdateItem(ctx context.Context, params cart.UpdateItemParams) (*cart.CartView, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.CartView), args.Error(1)
}

func (m *MockCartService) RemoveItem(ctx context.Context, userID, itemID string) error {
	args := m.Called(ctx, userID, itemID)
	return args.Error(0)
}

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) ListProducts(ctx context.Context, params catalog.ListParams) (*catalog.ProductPage, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.ProductPage), args.Error(1)
}

func (m *MockCatalogService) GetProduct(ctx context.Context, id, loc string) (*catalog.ProductDetailView, error) {
	args := m.Called(ctx, id, loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.ProductDetailView), args.Error(1)
}

func (m *MockCatalogService) ListCategories(ctx context.Context, loc string) ([]catalog.NamedView, error) {
	args := m.Called(ctx, loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.NamedView), args.Error(1)
}

func (m *MockCatalogService) ListTags(ctx context.Context, loc string) ([]catalog.NamedView, error) {
	args := m.Called(ctx, loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.NamedView), args.Error(1)
}

type fixture struct {
	cart    *MockCartService
	catalog *MockCatalogService
	metrics *metrics.Registry
	handler http.Handler
}

func newFixture(ping func(context.Context) error) *fixture {
	f := &fixture{
		cart:    new(MockCartService),
		catalog: new(MockCatalogService),
		metrics: metrics.NewRegistry(),
	}
	f.handler = NewRouter(Deps{
		Cart:          f.cart,
		Catalog:       f.catalog,
		Metrics:       f.metrics,
		Limiter:       middleware.NewRateLimiter(),
		JWTSecret:     testSecret,
		DefaultLocale: "en",
		CORSOrigins:   []string{"*"},
		Ping:          ping,
	})
	return f
}

func bearer(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": testUser})
	s, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return "Bearer " + s
}

func (f *fixture) do(t *testing.T, method, target, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", bearer(t))
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func TestCartRoutes(t *testing.T) {
	t.Run("Anonymous caller is rejected", func(t *testing.T) {
		f := newFixture(nil)

		w := f.do(t, http.MethodGet, "/cart", "", false)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		f.cart.AssertNotCalled(t, "GetCart", mock.Anything, mock.Anything)
	})

	t.Run("Get cart", func(t *testing.T) {
		f := newFixture(nil)
		f.cart.On("GetCart", mock.Anything, testUser).
			Return(cart.MapCartToView(testUser, nil), nil).Once()

		w := f.do(t, http.MethodGet, "/cart", "", true)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"userId":"`+testUser+`","items":[],"itemCount":0,"subtotal":"0.00"}`, w.Body.String())
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("Add item", func(t *testing.T) {
		f := newFixture(nil)
		f.cart.On("AddItem", mock.Anything, cart.AddItemParams{
			UserID: testUser, VariantID: testVariant, Quantity: 3,
		}).Return(&cart.CartView{ID: "cart-1", Items: []cart.CartItemView{}}, nil).Once()

		w := f.do(t, http.MethodPost, "/cart/items", `{"variantId":"`+testVariant+`","quantity":3}`, true)

		assert.Equal(t, http.StatusOK, w.Code)
		f.cart.AssertExpectations(t)
	})

	t.Run("Add item validates shape", func(t *testing.T) {
		f := newFixture(nil)
		cases := []string{
			`{"variantId":"` + testVariant + `","quantity":0}`,
			`{"variantId":"` + testVariant + `","quantity":2147483648}`,
			`{"variantId":"nope","quantity":1}`,
			`{"variantId":"` + testVariant + `","quantity":1,"extra":true}`,
			`not json`,
		}
		for _, body := range cases {
			w := f.do(t, http.MethodPost, "/cart/items", body, true)
			assert.Equal(t, http.StatusBadRequest, w.Code, body)
			assert.Contains(t, w.Body.String(), `"code":"INVALID_REQUEST"`)
		}
		f.cart.AssertNotCalled(t, "AddItem", mock.Anything, mock.Anything)
	})

	t.Run("Domain errors map to status codes", func(t *testing.T) {
		cases := []struct {
			err    error
			status int
			body   string
		}{
			{cart.ErrInsufficientStock, http.StatusBadRequest, `{"error":"insufficient stock","code":"INVALID_REQUEST"}`},
			{cart.ErrVendorMismatch, http.StatusConflict, `{"error":"cart already contains items from another vendor","code":"CONFLICT"}`},
			{errors.New("connection reset"), http.StatusInternalServerError, `{"error":"internal server error","code":"INTERNAL"}`},
		}
		for _, tc := range cases {
			f := newFixture(nil)
			f.cart.On("AddItem", mock.Anything, mock.Anything).Return(nil, tc.err).Once()

			w := f.do(t, http.MethodPost, "/cart/items", `{"variantId":"`+testVariant+`","quantity":1}`, true)

			assert.Equal(t, tc.status, w.Code)
			assert.JSONEq(t, tc.body, w.Body.String())
		}
	})

	t.Run("Update item", func(t *testing.T) {
		f := newFixture(nil)
		f.cart.On("UpdateItem", mock.Anything, cart.UpdateItemParams{
			UserID: testUser, ItemID: "item-1", Quantity: 2,
		}).Return(nil, cart.ErrCartItemNotFound).Once()

		w := f.do(t, http.MethodPatch, "/cart/items/item-1", `{"quantity":2}`, true)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Update item rejects out of range quantity", func(t *testing.T) {
		f := newFixture(nil)

		for _, body := range []string{`{"quantity":0}`, `{"quantity":2147483648}`} {
			w := f.do(t, http.MethodPatch, "/cart/items/item-1", body, true)
			assert.Equal(t, http.StatusBadRequest, w.Code, body)
		}
		f.cart.AssertNotCalled(t, "UpdateItem", mock.Anything, mock.Anything)
	})

	t.Run("Remove item", func(t *testing.T) {
		f := newFixture(nil)
		f.cart.On("RemoveItem", mock.Anything, testUser, "item-1").Return(nil).Once()

		w := f.do(t, http.MethodDelete, "/cart/items/item-1", "", true)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"ok":true}`, w.Body.String())
	})
}

func TestCatalogRoutes(t *testing.T) {
	t.Run("List products parses query", func(t *testing.T) {
		f := newFixture(nil)
		next := "tok"
		f.catalog.On("ListProducts", mock.Anything, catalog.ListParams{
			Search: "longyi",
			TagIDs: []string{testTag},
			Cursor: "abc",
			Limit:  2,
			Locale: "my",
		}).Return(&catalog.ProductPage{Items: []catalog.ProductView{}, NextCursor: &next}, nil).Once()

		w := f.do(t, http.MethodGet, "/products?q=longyi&tagIds="+testTag+",&cursor=abc&limit=2&locale=my", "", false)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"items":[],"nextCursor":"tok"}`, w.Body.String())
	})

	t.Run("Default limit and locale", func(t *testing.T) {
		f := newFixture(nil)
		f.catalog.On("ListProducts", mock.Anything, catalog.ListParams{Limit: 20, Locale: "en"}).
			Return(&catalog.ProductPage{Items: []catalog.ProductView{}}, nil).Once()

		w := f.do(t, http.MethodGet, "/products", "", false)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"items":[],"nextCursor":null}`, w.Body.String())
	})

	t.Run("Rejects invalid query", func(t *testing.T) {
		f := newFixture(nil)
		for _, q := range []string{"limit=0", "limit=51", "limit=x", "categoryId=42", "tagIds=a,b"} {
			w := f.do(t, http.MethodGet, "/products?"+q, "", false)
			assert.Equal(t, http.StatusBadRequest, w.Code, q)
		}
		f.catalog.AssertNotCalled(t, "ListProducts", mock.Anything, mock.Anything)
	})

	t.Run("Malformed cursor is a bad request", func(t *testing.T) {
		f := newFixture(nil)
		f.catalog.On("ListProducts", mock.Anything, mock.Anything).Return(nil, cursor.ErrMalformed).Once()

		w := f.do(t, http.MethodGet, "/products?cursor=zzz", "", false)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"invalid cursor","code":"INVALID_REQUEST"}`, w.Body.String())
	})

	t.Run("Get product not found", func(t *testing.T) {
		f := newFixture(nil)
		f.catalog.On("GetProduct", mock.Anything, "p-1", "en").Return(nil, catalog.ErrProductNotFound).Once()

		w := f.do(t, http.MethodGet, "/products/p-1", "", false)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Categories and tags honor Accept-Language", func(t *testing.T) {
		f := newFixture(nil)
		f.catalog.On("ListCategories", mock.Anything, "my").
			Return([]catalog.NamedView{{ID: "c1", Name: "စာအုပ်"}}, nil).Once()
		f.catalog.On("ListTags", mock.Anything, "en").
			Return([]catalog.NamedView{}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/categories", nil)
		req.Header.Set("Accept-Language", "my-MM,en;q=0.8")
		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"items":[{"id":"c1","name":"စာအုပ်"}]}`, w.Body.String())

		w = f.do(t, http.MethodGet, "/tags", "", false)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"items":[]}`, w.Body.String())
	})
}

func TestOperationalRoutes(t *testing.T) {
	t.Run("Health ok", func(t *testing.T) {
		f := newFixture(func(context.Context) error { return nil })

		w := f.do(t, http.MethodGet, "/healthz", "", false)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Health reports database failure", func(t *testing.T) {
		f := newFixture(func(context.Context) error { return errors.New("down") })

		w := f.do(t, http.MethodGet, "/healthz", "", false)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("Metrics snapshot", func(t *testing.T) {
		f := newFixture(nil)
		f.metrics.Inc("cart_add_total")

		w := f.do(t, http.MethodGet, "/metrics", "", false)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"cart_add_total":1}`, w.Body.String())
	})

	t.Run("CORS preflight", func(t *testing.T) {
		f := newFixture(nil)
		req := httptest.NewRequest(http.MethodOptions, "/cart/items", nil)
		req.Header.Set("Origin", "http://shop.example")
		req.Header.Set("Access-Control-Request-Method", "POST")
		w := httptest.NewRecorder()

		f.handler.ServeHTTP(w, req)

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}
