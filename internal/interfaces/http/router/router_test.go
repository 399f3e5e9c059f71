package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appinvoicing "github.com/erp/invoicing/internal/application/invoicing"
	"github.com/erp/invoicing/internal/infrastructure/cache"
	"github.com/erp/invoicing/internal/infrastructure/persistence"
	"github.com/erp/invoicing/internal/interfaces/http/handler"
	"github.com/erp/invoicing/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

func TestNewRouter(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	assert.NotNil(t, r)
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
	assert.Empty(t, r.unversioned)
}

func TestRouterWithAPIVersion(t *testing.T) {
	r := NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v1"))

	group := NewDomainGroup("test", "/test")
	group.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	r.Register(group).Setup()

	w := serve(engine, http.MethodGet, "/api/v1/test/ping", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestRouterUnversioned(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)
	r.RegisterUnversioned(NewDomainGroup("root", "").GET("/health", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	}))
	r.Setup()

	assert.Equal(t, http.StatusNoContent, serve(engine, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/api/v1/health", "").Code)
}

func TestRouterNotFoundEnvelope(t *testing.T) {
	engine := gin.New()
	engine.Use(middleware.RequestID())
	NewRouter(engine).Setup()

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-404")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code      string `json:"code"`
			Message   string `json:"message"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "ERR_NOT_FOUND", body.Error.Code)
	assert.Contains(t, body.Error.Message, "/nope")
	assert.Equal(t, "req-404", body.Error.RequestID)
}

func TestDomainGroup(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodGet, "/api/v1/things/1", "get"},
		{http.MethodPost, "/api/v1/things", "post"},
		{http.MethodDelete, "/api/v1/things/1", "delete"},
	}

	engine := gin.New()
	group := NewDomainGroup("things", "/things").
		GET("/:id", text("get")).
		POST("", text("post")).
		DELETE("/:id", text("delete"))
	assert.Equal(t, "things", group.Name())
	assert.Equal(t, "/things", group.Prefix())
	NewRouter(engine).Register(group).Setup()

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			w := serve(engine, tt.method, tt.path, "")
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, w.Body.String())
		})
	}
}

func TestDomainGroupMiddlewareAndSubgroups(t *testing.T) {
	engine := gin.New()
	group := NewDomainGroup("outer", "/outer").Use(func(c *gin.Context) {
		c.Header("X-Group", "outer")
		c.Next()
	})
	group.Group("inner", "/inner").GET("/leaf", text("leaf"))
	NewRouter(engine).Register(group).Setup()

	w := serve(engine, http.MethodGet, "/api/v1/outer/inner/leaf", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "leaf", w.Body.String())
	assert.Equal(t, "outer", w.Header().Get("X-Group"))
}

func TestInvoiceRoutes(t *testing.T) {
	svc := appinvoicing.NewInvoiceService(
		persistence.NewMemoryInvoiceRepository(),
		cache.NewInMemorySequence(1001),
		cache.NewInMemorySequence(1001),
		nil,
	)
	require.NoError(t, svc.Bootstrap(context.Background(), true))

	engine := gin.New()
	engine.Use(middleware.RequestID())
	system := handler.NewSystemHandler("invoicing", "test", svc)
	NewRouter(engine).
		Register(InvoiceRoutes(handler.NewInvoiceHandler(svc))).
		Register(SystemRoutes(system)).
		RegisterUnversioned(HealthRoutes(system)).
		Setup()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"next payment id", http.MethodGet, "/api/v1/next-payment-id", "", http.StatusOK},
		{"next invoice id", http.MethodGet, "/api/v1/next-invoice-id", "", http.StatusOK},
		{"list", http.MethodGet, "/api/v1/invoices", "", http.StatusOK},
		{"get", http.MethodGet, "/api/v1/invoices/1001", "", http.StatusOK},
		{"card", http.MethodPost, "/api/v1/invoices/1001/card-payment",
			`{"amount":10,"cardNumber":"4111111111111111","cardHolder":"A","expiry":"12/30","cvv":123}`, http.StatusCreated},
		{"cheque", http.MethodPost, "/api/v1/invoices/1001/cheque-payment",
			`{"amount":5,"chequeNumber":42,"bankName":"B","accountHolder":"C"}`, http.StatusCreated},
		{"remove payment", http.MethodDelete, "/api/v1/invoices/1001/payments/1001", "", http.StatusOK},
		{"create", http.MethodPost, "/api/v1/invoices", `{"customerName":"Acme"}`, http.StatusCreated},
		{"delete", http.MethodDelete, "/api/v1/invoices/1002", "", http.StatusOK},
		{"system info", http.MethodGet, "/api/v1/system/info", "", http.StatusOK},
		{"system ping", http.MethodGet, "/api/v1/system/ping", "", http.StatusOK},
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"unknown method", http.MethodPut, "/api/v1/invoices/1001", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(engine, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func text(body string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, body)
	}
}

func serve(engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}
