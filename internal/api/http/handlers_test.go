package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zou/appbridge/internal/bridge"
	"github.com/zou/appbridge/internal/infrastructure/monitoring"
	"github.com/zou/appbridge/internal/infrastructure/resilience"
	"github.com/zou/appbridge/internal/shared/types"
)

const testChannel = "dingtalk_service"

type mockRegistry struct {
	mock.Mock
}

func (m *mockRegistry) IsInstalled(ctx context.Context, appID string) (bool, error) {
	args := m.Called(ctx, appID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRegistry) Launch(ctx context.Context, appID string) (bool, error) {
	args := m.Called(ctx, appID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRegistry) List(ctx context.Context) ([]types.AppEntry, error) {
	args := m.Called(ctx)
	entries, _ := args.Get(0).([]types.AppEntry)
	return entries, args.Error(1)
}

func setupRouter(reg *mockRegistry, opts Options) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	opts.Channel = testChannel
	if opts.Lister == nil {
		opts.Lister = reg
	}
	d := bridge.New(reg, bridge.Options{Metrics: opts.Metrics})
	NewHandlers(d, opts).Register(router)
	return router
}

func post(router http.Handler, channel, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/channels/"+channel, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCall(t *testing.T) {
	reg := &mockRegistry{}
	reg.On("IsInstalled", mock.Anything, "com.example.chat").Return(true, nil)
	reg.On("IsInstalled", mock.Anything, "com.example.missing").Return(false, nil)
	reg.On("Launch", mock.Anything, "com.example.chat").Return(true, nil)
	reg.On("Launch", mock.Anything, "com.example.broken").Return(false, errors.New("activity not found"))

	router := setupRouter(reg, Options{})

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "installed",
			body: `{"id":"1","method":"isAppInstalled","args":{"packageName":"com.example.chat"}}`,
			want: `{"id":"1","ok":true,"result":true}`,
		},
		{
			name: "not installed",
			body: `{"method":"isAppInstalled","args":{"packageName":"com.example.missing"}}`,
			want: `{"ok":true,"result":false}`,
		},
		{
			name: "open",
			body: `{"id":"2","method":"openApp","args":{"packageName":"com.example.chat"}}`,
			want: `{"id":"2","ok":true,"result":true}`,
		},
		{
			name: "missing argument",
			body: `{"id":"3","method":"openApp","args":{}}`,
			want: `{"id":"3","ok":false,"error":{"code":"PACKAGE_NAME_NULL","message":"Package name is null"}}`,
		},
		{
			name: "null argument",
			body: `{"method":"isAppInstalled","args":{"packageName":null}}`,
			want: `{"ok":false,"error":{"code":"PACKAGE_NAME_NULL","message":"Package name is null"}}`,
		},
		{
			name: "unknown method",
			body: `{"id":"4","method":"closeApp","args":{"packageName":"com.example.chat"}}`,
			want: `{"id":"4","ok":false,"error":{"code":"NOT_IMPLEMENTED"}}`,
		},
		{
			name: "platform error",
			body: `{"method":"openApp","args":{"packageName":"com.example.broken"}}`,
			want: `{"ok":false,"error":{"code":"PLATFORM_ERROR","message":"activity not found"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(router, testChannel, tt.body)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, tt.want, w.Body.String())
		})
	}

	reg.AssertNumberOfCalls(t, "Launch", 2)
}

func TestCallWrongChannel(t *testing.T) {
	reg := &mockRegistry{}
	router := setupRouter(reg, Options{})

	for _, name := range []string{"other_service", "DingTalk_Service", "dingtalk_service_"} {
		w := post(router, name, `{"method":"isAppInstalled","args":{"packageName":"a"}}`)
		assert.Equal(t, http.StatusNotFound, w.Code, name)
	}
	reg.AssertNotCalled(t, "IsInstalled", mock.Anything, mock.Anything)
}

func TestCallMalformedBody(t *testing.T) {
	router := setupRouter(&mockRegistry{}, Options{})

	for _, body := range []string{"", "{", `"openApp"`, `{"method":"openApp","args":[]}`} {
		w := post(router, testChannel, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Contains(t, w.Body.String(), "error")
	}
}

func TestHealth(t *testing.T) {
	breaker := resilience.New("registry", resilience.Settings{ReadyToTrip: resilience.ConsecutiveFailures(1)})
	metrics := monitoring.NewMetrics()
	reg := &mockRegistry{}
	router := setupRouter(reg, Options{Breaker: breaker, Metrics: metrics})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
	assert.Contains(t, w.Body.String(), `"breaker":"closed"`)

	_ = breaker.Do(context.Background(), func(context.Context) error { return errors.New("down") })

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
}

func TestListApps(t *testing.T) {
	reg := &mockRegistry{}
	reg.On("List", mock.Anything).Return([]types.AppEntry{
		{ID: "com.example.chat", Name: "Chat", Exec: []string{"chat"}, Source: types.SourceCatalog},
		{ID: "com.example.service", Source: types.SourceCatalog},
	}, nil).Once()
	reg.On("List", mock.Anything).Return(nil, errors.New("scan failed")).Once()

	router := setupRouter(reg, Options{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/apps", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_apps":2`)
	assert.Contains(t, w.Body.String(), `"launchable_apps":1`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/apps", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestMetricsJSON(t *testing.T) {
	metrics := monitoring.NewMetrics()
	reg := &mockRegistry{}
	reg.On("IsInstalled", mock.Anything, "a").Return(true, nil)
	router := setupRouter(reg, Options{Metrics: metrics})

	post(router, testChannel, `{"method":"isAppInstalled","args":{"packageName":"a"}}`)
	post(router, testChannel, `{"method":"closeApp"}`)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics/json", nil))
	assert.JSONEq(t,
		`{"total_calls":2,"failed_calls":1,"platform_errors":0,"launches":0,"ws_connections":0}`,
		w.Body.String(),
	)
}
