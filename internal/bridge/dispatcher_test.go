package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zou/appbridge/internal/infrastructure/logging"
	"github.com/zou/appbridge/internal/infrastructure/monitoring"
	"github.com/zou/appbridge/internal/infrastructure/resilience"
	"github.com/zou/appbridge/internal/providers/apps"
	"github.com/zou/appbridge/internal/shared/types"
)

// fakeRegistry is an in-memory host registry that counts launches
type fakeRegistry struct {
	installed  map[string]bool
	launchable map[string]bool

	mu       sync.Mutex
	launches []string

	err      error
	panicMsg string
	block    chan struct{}
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		installed: map[string]bool{
			"com.example.chat":    true,
			"com.example.service": true,
		},
		launchable: map[string]bool{
			"com.example.chat": true,
		},
	}
}

func (f *fakeRegistry) before(ctx context.Context) error {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func (f *fakeRegistry) IsInstalled(ctx context.Context, appID string) (bool, error) {
	if err := f.before(ctx); err != nil {
		return false, err
	}
	return f.installed[appID], nil
}

func (f *fakeRegistry) Launch(ctx context.Context, appID string) (bool, error) {
	if err := f.before(ctx); err != nil {
		return false, err
	}
	if !f.installed[appID] || !f.launchable[appID] {
		return false, nil
	}
	f.mu.Lock()
	f.launches = append(f.launches, appID)
	f.mu.Unlock()
	return true, nil
}

func (f *fakeRegistry) launchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.launches)
}

func args(kv ...interface{}) map[string]interface{} {
	m := make(map[string]interface{})
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}

func TestIsAppInstalled(t *testing.T) {
	d := New(newFakeRegistry(), Options{})
	ctx := context.Background()

	r := d.Dispatch(ctx, types.MethodIsAppInstalled, args("packageName", "com.example.chat"))
	assert.Equal(t, types.Success(true), r)

	r = d.Dispatch(ctx, types.MethodIsAppInstalled, args("packageName", "com.example.missing"))
	assert.Equal(t, types.Success(false), r)
}

func TestIsAppInstalledIsIdempotent(t *testing.T) {
	reg := newFakeRegistry()
	d := New(reg, Options{})

	for i := 0; i < 10; i++ {
		r := d.Dispatch(context.Background(), types.MethodIsAppInstalled, args("packageName", "com.example.chat"))
		assert.Equal(t, types.Success(true), r)
	}
	assert.Zero(t, reg.launchCount())
}

func TestOpenApp(t *testing.T) {
	reg := newFakeRegistry()
	d := New(reg, Options{})
	ctx := context.Background()

	r := d.Dispatch(ctx, types.MethodOpenApp, args("packageName", "com.example.chat"))
	assert.Equal(t, types.Success(true), r)
	assert.Equal(t, []string{"com.example.chat"}, reg.launches)

	// installed but no launch directive
	r = d.Dispatch(ctx, types.MethodOpenApp, args("packageName", "com.example.service"))
	assert.Equal(t, types.Success(false), r)

	r = d.Dispatch(ctx, types.MethodOpenApp, args("packageName", "com.example.missing"))
	assert.Equal(t, types.Success(false), r)

	assert.Equal(t, 1, reg.launchCount())
}

func TestMissingPackageName(t *testing.T) {
	want := types.Fail(types.MissingArgument, "Package name is null")

	cases := map[string]map[string]interface{}{
		"nil args":   nil,
		"empty args": {},
		"null value": {"packageName": nil},
		"other args": {"name": "com.example.chat", "flags": 1},
	}

	for _, method := range []string{types.MethodIsAppInstalled, types.MethodOpenApp} {
		for name, a := range cases {
			t.Run(method+"/"+name, func(t *testing.T) {
				reg := newFakeRegistry()
				d := New(reg, Options{})

				r := d.Dispatch(context.Background(), method, a)
				assert.Equal(t, want, r)
				assert.Zero(t, reg.launchCount())
			})
		}
	}
}

func TestPresentPackageNameReachesRegistry(t *testing.T) {
	cases := map[string]interface{}{
		"empty string":   "",
		"structured map": map[string]interface{}{"id": "x"},
		"list":           []interface{}{"x"},
	}

	for _, method := range []string{types.MethodIsAppInstalled, types.MethodOpenApp} {
		for name, v := range cases {
			t.Run(method+"/"+name, func(t *testing.T) {
				reg := newFakeRegistry()
				d := New(reg, Options{})

				r := d.Dispatch(context.Background(), method, args("packageName", v))
				assert.Equal(t, types.Success(false), r)
				assert.Zero(t, reg.launchCount())
			})
		}
	}
}

func TestOpenAppWithEmptyArgs(t *testing.T) {
	d := New(newFakeRegistry(), Options{})

	r := d.Dispatch(context.Background(), "openApp", map[string]interface{}{})
	require.NotNil(t, r.Failure)
	assert.Equal(t, types.MissingArgument, r.Failure.Code)
	assert.Equal(t, "Package name is null", r.Failure.Message)
}

func TestUnknownMethod(t *testing.T) {
	d := New(newFakeRegistry(), Options{})

	for _, method := range []string{"closeApp", "", "IsAppInstalled", "openapp"} {
		r := d.Dispatch(context.Background(), method, args("packageName", "com.example.chat"))
		assert.Equal(t, types.Fail(types.UnknownMethod, ""), r, method)
	}

	// the method is decided before the arguments
	r := d.Dispatch(context.Background(), "closeApp", nil)
	assert.Equal(t, types.UnknownMethod, r.Failure.Code)
}

func TestPackageNameCoercion(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
		ok   bool
	}{
		{"com.example.chat", "com.example.chat", true},
		{" spaced ", " spaced ", true},
		{float64(42), "42", true},
		{1.5, "1.5", true},
		{int64(7), "7", true},
		{true, "true", true},
		{json.Number("12"), "12", true},
		{json.Number("9007199254740993"), "9007199254740993", true},
		{"", "", true},
		{[]interface{}{"x"}, "[x]", true},
		{map[string]interface{}{"id": "x"}, "map[id:x]", true},
		{nil, "", false},
	}

	for _, tt := range tests {
		got, ok := PackageName(map[string]interface{}{"packageName": tt.in})
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}

func TestPlatformErrors(t *testing.T) {
	t.Run("adapter error", func(t *testing.T) {
		reg := newFakeRegistry()
		reg.err = errors.New("registry service unavailable")
		d := New(reg, Options{})

		for _, method := range []string{types.MethodIsAppInstalled, types.MethodOpenApp} {
			r := d.Dispatch(context.Background(), method, args("packageName", "com.example.chat"))
			require.NotNil(t, r.Failure, method)
			assert.Equal(t, types.PlatformError, r.Failure.Code)
			assert.Equal(t, "registry service unavailable", r.Failure.Message)
		}
	})

	t.Run("panic", func(t *testing.T) {
		reg := newFakeRegistry()
		reg.panicMsg = "nil registry handle"
		d := New(reg, Options{})

		r := d.Dispatch(context.Background(), types.MethodIsAppInstalled, args("packageName", "a"))
		require.NotNil(t, r.Failure)
		assert.Equal(t, types.PlatformError, r.Failure.Code)
		assert.Contains(t, r.Failure.Message, "nil registry handle")

		// the dispatcher keeps serving after a panic
		reg.panicMsg = ""
		r = d.Dispatch(context.Background(), types.MethodIsAppInstalled, args("packageName", "com.example.chat"))
		assert.Equal(t, types.Success(true), r)
	})

	t.Run("timeout", func(t *testing.T) {
		reg := newFakeRegistry()
		reg.block = make(chan struct{})
		defer close(reg.block)
		d := New(reg, Options{CallTimeout: 20 * time.Millisecond})

		r := d.Dispatch(context.Background(), types.MethodOpenApp, args("packageName", "com.example.chat"))
		assert.Equal(t, types.Fail(types.PlatformError, MessageTimedOut), r)
	})
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	reg := newFakeRegistry()
	reg.err = errors.New("registry service unavailable")

	breaker := resilience.New("registry", resilience.Settings{
		Timeout:     time.Minute,
		ReadyToTrip: resilience.ConsecutiveFailures(3),
	})
	metrics := monitoring.NewMetrics()
	d := New(apps.NewGuarded(reg, breaker), Options{Metrics: metrics})

	for i := 0; i < 3; i++ {
		r := d.Dispatch(context.Background(), types.MethodIsAppInstalled, args("packageName", "a"))
		assert.Equal(t, "registry service unavailable", r.Failure.Message)
	}

	r := d.Dispatch(context.Background(), types.MethodIsAppInstalled, args("packageName", "a"))
	require.NotNil(t, r.Failure)
	assert.Equal(t, types.PlatformError, r.Failure.Code)
	assert.Contains(t, r.Failure.Message, "circuit breaker is open")

	snap := metrics.Snapshot()
	assert.Equal(t, int64(4), snap.TotalCalls)
	assert.Equal(t, int64(4), snap.FailedCalls)
	assert.Equal(t, int64(4), snap.PlatformErrors)
}

func TestHandle(t *testing.T) {
	reg := newFakeRegistry()
	var h Handler = New(reg, Options{})

	assert.Equal(t, types.Success(true), h.Handle(context.Background(), types.CheckInstalled("com.example.chat")))
	assert.Equal(t, types.Success(true), h.Handle(context.Background(), types.LaunchApp("com.example.chat")))
	assert.Equal(t, types.Success(false), h.Handle(context.Background(), types.LaunchApp("")))
	assert.Equal(t, 1, reg.launchCount())

	// a kind no method decodes to
	r := h.Handle(context.Background(), types.Command{Kind: "close_app", AppID: "com.example.chat"})
	assert.Equal(t, types.Fail(types.UnknownMethod, ""), r)
	assert.Equal(t, 1, reg.launchCount())
}

// stuckRegistry ignores cancellation until released
type stuckRegistry struct {
	release chan struct{}
	calls   int32
}

func (s *stuckRegistry) IsInstalled(ctx context.Context, appID string) (bool, error) {
	atomic.AddInt32(&s.calls, 1)
	<-s.release
	return true, nil
}

func (s *stuckRegistry) Launch(ctx context.Context, appID string) (bool, error) {
	return s.IsInstalled(ctx, appID)
}

func TestTimedOutCallKeepsSlotUntilAdapterReturns(t *testing.T) {
	reg := &stuckRegistry{release: make(chan struct{})}
	d := New(reg, Options{CallTimeout: 20 * time.Millisecond})
	ctx := context.Background()

	r := d.Dispatch(ctx, types.MethodOpenApp, args("packageName", "com.example.chat"))
	assert.Equal(t, types.Fail(types.PlatformError, MessageTimedOut), r)

	// the first adapter call is still running, so this one never starts
	r = d.Dispatch(ctx, types.MethodIsAppInstalled, args("packageName", "com.example.chat"))
	assert.Equal(t, types.Fail(types.PlatformError, MessageTimedOut), r)
	assert.Equal(t, int32(1), atomic.LoadInt32(&reg.calls))

	close(reg.release)
	assert.Eventually(t, func() bool {
		return d.Dispatch(ctx, types.MethodIsAppInstalled, args("packageName", "a")).OK()
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), atomic.LoadInt32(&reg.calls))
}

// countingRegistry records the peak number of concurrent calls
type countingRegistry struct {
	active, peak int32
}

func (c *countingRegistry) enter() {
	n := atomic.AddInt32(&c.active, 1)
	for {
		p := atomic.LoadInt32(&c.peak)
		if n <= p || atomic.CompareAndSwapInt32(&c.peak, p, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)
	atomic.AddInt32(&c.active, -1)
}

func (c *countingRegistry) IsInstalled(ctx context.Context, appID string) (bool, error) {
	c.enter()
	return true, nil
}

func (c *countingRegistry) Launch(ctx context.Context, appID string) (bool, error) {
	c.enter()
	return false, nil
}

func TestCallsAreSerialized(t *testing.T) {
	reg := &countingRegistry{}
	d := New(reg, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Dispatch(context.Background(), types.MethodIsAppInstalled, args("packageName", "a"))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&reg.peak))
}

func TestDispatchRecordsMetricsAndLogs(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	metrics := monitoring.NewMetrics()
	d := New(newFakeRegistry(), Options{
		Logger:  &logging.Logger{Logger: zap.New(core)},
		Metrics: metrics,
	})

	d.Dispatch(context.Background(), types.MethodOpenApp, args("packageName", "com.example.chat"))
	d.Dispatch(context.Background(), "closeApp", nil)

	snap := metrics.Snapshot()
	assert.Equal(t, int64(2), snap.TotalCalls)
	assert.Equal(t, int64(1), snap.FailedCalls)
	assert.Equal(t, int64(1), snap.Launches)

	completed := logs.FilterMessage("call completed").All()
	require.Len(t, completed, 2)
	assert.Equal(t, "true", completed[0].ContextMap()["outcome"])
	assert.Equal(t, "UnknownMethod", completed[1].ContextMap()["outcome"])
	assert.Equal(t, "closeApp", completed[1].ContextMap()["method"])
}
