package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zou/appbridge/internal/infrastructure/logging"
	"github.com/zou/appbridge/internal/infrastructure/monitoring"
	"github.com/zou/appbridge/internal/infrastructure/resilience"
	"github.com/zou/appbridge/internal/infrastructure/tracing"
	"github.com/zou/appbridge/internal/providers/apps"
	"github.com/zou/appbridge/internal/shared/id"
	"github.com/zou/appbridge/internal/shared/types"
)

// DefaultCallTimeout bounds a single platform call
const DefaultCallTimeout = 10 * time.Second

// MessageTimedOut is the PlatformError message for an expired call
const MessageTimedOut = "platform call timed out"

// Handler executes decoded commands
type Handler interface {
	Handle(ctx context.Context, cmd types.Command) types.Result
}

// Options configures a Dispatcher
type Options struct {
	CallTimeout time.Duration
	Logger      *logging.Logger
	// Metrics may be nil
	Metrics *monitoring.Metrics
}

// Dispatcher routes channel calls to the registry adapter and encodes every
// outcome as exactly one Result. Calls are handled one at a time: the slot
// is held until the adapter returns, even when the caller already got a
// timeout reply.
type Dispatcher struct {
	registry apps.Registry
	timeout  time.Duration
	logger   *logging.Logger
	metrics  *monitoring.Metrics

	slot chan struct{}
}

// New creates a dispatcher over registry
func New(registry apps.Registry, opts Options) *Dispatcher {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return &Dispatcher{
		registry: registry,
		timeout:  opts.CallTimeout,
		logger:   opts.Logger.Named("bridge"),
		metrics:  opts.Metrics,
		slot:     make(chan struct{}, 1),
	}
}

// Dispatch decodes and executes one raw channel call
func (d *Dispatcher) Dispatch(ctx context.Context, method string, args map[string]interface{}) types.Result {
	callID := id.NewCallID()
	timer := monitoring.NewTimer(d.metrics, metricMethod(method))

	cmd, failure := Decode(method, args)
	if failure != nil {
		d.complete(ctx, callID, method, timer, *failure)
		return *failure
	}

	result := d.execute(ctx, callID, cmd)
	d.complete(ctx, callID, method, timer, result)
	return result
}

// Handle executes an already decoded command
func (d *Dispatcher) Handle(ctx context.Context, cmd types.Command) types.Result {
	callID := id.NewCallID()
	method := cmd.Method()
	timer := monitoring.NewTimer(d.metrics, metricMethod(method))

	var result types.Result
	switch cmd.Kind {
	case types.CommandCheckInstalled, types.CommandLaunchApp:
		result = d.execute(ctx, callID, cmd)
	default:
		result = types.Fail(types.UnknownMethod, "")
	}
	d.complete(ctx, callID, method, timer, result)
	return result
}

func (d *Dispatcher) execute(ctx context.Context, callID id.CallID, cmd types.Command) types.Result {
	method := cmd.Method()
	value, err := d.call(ctx, cmd)
	if err != nil {
		kind := errorKind(err)
		if d.metrics != nil {
			d.metrics.RecordPlatformError(method, kind)
		}
		d.logger.ForCall(callID.String(), method).Warn("Platform call failed",
			zap.String("app_id", cmd.AppID),
			zap.String("kind", kind),
			zap.Error(err),
		)
		return types.Fail(types.PlatformError, platformMessage(err))
	}

	if cmd.Kind == types.CommandLaunchApp && value && d.metrics != nil {
		d.metrics.RecordLaunch()
	}
	return types.Success(value)
}

type callOutcome struct {
	value bool
	err   error
}

// call waits for the slot and runs the adapter, both under one call timeout.
// A panic in the adapter is returned as a *PanicError.
func (d *Dispatcher) call(ctx context.Context, cmd types.Command) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	select {
	case d.slot <- struct{}{}:
	case <-ctx.Done():
		return false, ctx.Err()
	}

	done := make(chan callOutcome, 1)
	go func() {
		// released only once the adapter is done
		defer func() { <-d.slot }()
		defer func() {
			if p := recover(); p != nil {
				done <- callOutcome{err: &PanicError{Value: p}}
			}
		}()

		var o callOutcome
		switch cmd.Kind {
		case types.CommandCheckInstalled:
			o.value, o.err = d.registry.IsInstalled(ctx, cmd.AppID)
		case types.CommandLaunchApp:
			o.value, o.err = d.registry.Launch(ctx, cmd.AppID)
		default:
			o.err = fmt.Errorf("unsupported command kind %q", cmd.Kind)
		}
		done <- o
	}()

	select {
	case o := <-done:
		return o.value, o.err
	case <-ctx.Done():
		// prefer an answer that raced the deadline
		select {
		case o := <-done:
			return o.value, o.err
		default:
		}
		return false, ctx.Err()
	}
}

func (d *Dispatcher) complete(ctx context.Context, callID id.CallID, method string, timer *monitoring.Timer, result types.Result) {
	duration := timer.Stop(result.Outcome(), !result.OK())

	fields := []zap.Field{zap.Bool("ok", result.OK())}
	if traceID := tracing.GetTraceID(ctx); traceID != "" {
		fields = append(fields, zap.String("trace_id", string(traceID)))
	}
	d.logger.ForCall(callID.String(), method).CallCompleted(result.Outcome(), duration, fields...)
}

// PanicError is a recovered panic from the registry adapter
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("registry adapter panicked: %v", e.Value)
}

func errorKind(err error) string {
	var pe *PanicError
	switch {
	case errors.As(err, &pe):
		return "panic"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
		return "circuit_open"
	default:
		return "error"
	}
}

func platformMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return MessageTimedOut
	}
	return err.Error()
}

// metricMethod keeps the method label bounded
func metricMethod(method string) string {
	switch method {
	case types.MethodIsAppInstalled, types.MethodOpenApp:
		return method
	default:
		return "unknown"
	}
}
