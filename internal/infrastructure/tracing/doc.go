/*
Package tracing provides lightweight request tracing for the bridge host.

Trace context travels in the X-Trace-ID / X-Span-ID headers so a call made
by the UI layer can be followed through the HTTP handler, the dispatcher and
the platform call in the host logs. Spans are buffered and logged by a
background collector; span and trace IDs are prefixed ULIDs.

# Usage

	tracer := tracing.New("appbridge", logger.Logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "openApp")
	defer func() { span.Finish(); tracer.Submit(span) }()
*/
package tracing
