/*
Package tracing provides lightweight request tracing.

Spans are logged through zap when they finish. The trace context travels
in the X-Trace-ID and X-Span-ID headers: HTTPMiddleware reads them from
inbound requests and Inject writes them onto outbound calls, such as those
to the completion endpoint.

	tracer := tracing.New("uibuilder", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "llm.generate")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()
*/
package tracing
