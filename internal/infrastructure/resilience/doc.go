/*
Package resilience provides a circuit breaker for calls to the completion
endpoint.

The breaker is closed while calls succeed. Once ReadyToTrip approves it
opens, and calls fail fast with ErrCircuitOpen until Timeout elapses. It
then admits MaxRequests trial calls in the half-open state. Enough
successes close it again and any failure re-opens it.

	breaker := resilience.New("llm", resilience.Settings{
		Timeout: 30 * time.Second,
		IsFailure: func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		},
	})

	text, err := resilience.Execute(ctx, breaker, func(ctx context.Context) (string, error) {
		return client.Generate(ctx, prompt)
	})

	Closed --[trip]--> Open --[timeout]--> Half-Open --[successes]--> Closed
	                    ^                      |
	                    +------[failure]-------+
*/
package resilience
