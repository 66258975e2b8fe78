// Package resilience provides the fault-tolerance patterns used around the
// external engines and sinks.
//
//   - Bulkhead: caps how many engine subprocesses run at once
//   - Retry: retries transient sidecar and broker failures with backoff
//   - CircuitBreaker: fails fast while an engine sidecar is down
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("whisper"))
//	resp, err := resilience.Retry(ctx, retryCfg, func() (*Response, error) {
//	    var out *Response
//	    err := cb.Execute(func() (err error) { out, err = call(ctx); return err })
//	    return out, err
//	})
package resilience
