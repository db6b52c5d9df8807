package telemetry

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// WrapHTTPClient wraps an HTTP client's transport with OpenTelemetry tracing.
// A nil client gets a fresh one; the shared default client is never modified.
func WrapHTTPClient(client *http.Client) *http.Client {
	if client == nil {
		client = &http.Client{}
	}

	if _, ok := client.Transport.(*otelhttp.Transport); ok {
		return client
	}

	transport := client.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	client.Transport = otelhttp.NewTransport(transport,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "etrade " + r.Method + " " + r.URL.Path
		}),
	)
	return client
}
