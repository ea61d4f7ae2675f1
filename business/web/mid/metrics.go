package mid

import (
	"context"
	"net/http"
	"sync"

	"github.com/ardanlabs/utxoledger/foundation/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRequests prometheus.Counter
	metricErrors   prometheus.Counter
	metricPanics   prometheus.Counter

	metricsInitOnce sync.Once
)

func initMetrics() {
	metricsInitOnce.Do(func() {
		metricRequests = promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "node",
				Name:      "requests",
				Help:      "Number of requests handled by the node",
			},
		)
		metricErrors = promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "node",
				Name:      "errors",
				Help:      "Number of requests that returned an error",
			},
		)
		metricPanics = promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "node",
				Name:      "panics",
				Help:      "Number of requests that panicked",
			},
		)
	})
}

// Metrics updates program counters.
func Metrics() web.Middleware {
	initMetrics()

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			// Call the next handler.
			err := handler(ctx, w, r)

			// Increment the request counter.
			metricRequests.Inc()

			// Increment if there is an error flowing through the request.
			if err != nil {
				metricErrors.Inc()
			}

			// Return the error so it can be handled further up the chain.
			return err
		}

		return h
	}

	return m
}
