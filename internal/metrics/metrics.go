// Package metrics defines the Prometheus collectors shared by the providers
// and the HTTP server.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	OAuthCallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "social_oauth_callbacks_total",
		Help: "OAuth callbacks handled, by provider and outcome.",
	}, []string{"provider", "outcome"})

	TokenRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "social_token_refreshes_total",
		Help: "Access token refresh attempts, by provider and outcome.",
	}, []string{"provider", "outcome"})

	Publishes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "social_publishes_total",
		Help: "Publish attempts, by provider and outcome.",
	}, []string{"provider", "outcome"})

	ContainerPolls = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "social_instagram_container_polls",
		Help:    "Status polls needed before an Instagram media container settled.",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 30},
	})
)

// Outcome returns the label value for err.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	return "failure"
}

// Register registers all collectors on reg (or the default registerer if nil).
// Registering twice is not an error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{OAuthCallbacks, TokenRefreshes, Publishes, ContainerPolls} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
		}
	}
	return nil
}
