// Package metrics exposes Prometheus counters for reservation and redemption outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reservation results.
const (
	ResultIssued    = "issued"
	ResultSoldOut   = "sold_out"
	ResultNotValid  = "not_valid"
	ResultInactive  = "inactive"
	ResultNotFound  = "not_found"
	ResultTransient = "transient"
	ResultError     = "error"
)

// Redemption results. ResultNotFound and ResultError are shared.
const (
	ResultRedeemed      = "redeemed"
	ResultAlreadyUsed   = "already_used"
	ResultExpired       = "expired"
	ResultOfferMismatch = "offer_mismatch"
	ResultCancelled     = "cancelled"
)

// Cache results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

var (
	reservations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offer_reservations_total",
		Help: "Reservation attempts by result",
	}, []string{"result"})

	redemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voucher_redemptions_total",
		Help: "Voucher redemption attempts by result",
	}, []string{"result"})

	cacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offer_cache_requests_total",
		Help: "Offer cache lookups by result",
	}, []string{"result"})
)

// Reservation counts one reservation attempt.
func Reservation(result string) {
	reservations.WithLabelValues(result).Inc()
}

// Redemption counts one redemption attempt.
func Redemption(result string) {
	redemptions.WithLabelValues(result).Inc()
}

// Cache counts one offer cache lookup.
func Cache(result string) {
	cacheRequests.WithLabelValues(result).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
