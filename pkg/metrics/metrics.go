package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes recorded per channel.
const (
	OutcomeSuccess    = "success"
	OutcomeCancelled  = "cancelled"
	OutcomeNetworkErr = "network_failure"
	OutcomeRejected   = "server_rejected"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "photocat_requests_total",
		Help: "API requests issued by the sync engine, by channel and outcome.",
	}, []string{"channel", "outcome"})

	supersededTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "photocat_requests_superseded_total",
		Help: "Requests cancelled because a newer request started on the same channel.",
	}, []string{"channel"})

	debounceCoalescedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "photocat_search_debounce_coalesced_total",
		Help: "Search keystrokes absorbed by the debounce window without a fetch.",
	})

	suggestionCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "photocat_tag_cache_hits_total",
		Help: "Tag suggestion lookups served from the local cache.",
	})

	suggestionCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "photocat_tag_cache_misses_total",
		Help: "Tag suggestion lookups that required an API call.",
	})
)

// ObserveRequest records one completed request on a channel.
func ObserveRequest(channel, outcome string) {
	requestsTotal.WithLabelValues(channel, outcome).Inc()
}

// ObserveSuperseded records a request cancelled by a successor.
func ObserveSuperseded(channel string) {
	supersededTotal.WithLabelValues(channel).Inc()
}

// ObserveDebounceCoalesced records a keystroke absorbed by the debounce timer.
func ObserveDebounceCoalesced() {
	debounceCoalescedTotal.Inc()
}

// ObserveCacheHit records a suggestion cache hit.
func ObserveCacheHit() { suggestionCacheHits.Inc() }

// ObserveCacheMiss records a suggestion cache miss.
func ObserveCacheMiss() { suggestionCacheMisses.Inc() }
