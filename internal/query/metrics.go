package query

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheEvents counts store activity by event type.
	// Labels: "hit", "stale_hit", "miss", "set", "invalidation", "eviction",
	// "refetch".
	cacheEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kakeibo_cache_events_total",
		Help: "Cache store events by type",
	}, []string{"event"})

	// fetches counts underlying network fetches by outcome, after
	// deduplication. Labels: "success", "error".
	fetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kakeibo_fetches_total",
		Help: "Deduplicated upstream fetches by outcome",
	}, []string{"outcome"})

	// mutations counts mutation runs by final state.
	// Labels: "committed", "rolled_back".
	mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kakeibo_mutations_total",
		Help: "Mutations by final state",
	}, []string{"state"})
)
