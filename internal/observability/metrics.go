package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// PageCacheRequests counts page cache lookups by result (hit, miss, bypass).
	PageCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_page_cache_requests_total",
		Help: "Page cache lookups by result",
	}, []string{"result"})

	// PostsCreated counts posts published through the site.
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_posts_created_total",
		Help: "Total number of posts created",
	})

	// CommentsCreated counts comments left on posts.
	CommentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_comments_created_total",
		Help: "Total number of comments created",
	})

	// FollowChanges counts follow and unfollow actions.
	FollowChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_follow_changes_total",
		Help: "Follow subscriptions created or removed",
	}, []string{"action"})

	// EventsPublished counts domain events handed to the broker by subject and outcome.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_events_published_total",
		Help: "Domain events published by subject and outcome",
	}, []string{"subject", "outcome"})
)
