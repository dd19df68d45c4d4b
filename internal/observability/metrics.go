package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// FeedPagesServed counts rendered feed pages by mode (index, group, profile, follow).
	FeedPagesServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postline_feed_pages_served_total",
		Help: "Total number of feed pages built, by feed mode",
	}, []string{"mode"})

	// PageCacheLookups counts page cache lookups by result (hit, miss, error).
	PageCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postline_page_cache_lookups_total",
		Help: "Total number of page cache lookups, by result",
	}, []string{"result"})

	// FollowChanges counts follow graph mutations by action (follow, unfollow, self_ignored).
	FollowChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postline_follow_changes_total",
		Help: "Total number of follow graph changes, by action",
	}, []string{"action"})

	// ImageUploads counts image uploads by result (stored, rejected, failed).
	ImageUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postline_image_uploads_total",
		Help: "Total number of image uploads, by result",
	}, []string{"result"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "postline_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

const queryStartKey = "postline:query_start"

// RegisterQueryMetrics hooks gorm callbacks so every statement is observed
// in DatabaseQueryLatency.
func RegisterQueryMetrics(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(queryStartKey, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(queryStartKey)
			if !ok {
				return
			}
			start, ok := v.(time.Time)
			if !ok {
				return
			}
			DatabaseQueryLatency.WithLabelValues(operation, tx.Statement.Table).Observe(time.Since(start).Seconds())
		}
	}

	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register("metrics:create_before", before); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("metrics:create_after", after("create")); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("metrics:query_before", before); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("metrics:query_after", after("query")); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("metrics:update_before", before); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("metrics:update_after", after("update")); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("metrics:delete_before", before); err != nil {
		return err
	}
	return cb.Delete().After("gorm:delete").Register("metrics:delete_after", after("delete"))
}
