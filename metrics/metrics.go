// Package metrics exposes Prometheus counters for storage, cache and thumbnail work.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	storageOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_storage_operations_total",
			Help: "Object storage operations by provider, operation and result",
		},
		[]string{"provider", "operation", "result"},
	)

	storageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gallery_storage_operation_duration_seconds",
			Help:    "Object storage operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "operation"},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_cache_lookups_total",
			Help: "Cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	cacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_cache_invalidations_total",
			Help: "Cache tag invalidations",
		},
		[]string{"tag"},
	)

	thumbnailsRendered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_thumbnails_total",
			Help: "Thumbnail renders by mode (thumb, full) and result (ok, fallback)",
		},
		[]string{"mode", "result"},
	)

	thumbnailDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gallery_thumbnail_duration_seconds",
			Help:    "Time spent fetching and transcoding an image",
			Buckets: []float64{.025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)
)

// StorageTimer starts timing one backend call, the returned func records its outcome
func StorageTimer(provider, operation string) func(error) {
	start := time.Now()
	return func(err error) {
		result := "ok"
		if err != nil {
			result = "error"
		}
		storageOperations.WithLabelValues(provider, operation, result).Inc()
		storageDuration.WithLabelValues(provider, operation).Observe(time.Since(start).Seconds())
	}
}

func RecordCacheLookup(result string) {
	cacheLookups.WithLabelValues(result).Inc()
}

func RecordCacheInvalidation(tag string) {
	cacheInvalidations.WithLabelValues(tag).Inc()
}

func RecordThumbnail(full, fallback bool, start time.Time) {
	mode, result := "thumb", "ok"
	if full {
		mode = "full"
	}
	if fallback {
		result = "fallback"
	}
	thumbnailsRendered.WithLabelValues(mode, result).Inc()
	thumbnailDuration.Observe(time.Since(start).Seconds())
}

// Handler serves /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
