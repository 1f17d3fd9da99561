package storage

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var registerOnce sync.Once

var (
	// OperationsTotal counts backend calls by provider, operation and outcome
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simpledrive_storage_operations_total",
			Help: "Storage backend operations by provider, operation and status",
		},
		[]string{"provider", "operation", "status"},
	)

	// OperationDuration observes backend call latency in seconds
	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "simpledrive_storage_operation_duration_seconds",
			Help:    "Storage backend operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "operation"},
	)

	// BytesStoredTotal counts decoded bytes written by each provider
	BytesStoredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simpledrive_storage_bytes_stored_total",
			Help: "Decoded blob bytes written per provider",
		},
		[]string{"provider"},
	)
)

// RegisterMetrics registers the storage collectors with the default
// registry. Safe to call more than once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(OperationsTotal, OperationDuration, BytesStoredTotal)
	})
}

// Operation outcome labels
const (
	statusSuccess  = "success"
	statusNotFound = "not_found"
)

type instrumentedBackend struct {
	next Backend
}

// Instrument records metrics around every call to b
func Instrument(b Backend) Backend {
	if b == nil {
		return nil
	}
	return &instrumentedBackend{next: b}
}

func (i *instrumentedBackend) Provider() string {
	return i.next.Provider()
}

func (i *instrumentedBackend) Store(ctx context.Context, blobID, content string) (*Metadata, error) {
	start := time.Now()
	meta, err := i.next.Store(ctx, blobID, content)
	i.observe("store", start, outcome(err, true))
	if err == nil && meta != nil {
		BytesStoredTotal.WithLabelValues(i.next.Provider()).Add(float64(meta.Size))
	}
	return meta, err
}

func (i *instrumentedBackend) Retrieve(ctx context.Context, blobID string) (string, bool, error) {
	start := time.Now()
	content, found, err := i.next.Retrieve(ctx, blobID)
	i.observe("retrieve", start, outcome(err, found))
	return content, found, err
}

func (i *instrumentedBackend) observe(operation string, start time.Time, status string) {
	provider := i.next.Provider()
	OperationsTotal.WithLabelValues(provider, operation, status).Inc()
	OperationDuration.WithLabelValues(provider, operation).Observe(time.Since(start).Seconds())
}

func outcome(err error, found bool) string {
	switch {
	case err != nil:
		return string(CodeOf(err))
	case !found:
		return statusNotFound
	default:
		return statusSuccess
	}
}
