// Package metrics exposes Prometheus instrumentation for the import and
// reconciliation pipelines.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles all collectors so dependencies can be injected explicitly
// instead of through package globals.
type Metrics struct {
	RowsImported     prometheus.Counter
	RowsRejected     prometheus.Counter
	RowsDuplicated   prometheus.Counter
	UnmatchedSales   prometheus.Counter
	ReconcileWrites  prometheus.Counter
	ReconcilePasses  prometheus.Counter
	ImportDuration   prometheus.Histogram
	StoreWriteErrors prometheus.Counter
}

// New registers all collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RowsImported: factory.NewCounter(prometheus.CounterOpts{
			Name: "backoffice_import_rows_imported_total",
			Help: "Rows accepted as valid sale records during import.",
		}),
		RowsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "backoffice_import_rows_rejected_total",
			Help: "Rows rejected with field-level validation errors.",
		}),
		RowsDuplicated: factory.NewCounter(prometheus.CounterOpts{
			Name: "backoffice_import_rows_duplicated_total",
			Help: "Rows routed to the duplicates bucket by composite key.",
		}),
		UnmatchedSales: factory.NewCounter(prometheus.CounterOpts{
			Name: "backoffice_reconcile_unmatched_sales_total",
			Help: "Sales that matched no catalog product during reconciliation.",
		}),
		ReconcileWrites: factory.NewCounter(prometheus.CounterOpts{
			Name: "backoffice_reconcile_product_writes_total",
			Help: "Product records persisted because reconciliation changed them.",
		}),
		ReconcilePasses: factory.NewCounter(prometheus.CounterOpts{
			Name: "backoffice_reconcile_passes_total",
			Help: "Completed reconciliation passes.",
		}),
		ImportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "backoffice_import_duration_seconds",
			Help:    "Wall time of a full import commit, parse to reconcile.",
			Buckets: prometheus.DefBuckets,
		}),
		StoreWriteErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "backoffice_store_write_errors_total",
			Help: "Store writes that failed after bounded retries.",
		}),
	}
}

// NewUnregistered returns metrics on a private registry, for tests.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
