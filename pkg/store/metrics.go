package store

import (
	"fmt"
	"io"

	"github.com/VictoriaMetrics/metrics"
	"github.com/aleksaelezovic/hexastore/pkg/triple"
)

var (
	putsTotal         = metrics.NewCounter(`hexastore_puts_total`)
	putErrorsTotal    = metrics.NewCounter(`hexastore_put_errors_total`)
	deletesTotal      = metrics.NewCounter(`hexastore_deletes_total`)
	deleteErrorsTotal = metrics.NewCounter(`hexastore_delete_errors_total`)
	queryErrorsTotal  = metrics.NewCounter(`hexastore_query_errors_total`)
	rowsTotal         = metrics.NewCounter(`hexastore_rows_total`)
	decodeErrorsTotal = metrics.NewCounter(`hexastore_decode_errors_total`)
	fullScansTotal    = metrics.NewCounter(`hexastore_full_scans_total`)

	// queries answered per ordering, indexed like triple.Hexagon
	queriesTotal = func() (counters [len(triple.Hexagon)]*metrics.Counter) {
		for i, o := range triple.Hexagon {
			counters[i] = metrics.NewCounter(fmt.Sprintf(`hexastore_queries_total{ordering=%q}`, o.Name()))
		}
		return counters
	}()
)

// WriteMetrics writes the store metrics in Prometheus text format
func WriteMetrics(w io.Writer) {
	metrics.WritePrometheus(w, false)
}
