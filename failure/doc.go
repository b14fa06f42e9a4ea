// Package failure defines the error kinds shared by every layer of the
// migration engine.
//
// Operations return ordinary error values. Each error that crosses a package
// boundary carries a Kind so callers can decide, without string matching,
// whether it is retryable, whether it fails fast, and how it maps onto an
// HTTP status:
//
//	if failure.KindOf(err) == failure.KindCircuitOpen {
//	    // downstream is shedding load; do not retry
//	}
package failure
