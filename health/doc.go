// Package health reports the state of the migration engine's dependencies.
//
// Every resilience policy is a Checker: a closed circuit is healthy, a
// half-open circuit degraded and an open circuit unhealthy. The Aggregator
// runs registered checks concurrently under one deadline and OverallStatus
// reduces them to the most severe status.
//
//	agg := health.NewAggregator()
//	agg.Register("heap", health.NewHeapChecker(health.HeapCheckerConfig{
//	    MaxHeapBytes: 2 << 30,
//	}))
//	report := agg.Report(ctx)
//
// A Monitor polls the aggregator in the background and logs transitions:
//
//	stop, err := health.NewMonitor(agg, health.MonitorConfig{}, logger).Start(ctx)
//	if err != nil {
//	    return err
//	}
//	defer stop()
//
// RegisterHandlers mounts /healthz, /readyz, /health and /health/{name}.
package health
