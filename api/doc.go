// Package api serves the assetmigrate HTTP surface.
//
// Routes:
//
//	POST /v1/batches     convert a batch of attachments (batch:submit)
//	POST /v1/plans       resolve an execution order (plan:resolve)
//	GET  /v1/providers   list the provider catalog
//	GET  /healthz        liveness
//	GET  /readyz         readiness
//	GET  /health[/name]  detailed health
//	GET  /metrics        Prometheus exposition, when configured
//
// Errors are JSON objects of the form {"error": "...", "kind": "..."} where
// kind is the failure kind of the error.
package api
