// Package api hosts the optional status server that runs alongside a crawl.
// Notable routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/runs and /v1/runs/{run_id} for live crawl counters.
package api
