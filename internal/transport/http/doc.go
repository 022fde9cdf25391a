// Package http implements the read-only results browser.
//
// Routes:
//
//	GET /healthz                   liveness plus results directory check
//	GET /metrics                   Prometheus exposition of the private registry
//	GET /api/v1/neurons            neuron tables with row and channel counts
//	GET /api/v1/neurons/{label}    one neuron table, missing values as null
//	GET /api/v1/merged             the merged table
//	GET /charts/merged             interactive mean ± SEM chart
//	GET /charts/neurons/{label}    interactive ΔF/F0 chart of one neuron
//	GET /plots/*                   PNG charts rendered by the pipeline
//
// Every error is answered with an RFC 7807 problem document by
// errors.ErrorHandler: invalid labels are 400, unknown labels 404.
package http
