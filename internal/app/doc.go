// Package app wires the results browser: configuration, logging,
// telemetry, the results service, the chi router and the HTTP server.
//
// # Initialization Flow
//
//	1. The caller loads configuration and initializes logging and telemetry
//	2. NewApplication resolves the project layout and creates the service
//	3. setupRouter installs middleware and mounts every handler
//	4. Start serves until the context is cancelled, Stop drains in-flight
//	   requests within the configured shutdown timeout
//
// # Middleware Order
//
//	RequestID -> RealIP -> OTel -> StructuredLogger -> Recoverer ->
//	SecurityHeaders -> RateLimiter
package app
