// Package observability builds the zap logger used across the service and
// derives request-scoped loggers carrying the request id and caller.
package observability
