// Package contextkeys provides centralized context key definitions.
//
// All context keys used across the engine are defined here so key usage
// stays discoverable and collision-free.
package contextkeys

// Key is the type for context keys to prevent collisions.
type Key string

const (
	// RequestIDKey contains the caller's request id string.
	// Set by: the embedding application's request middleware.
	// Used by: resolver audit entries, structured logging.
	// Type: string
	RequestIDKey Key = "request_id"

	// PrincipalKey contains the resolved principal for the request.
	// Set by: the embedding application after authentication.
	// Used by: callers that pass a request-scoped principal to Check.
	// Type: authz.Principal
	PrincipalKey Key = "principal"

	// LoggerKey contains a *observability.Logger with request fields.
	// Set by: the embedding application's logging middleware.
	// Type: *observability.Logger
	LoggerKey Key = "logger"
)
