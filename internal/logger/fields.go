package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, carried on the context logger through a call chain.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldSessionID is the browse session ID (UUID)
	FieldSessionID = "session_id"

	// FieldFeed is the catalog feed a list controller serves
	FieldFeed = "feed"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldEndpoint is the RAWG endpoint path
	FieldEndpoint = "endpoint"

	// FieldGameID is the RAWG game ID
	FieldGameID = "game_id"
)

// Metric fields, attached per entry for aggregation.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldStatus is the operation status
	FieldStatus = "status"

	// FieldOutcome is the pager outcome of a request
	FieldOutcome = "outcome"
)
