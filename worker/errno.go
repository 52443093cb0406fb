package worker

// Numeric error codes reported to the daemon on a session's ERROR frame.
// Values match the platform's published CocaineErrno table.
const (
	// ErrorNoEventHandler is returned when there is no handler bound to
	// the requested event.
	ErrorNoEventHandler = 200
	// ErrorPanicInHandler is returned when a handler panics (or, in the
	// v1 nomenclature, raises an uncaught exception).
	ErrorPanicInHandler = 100
	// ErrorInvocationFailed is returned when starting a handler itself
	// fails, before any application code runs (EINVFAILED).
	ErrorInvocationFailed = 300
)
