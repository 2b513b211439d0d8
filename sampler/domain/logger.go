package domain

// Logger defines the contract for logging operations with different severity levels.
type Logger interface {
	// Info logs an informational message with optional formatted arguments.
	Info(msg string, args ...interface{})
	// Error logs an error message with optional formatted arguments.
	Error(msg string, args ...interface{})
}

// NopLogger discards everything.
type NopLogger struct{}

// Info does nothing.
func (NopLogger) Info(string, ...interface{}) {}

// Error does nothing.
func (NopLogger) Error(string, ...interface{}) {}
