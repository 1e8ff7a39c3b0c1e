package core

// Logger is implemented by the application loggers.
// args may contain errors, map[string]interface{} extras and the user the event is attached to.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
