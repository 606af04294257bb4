package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Tee returns a logger that forwards every message to each non-nil logger.
func Tee(loggers ...func(format string, v ...interface{})) func(format string, v ...interface{}) {
	return func(format string, v ...interface{}) {
		for _, l := range loggers {
			if l != nil {
				l(format, v...)
			}
		}
	}
}
