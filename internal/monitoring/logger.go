// Package monitoring holds the process-wide diagnostic logger used by the
// georeferencing pipeline and its command-line front end.
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

// Warnf logs a recoverable problem, such as a skipped pose line or a header
// count that disagrees with the file size. Warnings are never fatal.
func Warnf(format string, v ...interface{}) {
	Logf("warning: "+format, v...)
}
