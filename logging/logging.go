// Package logging contains the structured logger used by the ulog parser and its tools.
//
// Entries are zapcore entries handed to every registered Appender. The console format is tab
// delimited, with the fields of the entry as a JSON object at the end:
//
//	2024-05-01T12:02:11.103Z	WARN	ulogcat	parser/parser.go:347	Unknown message type	{"offset":1204,"type":"X","size":3}
package logging

// DefaultTimeFormatStr is the time format used by the console and test appenders.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

// NewLogger returns a new logger that outputs Info+ logs to stdout in UTC.
func NewLogger(name string) Logger {
	return newImpl(name, INFO, true, NewStdoutAppender())
}

// NewBlankLogger returns a new logger that outputs Debug+ logs in UTC, but without any
// pre-existing appenders/outputs.
func NewBlankLogger(name string) Logger {
	return newImpl(name, DEBUG, true)
}
