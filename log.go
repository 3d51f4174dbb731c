package trellis

import "go.uber.org/zap"

// logger receives warnings and debug reports. Nop until SetLogger is called
// or a Scene enables debug mode.
var logger = zap.NewNop()

// loggerSet records whether the user supplied a logger, so debug mode does not
// replace it with a development logger.
var loggerSet bool

// SetLogger replaces the package logger. Passing nil restores the no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		logger = zap.NewNop()
		loggerSet = false
		return
	}
	logger = l
	loggerSet = true
}

// Logger returns the package logger.
func Logger() *zap.Logger {
	return logger
}

// ensureDevelopmentLogger installs a development logger when none was set.
func ensureDevelopmentLogger() {
	if loggerSet {
		return
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return
	}
	logger = l
	loggerSet = true
}
