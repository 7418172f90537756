package rtcdc

import (
	"github.com/pion/logging"
	"github.com/sirupsen/logrus"
)

// LogrusLoggerFactory routes the connection's logs, including the
// engine's own, into a logrus logger. Assign it to Config.LoggerFactory.
type LogrusLoggerFactory struct {
	Logger *logrus.Logger
}

// NewLogrusLoggerFactory builds a factory around logger, falling back to
// the logrus standard logger when nil.
func NewLogrusLoggerFactory(logger *logrus.Logger) *LogrusLoggerFactory {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogrusLoggerFactory{Logger: logger}
}

// NewLogger implements logging.LoggerFactory.
func (f *LogrusLoggerFactory) NewLogger(scope string) logging.LeveledLogger {
	logger := f.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &logrusLeveledLogger{entry: logger.WithField("scope", scope)}
}

type logrusLeveledLogger struct {
	entry *logrus.Entry
}

func (l *logrusLeveledLogger) Trace(msg string) { l.entry.Trace(msg) }
func (l *logrusLeveledLogger) Tracef(format string, args ...interface{}) {
	l.entry.Tracef(format, args...)
}

func (l *logrusLeveledLogger) Debug(msg string) { l.entry.Debug(msg) }
func (l *logrusLeveledLogger) Debugf(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l *logrusLeveledLogger) Info(msg string) { l.entry.Info(msg) }
func (l *logrusLeveledLogger) Infof(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *logrusLeveledLogger) Warn(msg string) { l.entry.Warn(msg) }
func (l *logrusLeveledLogger) Warnf(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

func (l *logrusLeveledLogger) Error(msg string) { l.entry.Error(msg) }
func (l *logrusLeveledLogger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}
