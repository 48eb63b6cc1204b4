package repositories

import (
	"strings"

	"go.uber.org/zap"
)

// badgerLogger routes Badger's internal logging through zap.
type badgerLogger struct {
	s *zap.SugaredLogger
}

func newBadgerLogger(logger *zap.Logger) badgerLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return badgerLogger{s: logger.Named("badger").WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.s.Errorf(strings.TrimSuffix(format, "\n"), args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.s.Warnf(strings.TrimSuffix(format, "\n"), args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.s.Infof(strings.TrimSuffix(format, "\n"), args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.s.Debugf(strings.TrimSuffix(format, "\n"), args...)
}
